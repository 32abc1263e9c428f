package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"CricketSync/internal/apperr"
	"CricketSync/internal/catalog"
	"CricketSync/internal/config"
	"CricketSync/internal/database/dbtest"
	"CricketSync/internal/interfaces"
	"CricketSync/internal/model"
	"CricketSync/internal/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeStore 按顺序返回预设错误，之后返回 rows；hang 为 true 时一直等到 ctx 结束
type fakeStore struct {
	mu      sync.Mutex
	calls   int
	hang    bool
	errs    []error
	columns []string
	rows    []model.Row
	last    model.Statement
}

func (s *fakeStore) Query(ctx context.Context, stmt model.Statement, visit func(model.Row) error) ([]string, error) {
	s.mu.Lock()
	s.calls++
	s.last = stmt
	hang := s.hang
	var err error
	if len(s.errs) > 0 {
		err, s.errs = s.errs[0], s.errs[1:]
	}
	s.mu.Unlock()
	if hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	for _, r := range s.rows {
		row := make(model.Row, len(r))
		for k, v := range r {
			row[k] = v
		}
		if verr := visit(row); verr != nil {
			if errors.Is(verr, interfaces.ErrStopScan) {
				break
			}
			return nil, verr
		}
	}
	return s.columns, nil
}

func (s *fakeStore) setHang(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hang = v
}

func (s *fakeStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeTeams map[string]*model.Team

func (f fakeTeams) FindTeam(_ context.Context, q string) (*model.Team, error) {
	return f[strings.ToUpper(q)], nil
}

var testTeams = fakeTeams{
	"CSK": {ID: 1, Name: "Chennai Super Kings", ShortCode: "CSK"},
	"MI":  {ID: 2, Name: "Mumbai Indians", ShortCode: "MI"},
}

func testConfig() config.QueryConfig {
	return config.QueryConfig{
		Timeout:      time.Second,
		MaxRetries:   3,
		MinBackoff:   time.Millisecond,
		MaxBackoff:   2 * time.Millisecond,
		AdhocMaxRows: 2,
		Breaker:      config.BreakerConfig{ConsecutiveFailures: 100, OpenTimeout: time.Minute},
	}
}

func newExecutor(store interfaces.QueryStore, cfg config.QueryConfig) *Executor {
	return New(catalog.Default(), store, testTeams, cfg, dbtest.QuietLogger(), nil)
}

func TestInvalidRequestsNeverTouchStorage(t *testing.T) {
	store := &fakeStore{}
	e := newExecutor(store, testConfig())
	ctx := context.Background()

	cases := []struct {
		op  string
		raw map[string]interface{}
	}{
		{"no_such_tool", nil},
		{"top_run_scorers", map[string]interface{}{"limit": -1}},
		{"top_run_scorers", map[string]interface{}{"limit": "DROP TABLE"}},
		{"points_table", nil},
		{"head_to_head", map[string]interface{}{"team_a": "CSK", "team_b": "XYZ"}},
		{"head_to_head", map[string]interface{}{"team_a": "CSK", "team_b": "csk"}},
	}
	for _, tc := range cases {
		_, err := e.Execute(ctx, tc.op, tc.raw)
		require.Error(t, err, tc.op)
		assert.Equal(t, apperr.KindInvalidOperation, apperr.KindOf(err), err.Error())
	}
	assert.Equal(t, 0, store.Calls())

	_, err := e.ExecuteSQL(ctx, "DELETE FROM matches")
	assert.True(t, apperr.Is(err, apperr.KindInvalidOperation))
	assert.Equal(t, 0, store.Calls())
}

func TestTeamArgumentsAreResolved(t *testing.T) {
	store := &fakeStore{rows: []model.Row{
		{"winner": "Chennai Super Kings"},
		{"winner": "Mumbai Indians"},
		{"winner": "Chennai Super Kings"},
	}}
	e := newExecutor(store, testConfig())

	res, err := e.Execute(context.Background(), "head_to_head", map[string]interface{}{"team_a": "csk", "team_b": "MI"})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{uint64(1), uint64(2), uint64(2), uint64(1)}, store.last.Args)
	assert.Len(t, res.Rows, 3)
	assert.Equal(t, catalog.Stat{Label: "Chennai Super Kings", Value: int64(2)}, res.Summary[1])
	assert.Equal(t, catalog.Stat{Label: "Mumbai Indians", Value: int64(1)}, res.Summary[2])
}

func TestTransientFailureIsRetried(t *testing.T) {
	store := &fakeStore{
		errs: []error{context.DeadlineExceeded},
		rows: []model.Row{{"team": "Mumbai Indians", "wins": int64(5)}},
	}
	e := newExecutor(store, testConfig())

	res, err := e.Execute(context.Background(), "most_wins_by_team", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Calls())
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(5), res.Rows[0]["wins"])
}

func TestRetriesExhausted(t *testing.T) {
	down := fmt.Errorf("dial: %w", context.DeadlineExceeded)
	store := &fakeStore{errs: []error{down, down, down, down}}
	e := newExecutor(store, testConfig())

	_, err := e.Execute(context.Background(), "most_wins_by_team", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindStorageUnavailable, apperr.KindOf(err))
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.Equal(t, 3, store.Calls())
}

func TestPermanentErrorIsNotRetried(t *testing.T) {
	store := &fakeStore{errs: []error{errors.New("no such column: x")}}
	e := newExecutor(store, testConfig())

	_, err := e.Execute(context.Background(), "general_stats", nil)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Equal(t, 1, store.Calls())

	store.errs = []error{errors.New("no such column: x")}
	_, err = e.ExecuteSQL(context.Background(), "SELECT x FROM teams")
	assert.Equal(t, apperr.KindInvalidOperation, apperr.KindOf(err))
	assert.Equal(t, 2, store.Calls())
}

func TestEmptyResult(t *testing.T) {
	e := newExecutor(&fakeStore{}, testConfig())
	res, err := e.Execute(context.Background(), "season_matches", map[string]interface{}{"season": 2031})
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
	assert.False(t, res.Truncated)
	assert.Equal(t, "season_matches", res.Operation)
}

func TestResultIsTruncated(t *testing.T) {
	rows := make([]model.Row, 0, 60)
	for i := 0; i < 60; i++ {
		rows = append(rows, model.Row{"team": fmt.Sprintf("T%02d", i), "wins": int64(60 - i)})
	}
	store := &fakeStore{rows: rows}
	e := newExecutor(store, testConfig())

	res, err := e.Execute(context.Background(), "most_wins_by_team", nil)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 50)
	assert.True(t, res.Truncated)

	store.columns = []string{"team", "wins"}
	res, err = e.ExecuteSQL(context.Background(), "SELECT name AS team FROM teams;")
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
	assert.True(t, res.Truncated)
	assert.Equal(t, "SELECT name AS team FROM teams", store.last.SQL)
	assert.Equal(t, catalog.AutoColumns([]string{"team", "wins"}), res.Columns)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 1
	cfg.Breaker.ConsecutiveFailures = 2
	down := context.DeadlineExceeded
	store := &fakeStore{errs: []error{down, down, down}}
	e := newExecutor(store, cfg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := e.Execute(ctx, "general_stats", nil)
		assert.True(t, apperr.Is(err, apperr.KindStorageUnavailable))
	}
	_, err := e.Execute(ctx, "general_stats", nil)
	assert.True(t, apperr.Is(err, apperr.KindStorageUnavailable))
	assert.Contains(t, err.Error(), "circuit breaker is open")
	assert.Equal(t, 2, store.Calls())
}

const runawaySQL = "WITH RECURSIVE c(x) AS (SELECT 1 UNION ALL SELECT x+1 FROM c) SELECT count(*) FROM c"

func TestAdhocTimeoutIsNotRetried(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 20 * time.Millisecond
	cfg.Breaker.ConsecutiveFailures = 2
	store := &fakeStore{hang: true}
	e := newExecutor(store, cfg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := e.ExecuteSQL(ctx, runawaySQL)
		require.Error(t, err)
		assert.Equal(t, apperr.KindInvalidOperation, apperr.KindOf(err), err.Error())
		assert.ErrorIs(t, err, ErrQueryTimeout)
		assert.NotContains(t, err.Error(), "circuit breaker")
	}
	// 每次请求只执行一次
	assert.Equal(t, 3, store.Calls())

	store.setHang(false)
	store.rows = []model.Row{{"team": "Mumbai Indians", "wins": int64(5)}}
	res, err := e.Execute(ctx, "most_wins_by_team", nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
}

func TestAdhocBreakerIsSeparate(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 1
	cfg.Breaker.ConsecutiveFailures = 2
	down := fmt.Errorf("dial: %w", context.DeadlineExceeded)
	store := &fakeStore{
		errs: []error{down, down},
		rows: []model.Row{{"team": "Mumbai Indians", "wins": int64(5)}},
	}
	e := newExecutor(store, cfg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := e.ExecuteSQL(ctx, "SELECT name FROM teams")
		assert.True(t, apperr.Is(err, apperr.KindStorageUnavailable))
	}
	_, err := e.ExecuteSQL(ctx, "SELECT name FROM teams")
	assert.Contains(t, err.Error(), "circuit breaker is open")
	assert.Equal(t, 2, store.Calls())

	// 直接 SQL 的熔断不影响目录操作
	res, err := e.Execute(ctx, "most_wins_by_team", nil)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 1)
	assert.Equal(t, 3, store.Calls())
}
