package service

import (
	"context"
	"testing"
	"time"

	"CricketSync/internal/adapter/dir"
	"CricketSync/internal/apperr"
	"CricketSync/internal/catalog"
	"CricketSync/internal/config"
	"CricketSync/internal/database/dbtest"
	"CricketSync/internal/executor"
	"CricketSync/internal/identity"
	"CricketSync/internal/ingest"
	"CricketSync/internal/model"
	"CricketSync/internal/repository"
	"CricketSync/internal/retry"
	tf "CricketSync/internal/testfixture"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	csk = "Chennai Super Kings"
	mi  = "Mumbai Indians"
	rcb = "Royal Challengers Bangalore"
	kkr = "Kolkata Knight Riders"
)

var teamCodes = map[string]string{csk: "CSK", mi: "MI", rcb: "RCB", kkr: "KKR"}

// seasonFixture 2019 赛季的五场比赛：CSK 对 MI 三场（CSK 两胜），另有两场无关比赛。
// 击球得分：AB de Villiers 60、V Kohli 60、RG Sharma 55、SR Watson 55、Shubman Gill 28。
// 唯一超过 100 分的搭档是 m4 中 AB de Villiers 与 V Kohli 的 120 分。
func seasonFixture() map[string]tf.Match {
	return map[string]tf.Match{
		"m1": {
			Season: 2019, Date: "2019-04-01", Teams: [2]string{csk, mi}, Winner: csk, ByRuns: 10,
			Innings: []tf.Innings{
				{Team: csk, Overs: [][]tf.Ball{tf.Over("SR Watson", "F du Plessis", "JJ Bumrah", 6, 6, 6, 6, 1)}},
				{Team: mi, Overs: [][]tf.Ball{tf.Over("RG Sharma", "Q de Kock", "DL Chahar", 5, 5, 5)}},
			},
		},
		"m2": {
			Season: 2019, Date: "2019-04-10", Teams: [2]string{mi, csk}, Winner: mi, ByRuns: 32,
			Innings: []tf.Innings{
				{Team: mi, Overs: [][]tf.Ball{
					tf.Over("RG Sharma", "Q de Kock", "DL Chahar", 6, 6, 6, 6, 6, 6),
					tf.Over("RG Sharma", "Q de Kock", "Imran Tahir", 4),
				}},
				{Team: csk, Overs: [][]tf.Ball{tf.Over("MS Dhoni", "RA Jadeja", "JJ Bumrah", 4, 4)}},
			},
		},
		"m3": {
			Season: 2019, Date: "2019-04-20", Teams: [2]string{csk, mi}, Winner: csk, ByRuns: 26,
			Innings: []tf.Innings{
				{Team: csk, Overs: [][]tf.Ball{tf.Over("SR Watson", "F du Plessis", "JJ Bumrah", 6, 6, 6, 6, 6)}},
				{Team: mi, Overs: [][]tf.Ball{tf.Over("HH Pandya", "KA Pollard", "DL Chahar", 2, 2)}},
			},
		},
		"m4": {
			Season: 2019, Date: "2019-04-05", Teams: [2]string{rcb, kkr}, Winner: rcb, ByRuns: 96,
			Innings: []tf.Innings{
				{Team: rcb, Overs: [][]tf.Ball{
					tf.Over("V Kohli", "AB de Villiers", "SP Narine", 6, 6, 6, 6, 6),
					tf.Over("AB de Villiers", "V Kohli", "AD Russell", 6, 6, 6, 6, 6),
					tf.Over("V Kohli", "AB de Villiers", "SP Narine", 6, 6, 6, 6, 6),
					tf.Over("AB de Villiers", "V Kohli", "AD Russell", 6, 6, 6, 6, 6),
				}},
				{Team: kkr, Overs: [][]tf.Ball{tf.Over("Shubman Gill", "CA Lynn", "YS Chahal", 4, 4, 4, 4, 4, 4)}},
			},
		},
		"m5": {
			Season: 2019, Date: "2019-04-25", Teams: [2]string{kkr, rcb}, Result: "no result",
			Innings: []tf.Innings{
				{Team: kkr, Overs: [][]tf.Ball{tf.Over("Shubman Gill", "CA Lynn", "YS Chahal", 2, 2)}},
			},
		},
	}
}

type harness struct {
	db     *gorm.DB
	fs     afero.Fs
	ingest *IngestService
	query  *QueryService
}

func newHarness(t *testing.T, opts ...func(*config.QueryConfig)) *harness {
	t.Helper()
	db := dbtest.New(t)
	logger := dbtest.QuietLogger()
	resolver, err := identity.NewExactResolver(64, teamCodes)
	require.NoError(t, err)

	pipeline := ingest.NewPipeline(repository.NewMatchRepository(db, resolver), logger,
		retry.Config{MaxAttempts: 2, MinBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}, nil)
	qcfg := config.QueryConfig{
		Timeout:        5 * time.Second,
		MaxRetries:     2,
		MinBackoff:     time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		MaxOutputChars: 4000,
		AdhocMaxRows:   50,
	}
	for _, opt := range opts {
		opt(&qcfg)
	}
	exec := executor.New(catalog.Default(), repository.NewQueryStore(db), repository.NewTeamRepository(db), qcfg, logger, nil)
	return &harness{
		db:     db,
		fs:     afero.NewMemMapFs(),
		ingest: NewIngestService(pipeline, config.DatasetConfig{}, logger),
		query:  NewQueryService(exec, repository.NewSchemaRepository(db), qcfg, logger),
	}
}

func (h *harness) write(t *testing.T, name string, data []byte) {
	t.Helper()
	require.NoError(t, afero.WriteFile(h.fs, "/data/"+name, data, 0o644))
}

func (h *harness) load(t *testing.T) *ingest.BatchReport {
	t.Helper()
	src, err := dir.New(h.fs, "/data", "", dbtest.QuietLogger())
	require.NoError(t, err)
	report, err := h.ingest.RunSource(context.Background(), src)
	require.NoError(t, err)
	return report
}

func (h *harness) loadSeason(t *testing.T) {
	t.Helper()
	for key, m := range seasonFixture() {
		h.write(t, key+".json", m.JSON())
	}
	report := h.load(t)
	require.Equal(t, 5, report.Inserted)
	require.Equal(t, 0, report.Failed)
}

func column(rows []model.Row, name string) []interface{} {
	out := make([]interface{}, len(rows))
	for i, r := range rows {
		out[i] = r[name]
	}
	return out
}

func TestTopRunScorers(t *testing.T) {
	h := newHarness(t)
	h.loadSeason(t)

	resp, err := h.query.RunTool(context.Background(), "top_run_scorers", map[string]interface{}{"limit": 3}, "")
	require.NoError(t, err)
	rows := resp.Result.Rows
	assert.Equal(t, []interface{}{"AB de Villiers", "V Kohli", "RG Sharma"}, column(rows, "player"))
	assert.Equal(t, []interface{}{int64(60), int64(60), int64(55)}, column(rows, "runs"))
	assert.False(t, resp.Result.Truncated)
	assert.NotEmpty(t, resp.RequestID)
	assert.Contains(t, resp.Text, "3 rows in set")
	assert.Contains(t, resp.Text, "AB de Villiers")
}

func TestHeadToHead(t *testing.T) {
	h := newHarness(t)
	h.loadSeason(t)

	resp, err := h.query.RunTool(context.Background(), "head_to_head", map[string]interface{}{"team_a": "CSK", "team_b": "MI"}, "")
	require.NoError(t, err)
	res := resp.Result
	require.Len(t, res.Rows, 3)
	assert.Equal(t, []interface{}{"2019-04-01", "2019-04-10", "2019-04-20"}, column(res.Rows, "date"))
	assert.Equal(t, []catalog.Stat{
		{Label: "比赛", Value: int64(3)},
		{Label: csk, Value: int64(2)},
		{Label: mi, Value: int64(1)},
		{Label: "无结果", Value: int64(0)},
	}, res.Summary)
	assert.Contains(t, resp.Text, "Chennai Super Kings: 2 | Mumbai Indians: 1")

	_, err = h.query.RunTool(context.Background(), "head_to_head", map[string]interface{}{"team_a": "CSK", "team_b": "Sunrisers"}, "")
	assert.True(t, apperr.Is(err, apperr.KindInvalidOperation))
}

func TestPartnershipsOver(t *testing.T) {
	h := newHarness(t)
	h.loadSeason(t)

	resp, err := h.query.RunTool(context.Background(), "partnerships_over", map[string]interface{}{"threshold": 100}, "")
	require.NoError(t, err)
	rows := resp.Result.Rows
	require.Len(t, rows, 1)
	assert.Equal(t, "AB de Villiers", rows[0]["batter_1"])
	assert.Equal(t, "V Kohli", rows[0]["batter_2"])
	assert.Equal(t, int64(120), rows[0]["runs"])
	assert.Equal(t, int64(20), rows[0]["balls"])
	assert.Equal(t, rcb, rows[0]["team"])
	assert.Equal(t, "m4", rows[0]["match_key"])

	resp, err = h.query.RunTool(context.Background(), "partnerships_over", map[string]interface{}{"threshold": 30}, "")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{int64(120), int64(40), int64(30)}, column(resp.Result.Rows, "runs"))
}

func TestMostWinsAndPointsTable(t *testing.T) {
	h := newHarness(t)
	h.loadSeason(t)
	ctx := context.Background()

	resp, err := h.query.RunTool(ctx, "most_wins_by_team", map[string]interface{}{"season": 2019}, "")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{csk, mi, rcb}, column(resp.Result.Rows, "team"))
	assert.Equal(t, []interface{}{int64(2), int64(1), int64(1)}, column(resp.Result.Rows, "wins"))

	resp, err = h.query.RunTool(ctx, "points_table", map[string]interface{}{"season": "2019"}, "")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{csk, rcb, mi, kkr}, column(resp.Result.Rows, "team"))
	assert.Equal(t, []interface{}{int64(4), int64(3), int64(2), int64(1)}, column(resp.Result.Rows, "points"))
}

func TestAdhocSQL(t *testing.T) {
	h := newHarness(t)
	h.loadSeason(t)
	ctx := context.Background()

	resp, err := h.query.RunSQL(ctx, "SELECT name FROM teams ORDER BY name;", "")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{csk, kkr, mi, rcb}, column(resp.Result.Rows, "name"))

	_, err = h.query.RunSQL(ctx, "DELETE FROM teams", "")
	assert.True(t, apperr.Is(err, apperr.KindInvalidOperation))
	_, err = h.query.RunSQL(ctx, "SELECT * FROM no_such_table", "")
	assert.True(t, apperr.Is(err, apperr.KindInvalidOperation))

	var n int64
	require.NoError(t, h.db.Model(&model.Team{}).Count(&n).Error)
	assert.Equal(t, int64(4), n)
}

func TestRunawaySQLLeavesCatalogAvailable(t *testing.T) {
	h := newHarness(t, func(c *config.QueryConfig) {
		c.Timeout = 50 * time.Millisecond
		c.MaxRetries = 3
		c.Breaker = config.BreakerConfig{ConsecutiveFailures: 3, OpenTimeout: time.Minute}
	})
	h.loadSeason(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := h.query.RunSQL(ctx, "WITH RECURSIVE c(x) AS (SELECT 1 UNION ALL SELECT x+1 FROM c) SELECT count(*) FROM c", "")
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindInvalidOperation), err.Error())
		assert.ErrorIs(t, err, executor.ErrQueryTimeout)
	}

	resp, err := h.query.RunTool(ctx, "most_wins_by_team", nil, "")
	require.NoError(t, err)
	assert.Equal(t, []interface{}{csk, mi, rcb}, column(resp.Result.Rows, "team"))
}

func TestSchemaGuide(t *testing.T) {
	h := newHarness(t)
	h.loadSeason(t)

	guide, err := h.query.SchemaGuide(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2019, guide.FirstYear)
	assert.Equal(t, 2019, guide.LastYear)
	assert.Contains(t, guide.Tools, "head_to_head")
	assert.Len(t, guide.Tools, len(h.query.ListTools()))
	for _, tc := range guide.Tables {
		if tc.Table == "matches" {
			assert.Equal(t, int64(5), tc.Rows)
		}
	}
}

func TestIngestTwiceKeepsCounts(t *testing.T) {
	h := newHarness(t)
	h.loadSeason(t)
	once := dbtest.Counts(t, h.db)

	report := h.load(t)
	assert.Equal(t, 5, report.Unchanged)
	assert.Equal(t, once, dbtest.Counts(t, h.db))
}

func TestMalformedRecordLeavesCountsUnchanged(t *testing.T) {
	h := newHarness(t)
	h.loadSeason(t)
	before := dbtest.Counts(t, h.db)

	bad := seasonFixture()["m1"]
	bad.Date = "2019-05-01"
	// 出局球员不是当前两名击球手之一
	bad.Innings[0].Overs[0][2].Out = "MS Dhoni"
	h.write(t, "m6.json", bad.JSON())

	report := h.load(t)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 5, report.Unchanged)
	assert.Equal(t, before, dbtest.Counts(t, h.db))
}

func TestConcurrentIngestIsRejected(t *testing.T) {
	h := newHarness(t)
	h.ingest.mu.Lock()
	_, err := h.ingest.RunSource(context.Background(), nil)
	h.ingest.mu.Unlock()
	assert.ErrorIs(t, err, ErrIngestRunning)

	h.write(t, "m1.json", seasonFixture()["m1"].JSON())
	assert.Equal(t, 1, h.load(t).Inserted)
}
