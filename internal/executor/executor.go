// Package executor 执行目录中的分析操作与只读直接 SQL：参数绑定、球队解析、
// 带超时与退避的存储调用、熔断，以及结果截断。
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"CricketSync/internal/apperr"
	"CricketSync/internal/catalog"
	"CricketSync/internal/config"
	"CricketSync/internal/interfaces"
	"CricketSync/internal/metrics"
	"CricketSync/internal/model"
	"CricketSync/internal/retry"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

// SQLOperation 直接 SQL 在日志与指标中使用的操作名
const SQLOperation = "sql"

// ErrQueryTimeout 直接 SQL 单次执行超过 query.timeout。不重试，也不计入熔断。
var ErrQueryTimeout = errors.New("查询超时")

type Executor struct {
	catalog *catalog.Catalog
	store   interfaces.QueryStore
	teams   interfaces.TeamFinder
	cfg     config.QueryConfig
	logger  *logrus.Logger
	metrics *metrics.Metrics
	// 目录操作与直接 SQL 各用一个熔断器，失控的直接 SQL 不影响目录查询
	breaker      *gobreaker.CircuitBreaker[[]string]
	adhocBreaker *gobreaker.CircuitBreaker[[]string]
}

func New(cat *catalog.Catalog, store interfaces.QueryStore, teams interfaces.TeamFinder,
	cfg config.QueryConfig, logger *logrus.Logger, m *metrics.Metrics) *Executor {
	e := &Executor{
		catalog: cat,
		store:   store,
		teams:   teams,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
	e.breaker = newBreaker("query-store", cfg.Breaker, logger)
	e.adhocBreaker = newBreaker("adhoc-sql", cfg.Breaker, logger)
	return e
}

func newBreaker(name string, cfg config.BreakerConfig, logger *logrus.Logger) *gobreaker.CircuitBreaker[[]string] {
	failures := cfg.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}
	return gobreaker.NewCircuitBreaker[[]string](gobreaker.Settings{
		Name:    name,
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// 只有存储故障计入熔断，SQL 本身的错误不算
		IsSuccessful: func(err error) bool {
			return err == nil || !retry.IsTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
				Warn("存储熔断状态变化")
		},
	})
}

func (e *Executor) Catalog() *catalog.Catalog { return e.catalog }

// Execute 执行具名操作。参数不合法时不访问存储。
func (e *Executor) Execute(ctx context.Context, name string, raw map[string]interface{}) (*catalog.Result, error) {
	start := time.Now()
	res, err := e.execute(ctx, name, raw)
	e.observe(name, start, res, err)
	return res, err
}

func (e *Executor) execute(ctx context.Context, name string, raw map[string]interface{}) (*catalog.Result, error) {
	op, args, err := e.catalog.Bind(name, raw)
	if err != nil {
		return nil, err
	}
	if err := e.resolveTeams(ctx, op, args); err != nil {
		return nil, err
	}
	if op.Check != nil {
		if err := op.Check(args); err != nil {
			return nil, apperr.Invalid(op.Name, "%v", err)
		}
	}

	stmt := op.Build(args)
	start := time.Now()
	var collector catalog.Collector
	_, err = e.run(ctx, op.Name, stmt, false, func() catalog.Collector {
		collector = op.Collector(args)
		return collector
	})
	if err != nil {
		return nil, e.classify(op.Name, err, apperr.KindInternal)
	}

	rows, stats := collector.Finish()
	res := &catalog.Result{
		Operation:   op.Name,
		Description: op.Description,
		Columns:     op.Columns,
		Summary:     stats,
		Elapsed:     time.Since(start),
	}
	res.Rows, res.Truncated = truncate(rows, op.MaxRows)
	return res, nil
}

// ExecuteSQL 执行单条只读 SQL，列按结果集原样输出
func (e *Executor) ExecuteSQL(ctx context.Context, sql string) (*catalog.Result, error) {
	start := time.Now()
	res, err := e.executeSQL(ctx, sql)
	e.observe(SQLOperation, start, res, err)
	return res, err
}

func (e *Executor) executeSQL(ctx context.Context, sql string) (*catalog.Result, error) {
	stmt, err := catalog.CheckReadOnly(sql)
	if err != nil {
		return nil, err
	}
	maxRows := e.cfg.AdhocMaxRows
	if maxRows <= 0 {
		maxRows = 100
	}

	start := time.Now()
	var collector catalog.Collector
	columns, err := e.run(ctx, SQLOperation, model.Statement{SQL: stmt}, true, func() catalog.Collector {
		collector = catalog.NewListCollector(maxRows)
		return collector
	})
	if err != nil {
		// 语法错误、不存在的表等由调用方修正，归为 invalid_operation
		return nil, e.classify(SQLOperation, err, apperr.KindInvalidOperation)
	}

	rows, _ := collector.Finish()
	res := &catalog.Result{
		Operation: SQLOperation,
		Columns:   catalog.AutoColumns(columns),
		Elapsed:   time.Since(start),
	}
	res.Rows, res.Truncated = truncate(rows, maxRows)
	return res, nil
}

// resolveTeams 把球队参数替换为已解析的 model.TeamRef，找不到时返回 invalid_operation
func (e *Executor) resolveTeams(ctx context.Context, op *catalog.Operation, args catalog.Args) error {
	for _, name := range op.TeamParams() {
		if !args.Has(name) {
			continue
		}
		query := args.String(name)
		var team *model.Team
		err := retry.Do(ctx, e.retryConfig(), func(ctx context.Context) error {
			attemptCtx, cancel := e.attemptContext(ctx)
			defer cancel()
			var ferr error
			team, ferr = e.teams.FindTeam(attemptCtx, query)
			return ferr
		}, e.onRetry(op.Name))
		if err != nil {
			return e.classify(op.Name, err, apperr.KindInternal)
		}
		if team == nil {
			return apperr.Invalid(op.Name, "未知球队: %s", query)
		}
		args[name] = model.TeamRef{ID: team.ID, Name: team.Name}
	}
	return nil
}

// run 每次尝试使用新的收集器，返回结果集列名。
// adhoc 为 true 时走直接 SQL 的熔断器，且单次超时直接以 ErrQueryTimeout 结束。
func (e *Executor) run(ctx context.Context, op string, stmt model.Statement, adhoc bool, newCollector func() catalog.Collector) ([]string, error) {
	cb := e.breaker
	if adhoc {
		cb = e.adhocBreaker
	}
	var columns []string
	err := retry.Do(ctx, e.retryConfig(), func(ctx context.Context) error {
		c := newCollector()
		attemptCtx, cancel := e.attemptContext(ctx)
		defer cancel()
		cols, err := cb.Execute(func() ([]string, error) {
			cols, err := e.store.Query(attemptCtx, stmt, c.Add)
			// 调用方的 ctx 仍有效而本次尝试超时，说明是语句本身跑不完
			if err != nil && adhoc && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w（上限 %s）", ErrQueryTimeout, e.cfg.Timeout)
			}
			return cols, err
		})
		if err != nil {
			return err
		}
		columns = cols
		return nil
	}, e.onRetry(op))
	return columns, err
}

// classify 熔断打开与瞬时故障归为 storage_unavailable，其余按 fallback 归类
func (e *Executor) classify(op string, err error, fallback apperr.Kind) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		e.metrics.BreakerRejected()
		return apperr.Unavailable(op, err)
	case errors.Is(err, ErrQueryTimeout):
		return apperr.Wrap(apperr.KindInvalidOperation, op, err)
	case errors.Is(err, context.Canceled):
		return apperr.Wrap(apperr.KindInternal, op, err)
	case retry.IsTransient(err):
		return apperr.Unavailable(op, err)
	}
	return apperr.Wrap(fallback, op, err)
}

func (e *Executor) retryConfig() retry.Config {
	return retry.Config{
		MaxAttempts: e.cfg.MaxRetries,
		MinBackoff:  e.cfg.MinBackoff,
		MaxBackoff:  e.cfg.MaxBackoff,
	}
}

func (e *Executor) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.cfg.Timeout)
}

func (e *Executor) onRetry(op string) func(int, error) {
	return func(attempt int, err error) {
		e.metrics.StorageRetry("query")
		e.logger.WithError(err).WithFields(logrus.Fields{
			"operation": op,
			"attempt":   attempt,
		}).Warn("查询失败，准备重试")
	}
}

func (e *Executor) observe(op string, start time.Time, res *catalog.Result, err error) {
	elapsed := time.Since(start)
	if err != nil {
		kind := apperr.KindOf(err)
		e.metrics.QueryRequest(op, string(kind), elapsed)
		entry := e.logger.WithError(err).WithFields(logrus.Fields{"operation": op, "kind": kind})
		if kind == apperr.KindInvalidOperation {
			entry.Info("查询请求不合法")
		} else {
			entry.Error("查询失败")
		}
		return
	}
	e.metrics.QueryRequest(op, "ok", elapsed)
	e.logger.WithFields(logrus.Fields{
		"operation": op,
		"rows":      len(res.Rows),
		"truncated": res.Truncated,
		"elapsed":   elapsed.Round(time.Microsecond),
	}).Debug("查询完成")
}

func truncate(rows []model.Row, max int) ([]model.Row, bool) {
	if len(rows) > max {
		return rows[:max], true
	}
	return rows, false
}
