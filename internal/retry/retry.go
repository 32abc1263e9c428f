// Package retry 对存储调用做有限次数的退避重试。
package retry

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/grafana/dskit/backoff"
	"github.com/jackc/pgconn"
	"github.com/mattn/go-sqlite3"
)

// ErrExhausted 所有尝试均因瞬时故障失败
var ErrExhausted = errors.New("重试次数已用尽")

// Config MaxAttempts 为总尝试次数（含第一次）
type Config struct {
	MaxAttempts int
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
}

// Do 执行 fn，瞬时故障按退避重试，其它错误立即返回。
// onRetry 在每次重试前调用，attempt 从 1 开始。
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error, onRetry func(attempt int, err error)) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = time.Millisecond
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = cfg.MinBackoff
	}
	b := backoff.New(ctx, backoff.Config{
		MinBackoff: cfg.MinBackoff,
		MaxBackoff: cfg.MaxBackoff,
		MaxRetries: cfg.MaxAttempts,
	})

	var lastErr error
	for b.Ongoing() {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		lastErr = err
		if b.NumRetries()+1 < cfg.MaxAttempts && onRetry != nil {
			onRetry(b.NumRetries()+1, err)
		}
		b.Wait()
	}
	if lastErr == nil {
		return b.Err()
	}
	return fmt.Errorf("%w（共%d次）: %w", ErrExhausted, b.NumRetries(), lastErr)
}

// IsTransient 判断是否为可重试的连接类/超时类故障
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrExhausted) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientSQLState(pgErr.Code)
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// transientSQLState 08 连接异常、53 资源不足、57P 管理员中断、40001/40P01 串行化冲突与死锁
func transientSQLState(code string) bool {
	switch {
	case len(code) < 2:
		return false
	case code[:2] == "08", code[:2] == "53":
		return true
	case code == "57P01", code == "57P02", code == "57P03":
		return true
	case code == "40001", code == "40P01":
		return true
	}
	return false
}
