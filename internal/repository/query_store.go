package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"CricketSync/internal/interfaces"
	"CricketSync/internal/model"

	"gorm.io/gorm"
)

type queryStore struct {
	db *gorm.DB
}

// NewQueryStore 只读查询存储：每条语句在只读事务中执行
func NewQueryStore(db *gorm.DB) interfaces.QueryStore {
	return &queryStore{db: db}
}

func (s *queryStore) Query(ctx context.Context, stmt model.Statement, visit func(model.Row) error) ([]string, error) {
	var columns []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		release, err := enterReadOnly(tx)
		if err != nil {
			return err
		}
		defer func() {
			if rerr := release(); err == nil {
				err = rerr
			}
		}()

		rows, err := tx.Raw(stmt.SQL, stmt.Args...).Rows()
		if err != nil {
			return err
		}
		defer rows.Close()

		columns, err = rows.Columns()
		if err != nil {
			return err
		}
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		for rows.Next() {
			if err := rows.Scan(ptrs...); err != nil {
				return fmt.Errorf("读取结果行失败: %w", err)
			}
			row := make(model.Row, len(columns))
			for i, c := range columns {
				row[c] = normalizeValue(values[i])
			}
			if err := visit(row); err != nil {
				if errors.Is(err, interfaces.ErrStopScan) {
					break
				}
				return err
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return columns, nil
}

// enterReadOnly 把当前事务切换为只读，返回退出时需要执行的恢复动作
func enterReadOnly(tx *gorm.DB) (func() error, error) {
	noop := func() error { return nil }
	switch tx.Dialector.Name() {
	case "postgres":
		if err := tx.Exec("SET TRANSACTION READ ONLY").Error; err != nil {
			return noop, err
		}
		return noop, nil
	case "sqlite":
		if err := tx.Exec("PRAGMA query_only = ON").Error; err != nil {
			return noop, err
		}
		return func() error { return tx.Exec("PRAGMA query_only = OFF").Error }, nil
	}
	return noop, nil
}

func normalizeValue(v interface{}) interface{} {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format("2006-01-02 15:04:05")
	case int32:
		return int64(x)
	case int:
		return int64(x)
	case float32:
		return float64(x)
	}
	return v
}
