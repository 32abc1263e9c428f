// Package dbtest 为测试提供已迁移的临时 SQLite 数据库。
package dbtest

import (
	"io"
	"path/filepath"
	"testing"

	"CricketSync/internal/config"
	"CricketSync/internal/database"
	"CricketSync/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// New 在 t.TempDir 下创建并迁移一个 SQLite 库，测试结束时关闭
func New(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "cricket.db"),
		LogLevel: "silent",
	}, QuietLogger())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}

// QuietLogger 丢弃输出的 logger
func QuietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Counts 各表行数
func Counts(t *testing.T, db *gorm.DB) map[string]int64 {
	t.Helper()
	out := make(map[string]int64)
	for _, table := range model.AllTables() {
		var n int64
		require.NoError(t, db.Model(table).Count(&n).Error)
		stmt := &gorm.Statement{DB: db}
		require.NoError(t, stmt.Parse(table))
		out[stmt.Schema.Table] = n
	}
	return out
}
