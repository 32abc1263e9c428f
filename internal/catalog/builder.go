package catalog

import (
	"strings"

	"CricketSync/internal/model"
)

// sqlBuilder 拼接固定的 SQL 片段，所有取值都作为绑定参数追加，从不进入 SQL 文本
type sqlBuilder struct {
	sb   strings.Builder
	args []interface{}
}

func (b *sqlBuilder) add(fragment string, args ...interface{}) *sqlBuilder {
	if b.sb.Len() > 0 {
		b.sb.WriteByte('\n')
	}
	b.sb.WriteString(fragment)
	b.args = append(b.args, args...)
	return b
}

// addIf cond 为真时追加片段
func (b *sqlBuilder) addIf(cond bool, fragment string, args ...interface{}) *sqlBuilder {
	if cond {
		b.add(fragment, args...)
	}
	return b
}

// season 有 season 参数时追加 AND <col> = ?
func (b *sqlBuilder) season(args Args, col string) *sqlBuilder {
	return b.addIf(args.Has("season"), "AND "+col+" = ?", args.Int("season"))
}

func (b *sqlBuilder) statement() model.Statement {
	return model.Statement{SQL: b.sb.String(), Args: b.args}
}
