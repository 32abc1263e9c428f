// Package format 把查询结果渲染为文本：类 MySQL 客户端的表格，或逐行叙述。
package format

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"CricketSync/internal/catalog"
	"CricketSync/internal/model"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

type Style string

const (
	StyleTable     Style = "table"
	StyleNarrative Style = "narrative"
)

// Options MaxChars <= 0 表示不限制长度
type Options struct {
	Style    Style
	MaxChars int
}

const nullText = "-"

var flatten = strings.NewReplacer("\r\n", " ", "\n", " ", "\t", " ")

// width 固定按非东亚环境计算宽度，输出不随 LANG 变化
var width = func() *runewidth.Condition {
	c := runewidth.NewCondition()
	c.EastAsianWidth = false
	return c
}()

// ParseStyle 空串按表格处理
func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case "", StyleTable:
		return StyleTable, nil
	case StyleNarrative:
		return StyleNarrative, nil
	}
	return "", fmt.Errorf("不支持的输出格式: %s", s)
}

// Render 超过 MaxChars 时从末尾逐行丢弃并注明未显示的行数
func Render(res *catalog.Result, opts Options) string {
	render := renderTable
	if opts.Style == StyleNarrative {
		render = renderNarrative
	}

	out := render(res, len(res.Rows))
	if opts.MaxChars <= 0 || utf8.RuneCountInString(out) <= opts.MaxChars {
		return out
	}
	for n := len(res.Rows) - 1; n >= 0; n-- {
		out = render(res, n)
		if utf8.RuneCountInString(out) <= opts.MaxChars {
			return out
		}
	}
	return omitted(res, opts.MaxChars)
}

// omitted 连零行输出都放不下时只给出省略说明，不输出半行表格
func omitted(res *catalog.Result, max int) string {
	var b strings.Builder
	writeTruncation(&b, res, 0)
	if b.Len() == 0 {
		b.WriteString("... (输出过长，已省略)\n")
	}
	out := b.String()
	if utf8.RuneCountInString(out) <= max {
		return out
	}
	line, _, _ := strings.Cut(out, "\n")
	return cutRunes(line, max)
}

func renderTable(res *catalog.Result, shown int) string {
	var b strings.Builder
	if line := summaryLine(res.Summary); line != "" {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if len(res.Rows) == 0 {
		b.WriteString("Empty set\n")
		return b.String()
	}

	rows := res.Rows[:shown]
	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = make([]string, len(res.Columns))
		for j, col := range res.Columns {
			cells[i][j] = cell(col, row[col.Name])
		}
	}
	widths := make([]int, len(res.Columns))
	right := make([]bool, len(res.Columns))
	for j, col := range res.Columns {
		widths[j] = width.StringWidth(col.Label)
		for i := range cells {
			if w := width.StringWidth(cells[i][j]); w > widths[j] {
				widths[j] = w
			}
		}
		right[j] = rightAligned(col, rows)
	}

	border := borderLine(widths)
	b.WriteString(border)
	labels := make([]string, len(res.Columns))
	for j, col := range res.Columns {
		labels[j] = col.Label
	}
	b.WriteString(rowLine(labels, widths, nil))
	b.WriteString(border)
	for _, c := range cells {
		b.WriteString(rowLine(c, widths, right))
	}
	b.WriteString(border)

	if shown == 1 {
		b.WriteString("1 row in set\n")
	} else {
		fmt.Fprintf(&b, "%s rows in set\n", humanize.Comma(int64(shown)))
	}
	writeTruncation(&b, res, shown)
	return b.String()
}

func renderNarrative(res *catalog.Result, shown int) string {
	var b strings.Builder
	if res.Description != "" {
		b.WriteString(res.Description)
		b.WriteByte('\n')
	}
	if line := summaryLine(res.Summary); line != "" {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if len(res.Rows) == 0 {
		b.WriteString("没有符合条件的结果\n")
		return b.String()
	}
	for i, row := range res.Rows[:shown] {
		parts := make([]string, 0, len(res.Columns))
		for _, col := range res.Columns {
			v := cell(col, row[col.Name])
			if v != nullText && col.Unit != "" {
				v += col.Unit
			}
			parts = append(parts, col.Label+": "+v)
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.Join(parts, "，"))
	}
	writeTruncation(&b, res, shown)
	return b.String()
}

func writeTruncation(b *strings.Builder, res *catalog.Result, shown int) {
	if hidden := len(res.Rows) - shown; hidden > 0 {
		fmt.Fprintf(b, "... (输出过长，另有 %s 行未显示)\n", humanize.Comma(int64(hidden)))
	}
	if res.Truncated {
		fmt.Fprintf(b, "... (结果已截断，仅返回前 %s 行)\n", humanize.Comma(int64(len(res.Rows))))
	}
}

func borderLine(widths []int) string {
	var b strings.Builder
	b.WriteByte('+')
	for _, w := range widths {
		b.WriteString(strings.Repeat("-", w+2))
		b.WriteByte('+')
	}
	b.WriteByte('\n')
	return b.String()
}

func rowLine(values []string, widths []int, right []bool) string {
	var b strings.Builder
	b.WriteByte('|')
	for j, v := range values {
		b.WriteByte(' ')
		if right != nil && right[j] {
			b.WriteString(width.FillLeft(v, widths[j]))
		} else {
			b.WriteString(width.FillRight(v, widths[j]))
		}
		b.WriteString(" |")
	}
	b.WriteByte('\n')
	return b.String()
}

func summaryLine(stats []catalog.Stat) string {
	if len(stats) == 0 {
		return ""
	}
	parts := make([]string, len(stats))
	for i, s := range stats {
		parts[i] = s.Label + ": " + value(s.Value, 2)
	}
	return strings.Join(parts, " | ")
}

// rightAligned 数值列右对齐；直接 SQL 的列看实际取值
func rightAligned(col catalog.Column, rows []model.Row) bool {
	switch col.Kind {
	case catalog.ColInt, catalog.ColFloat:
		return true
	case catalog.ColAuto:
		numeric := false
		for _, row := range rows {
			switch row[col.Name].(type) {
			case nil:
			case int, int32, int64, uint64, float32, float64:
				numeric = true
			default:
				return false
			}
		}
		return numeric
	}
	return false
}

func cell(col catalog.Column, v interface{}) string {
	if v == nil {
		return nullText
	}
	var s string
	switch col.Kind {
	case catalog.ColInt:
		n, err := cast.ToInt64E(v)
		if err != nil {
			s = cast.ToString(v)
		} else {
			s = cast.ToString(n)
		}
	case catalog.ColFloat:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			s = cast.ToString(v)
		} else {
			s = decimal.NewFromFloat(f).StringFixed(col.Precision)
		}
	case catalog.ColDate:
		if t, ok := v.(time.Time); ok {
			s = t.Format("2006-01-02")
		} else {
			s = cast.ToString(v)
		}
	case catalog.ColAuto:
		s = value(v, 4)
	default:
		s = cast.ToString(v)
	}
	return flatten.Replace(s)
}

// value 无列语义时按取值类型格式化，浮点最多保留 places 位
func value(v interface{}, places int32) string {
	switch x := v.(type) {
	case nil:
		return nullText
	case float64:
		return decimal.NewFromFloat(x).Round(places).String()
	case float32:
		return decimal.NewFromFloat32(x).Round(places).String()
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	case []byte:
		return string(x)
	}
	return cast.ToString(v)
}

func cutRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
