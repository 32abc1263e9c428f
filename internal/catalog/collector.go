package catalog

import (
	"fmt"
	"strconv"
	"time"

	"CricketSync/internal/interfaces"
	"CricketSync/internal/model"
)

// Collector 逐行接收查询结果。Add 返回 interfaces.ErrStopScan 表示已收集足够的行
type Collector interface {
	Add(row model.Row) error
	Finish() ([]model.Row, []Stat)
}

// Stat 结果摘要项，渲染在表格上方
type Stat struct {
	Label string      `json:"label"`
	Value interface{} `json:"value"`
}

// Result 一次查询的完整结果
type Result struct {
	Operation   string        `json:"operation"`
	Description string        `json:"description"`
	Columns     []Column      `json:"columns"`
	Rows        []model.Row   `json:"rows"`
	Summary     []Stat        `json:"summary,omitempty"`
	Truncated   bool          `json:"truncated"`
	Elapsed     time.Duration `json:"elapsed"`
}

// listCollector 默认收集器：多收一行用于判断是否截断
type listCollector struct {
	max  int
	rows []model.Row
	fn   func(model.Row)
	keep func(model.Row) bool
}

func newListCollector(max int) *listCollector { return &listCollector{max: max} }

// NewListCollector 直接 SQL 使用的收集器
func NewListCollector(max int) Collector { return newListCollector(max) }

func (c *listCollector) Add(row model.Row) error {
	if c.keep != nil && !c.keep(row) {
		return nil
	}
	if c.fn != nil {
		c.fn(row)
	}
	c.rows = append(c.rows, row)
	if len(c.rows) > c.max {
		return interfaces.ErrStopScan
	}
	return nil
}

func (c *listCollector) Finish() ([]model.Row, []Stat) { return c.rows, nil }

// mapCollector 在默认收集器基础上逐行补充派生列
func mapCollector(max int, fn func(model.Row)) Collector {
	return &listCollector{max: max, fn: fn}
}

func asInt(v interface{}) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float64:
		return int64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		n, _ := strconv.ParseInt(x, 10, 64)
		return n
	case []byte:
		n, _ := strconv.ParseInt(string(x), 10, 64)
		return n
	}
	return 0
}

func asString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	}
	return fmt.Sprint(v)
}

// ratio a*scale/b，b 为 0 时返回 nil（渲染为 "-"）
func ratio(a, b int64, scale float64) interface{} {
	if b == 0 {
		return nil
	}
	return float64(a) * scale / float64(b)
}

// oversText 合法球数转回合表示，如 23 球 -> "3.5"
func oversText(legalBalls, ballsPerOver int64) string {
	if ballsPerOver <= 0 {
		ballsPerOver = 6
	}
	return fmt.Sprintf("%d.%d", legalBalls/ballsPerOver, legalBalls%ballsPerOver)
}
