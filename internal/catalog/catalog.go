// Package catalog 定义封闭的分析操作集合。每个操作声明参数、结果列和查询模板，
// 调用方只能通过声明过的参数影响查询，取值一律作为绑定参数传入。
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"CricketSync/internal/apperr"
	"CricketSync/internal/model"
)

// Operation 一个具名分析操作
type Operation struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Params      []Param  `json:"params"`
	Columns     []Column `json:"columns"`
	// MaxRows 单次最多返回的行数，超出部分截断并标记
	MaxRows int `json:"max_rows"`

	Build func(args Args) model.Statement `json:"-"`
	// NewCollector 为空时使用默认收集器
	NewCollector func(args Args, maxRows int) Collector `json:"-"`
	// Check 球队参数解析后的额外校验
	Check func(args Args) error `json:"-"`
}

// Collector 每次执行（含重试）都需要新的收集器
func (op *Operation) Collector(args Args) Collector {
	if op.NewCollector != nil {
		return op.NewCollector(args, op.MaxRows)
	}
	return newListCollector(op.MaxRows)
}

// TeamParams 需要解析为球队的参数名
func (op *Operation) TeamParams() []string {
	var names []string
	for _, p := range op.Params {
		if p.Kind == ParamTeam {
			names = append(names, p.Name)
		}
	}
	return names
}

type Catalog struct {
	ops map[string]*Operation
}

// New 重名操作直接 panic，操作表在启动时固定
func New(ops ...*Operation) *Catalog {
	c := &Catalog{ops: make(map[string]*Operation, len(ops))}
	for _, op := range ops {
		if _, dup := c.ops[op.Name]; dup {
			panic(fmt.Sprintf("操作%s重复注册", op.Name))
		}
		if op.Build == nil || op.MaxRows <= 0 {
			panic(fmt.Sprintf("操作%s缺少查询模板或行数上限", op.Name))
		}
		c.ops[op.Name] = op
	}
	return c
}

func (c *Catalog) Lookup(name string) (*Operation, bool) {
	op, ok := c.ops[name]
	return op, ok
}

// List 按名称排序
func (c *Catalog) List() []*Operation {
	out := make([]*Operation, 0, len(c.ops))
	for _, op := range c.ops {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *Catalog) names() string {
	names := make([]string, 0, len(c.ops))
	for name := range c.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// Bind 按操作声明校验并转换参数，不访问存储。
// 未知操作、未声明的参数、缺少必填参数、类型或约束不符均返回 invalid_operation。
func (c *Catalog) Bind(name string, raw map[string]interface{}) (*Operation, Args, error) {
	op, ok := c.ops[name]
	if !ok {
		return nil, nil, apperr.Invalid(name, "未知的操作（可用: %s）", c.names())
	}

	declared := make(map[string]bool, len(op.Params))
	for _, p := range op.Params {
		declared[p.Name] = true
	}
	var unknown []string
	for k := range raw {
		if !declared[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, nil, apperr.Invalid(name, "不支持的参数: %s", strings.Join(unknown, ", "))
	}

	args := make(Args, len(op.Params))
	for _, p := range op.Params {
		v, present := raw[p.Name]
		if !present || isBlank(v) {
			if p.Required {
				return nil, nil, apperr.Invalid(name, "缺少必填参数%s", p.Name)
			}
			if p.Default != nil {
				args[p.Name] = p.Default
			}
			continue
		}
		bound, err := bindParam(p, v)
		if err != nil {
			return nil, nil, apperr.Invalid(name, "参数%s不合法: %v", p.Name, err)
		}
		args[p.Name] = bound
	}
	return op, args, nil
}
