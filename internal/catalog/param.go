package catalog

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"CricketSync/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

type ParamKind string

const (
	ParamInt    ParamKind = "int"
	ParamString ParamKind = "string"
	// ParamTeam 绑定后为球队名称，执行前由执行器解析为 model.TeamRef
	ParamTeam   ParamKind = "team"
	ParamSeason ParamKind = "season"
)

// Param 操作参数声明。Rules 为 validator 规则串，如 "min=1,max=50"
type Param struct {
	Name        string      `json:"name"`
	Kind        ParamKind   `json:"kind"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
	Rules       string      `json:"rules,omitempty"`
}

const seasonRules = "min=2000,max=2100"

func limitParam(def, max int) Param {
	return Param{
		Name:        "limit",
		Kind:        ParamInt,
		Description: fmt.Sprintf("返回行数，1-%d", max),
		Default:     def,
		Rules:       fmt.Sprintf("min=1,max=%d", max),
	}
}

func seasonParam(required bool) Param {
	return Param{
		Name:        "season",
		Kind:        ParamSeason,
		Description: "赛季年份，如 2019",
		Required:    required,
		Rules:       seasonRules,
	}
}

func teamParam(name, desc string) Param {
	return Param{
		Name:        name,
		Kind:        ParamTeam,
		Description: desc,
		Required:    true,
		Rules:       "max=128",
	}
}

// Args 已绑定的参数
type Args map[string]interface{}

func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

func (a Args) Int(name string) int {
	v, _ := a[name].(int)
	return v
}

func (a Args) String(name string) string {
	v, _ := a[name].(string)
	return v
}

// Team 已解析的球队；未解析时只有名称
func (a Args) Team(name string) model.TeamRef {
	switch v := a[name].(type) {
	case model.TeamRef:
		return v
	case string:
		return model.TeamRef{Name: v}
	}
	return model.TeamRef{}
}

var validate = validator.New()

func bindParam(p Param, raw interface{}) (interface{}, error) {
	var (
		v   interface{}
		err error
	)
	switch p.Kind {
	case ParamInt, ParamSeason:
		v, err = decodeInt(raw)
	default:
		v, err = decodeString(raw)
	}
	if err != nil {
		return nil, err
	}
	if p.Rules != "" {
		if err := validate.Var(v, p.Rules); err != nil {
			return nil, ruleError(v, err)
		}
	}
	return v, nil
}

func decodeInt(raw interface{}) (int, error) {
	switch x := raw.(type) {
	case bool:
		return 0, errors.New("需要整数，实际为布尔值")
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("需要整数，实际为%v", x)
		}
	case float32:
		if float64(x) != math.Trunc(float64(x)) {
			return 0, fmt.Errorf("需要整数，实际为%v", x)
		}
	case string:
		raw = strings.TrimSpace(x)
	}
	var out int
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{WeaklyTypedInput: true, Result: &out})
	if err != nil {
		return 0, err
	}
	if err := dec.Decode(raw); err != nil {
		return 0, fmt.Errorf("需要整数，实际为%v", raw)
	}
	return out, nil
}

func decodeString(raw interface{}) (string, error) {
	var out string
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{WeaklyTypedInput: true, Result: &out})
	if err != nil {
		return "", err
	}
	if err := dec.Decode(raw); err != nil {
		return "", fmt.Errorf("需要字符串，实际为%T", raw)
	}
	return strings.TrimSpace(out), nil
}

func ruleError(v interface{}, err error) error {
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		fe := ves[0]
		if fe.Param() != "" {
			return fmt.Errorf("值%v不满足约束 %s=%s", v, fe.Tag(), fe.Param())
		}
		return fmt.Errorf("值%v不满足约束 %s", v, fe.Tag())
	}
	return err
}

func isBlank(raw interface{}) bool {
	if raw == nil {
		return true
	}
	s, ok := raw.(string)
	return ok && strings.TrimSpace(s) == ""
}
