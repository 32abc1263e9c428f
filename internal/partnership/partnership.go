// Package partnership 从投球序列推导击球搭档关系。只在查询时计算，不落库。
package partnership

import "sort"

// Ball 一局内按顺序排列的投球
type Ball struct {
	Striker    string
	NonStriker string
	// Runs 该球总得分（含额外跑分）
	Runs int
	// BatterRuns 击球手本人得分
	BatterRuns int
	Wide       bool
}

// Partnership 同一对击球手连续在场期间的得分。First/Second 按名称排序，
// Start/End 为在输入序列中的下标（闭区间）
type Partnership struct {
	First      string
	Second     string
	Runs       int
	Balls      int
	FirstRuns  int
	SecondRuns int
	Start      int
	End        int
}

// Compute 把一局的投球切分为搭档段：两名击球手组成的无序对发生变化即开始新的一段
func Compute(balls []Ball) []Partnership {
	var out []Partnership
	var cur *Partnership
	for i, b := range balls {
		first, second := pair(b.Striker, b.NonStriker)
		if cur == nil || cur.First != first || cur.Second != second {
			out = append(out, Partnership{First: first, Second: second, Start: i})
			cur = &out[len(out)-1]
		}
		cur.End = i
		cur.Runs += b.Runs
		if !b.Wide {
			cur.Balls++
		}
		if b.Striker == cur.First {
			cur.FirstRuns += b.BatterRuns
		} else {
			cur.SecondRuns += b.BatterRuns
		}
	}
	return out
}

// Over 保留得分不低于 threshold 的搭档，按得分降序（同分按出现顺序）
func Over(ps []Partnership, threshold int) []Partnership {
	var out []Partnership
	for _, p := range ps {
		if p.Runs >= threshold {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Runs > out[j].Runs })
	return out
}

func pair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
