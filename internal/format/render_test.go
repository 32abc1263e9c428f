package format

import (
	"strings"
	"testing"
	"unicode/utf8"

	"CricketSync/internal/catalog"
	"CricketSync/internal/model"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertGolden(t *testing.T, name, got string) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(got))
}

var battingColumns = []catalog.Column{
	{Name: "player", Label: "球员", Kind: catalog.ColText},
	{Name: "runs", Label: "得分", Unit: "分", Kind: catalog.ColInt},
	{Name: "balls", Label: "球数", Unit: "球", Kind: catalog.ColInt},
	{Name: "strike_rate", Label: "击球率", Kind: catalog.ColFloat, Precision: 2},
}

func battingResult() *catalog.Result {
	return &catalog.Result{
		Operation:   "top_run_scorers",
		Description: "击球得分最多的球员",
		Columns:     battingColumns,
		Rows: []model.Row{
			{"player": "V Kohli", "runs": int64(973), "balls": int64(640), "strike_rate": 152.03125},
			{"player": "DA Warner", "runs": int64(848), "balls": int64(559), "strike_rate": 151.7},
			{"player": "Unknown", "runs": int64(0), "balls": int64(0), "strike_rate": nil},
		},
	}
}

func TestRenderTable(t *testing.T) {
	assertGolden(t, "batting_table", Render(battingResult(), Options{Style: StyleTable}))
}

func TestRenderNarrative(t *testing.T) {
	res := battingResult()
	res.Summary = []catalog.Stat{{Label: "合计", Value: int64(3)}, {Label: "平均击球率", Value: 151.86}}
	assertGolden(t, "batting_narrative", Render(res, Options{Style: StyleNarrative}))
}

func TestRenderSummaryAndTruncation(t *testing.T) {
	res := &catalog.Result{
		Operation: "head_to_head",
		Columns: []catalog.Column{
			{Name: "date", Label: "日期", Kind: catalog.ColDate},
			{Name: "team_a", Label: "球队A", Kind: catalog.ColText},
			{Name: "team_b", Label: "球队B", Kind: catalog.ColText},
			{Name: "winner", Label: "胜者", Kind: catalog.ColText},
		},
		Rows: []model.Row{
			{"date": "2019-03-23", "team_a": "Chennai Super Kings", "team_b": "Mumbai Indians", "winner": "Chennai Super Kings"},
			{"date": "2019-04-03", "team_a": "Mumbai Indians", "team_b": "Chennai Super Kings", "winner": "Mumbai Indians"},
			{"date": "2019-05-12", "team_a": "Mumbai Indians", "team_b": "Chennai Super Kings", "winner": nil},
		},
		Summary: []catalog.Stat{
			{Label: "比赛", Value: int64(3)},
			{Label: "Chennai Super Kings", Value: int64(2)},
			{Label: "Mumbai Indians", Value: int64(1)},
			{Label: "无结果", Value: int64(0)},
		},
		Truncated: true,
	}
	assertGolden(t, "head_to_head_table", Render(res, Options{}))
}

func TestRenderAdhocColumns(t *testing.T) {
	res := &catalog.Result{
		Operation: "sql",
		Columns:   catalog.AutoColumns([]string{"name", "matches", "avg"}),
		Rows: []model.Row{
			{"name": "Wankhede Stadium", "matches": int64(12), "avg": 171.33333333},
			{"name": "Eden Gardens", "matches": int64(9), "avg": nil},
		},
	}
	assertGolden(t, "adhoc_table", Render(res, Options{Style: StyleTable}))
}

func TestRenderEmpty(t *testing.T) {
	res := &catalog.Result{Operation: "season_matches", Columns: battingColumns}
	assert.Equal(t, "Empty set\n", Render(res, Options{}))
	assert.Equal(t, "没有符合条件的结果\n", Render(res, Options{Style: StyleNarrative}))

	res.Summary = []catalog.Stat{{Label: "比赛", Value: int64(0)}}
	assert.Equal(t, "比赛: 0\nEmpty set\n", Render(res, Options{}))
}

func TestRenderRespectsMaxChars(t *testing.T) {
	res := battingResult()
	full := Render(res, Options{})
	limit := utf8.RuneCountInString(full) - 1

	out := Render(res, Options{MaxChars: limit})
	assert.LessOrEqual(t, utf8.RuneCountInString(out), limit)
	assert.Contains(t, out, "另有 1 行未显示")
	assert.Contains(t, out, "2 rows in set")
	assert.NotContains(t, out, "Unknown")

	tiny := Render(res, Options{MaxChars: 10})
	assert.Equal(t, "... (输出过长，", tiny)
}

func TestRenderFallsBackToOmissionLine(t *testing.T) {
	venue := catalog.Column{Name: "venue", Label: strings.Repeat("场地名称", 10), Kind: catalog.ColText}
	res := &catalog.Result{
		Operation: "venue_stats",
		Columns:   []catalog.Column{venue},
		Rows: []model.Row{
			{"venue": "M Chinnaswamy Stadium, Bengaluru"},
			{"venue": "Wankhede Stadium, Mumbai"},
		},
	}

	for _, style := range []Style{StyleTable, StyleNarrative} {
		out := Render(res, Options{Style: style, MaxChars: 60})
		assert.Equal(t, "... (输出过长，另有 2 行未显示)\n", out, style)
	}

	res.Truncated = true
	out := Render(res, Options{MaxChars: 60})
	assert.Equal(t, "... (输出过长，另有 2 行未显示)\n... (结果已截断，仅返回前 2 行)\n", out)

	res.Rows = nil
	res.Truncated = false
	res.Summary = []catalog.Stat{{Label: strings.Repeat("总计", 40), Value: int64(1)}}
	assert.Equal(t, "... (输出过长，已省略)\n", Render(res, Options{MaxChars: 60}))
}

func TestCellFlattensNewlines(t *testing.T) {
	col := catalog.Column{Name: "venue", Label: "场地", Kind: catalog.ColText}
	assert.Equal(t, "Eden Gardens Kolkata", cell(col, "Eden Gardens\nKolkata"))
	assert.Equal(t, "-", cell(col, nil))

	out := Render(&catalog.Result{
		Columns: []catalog.Column{col},
		Rows:    []model.Row{{"venue": "a\nb"}},
	}, Options{})
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		require.NotEmpty(t, line)
	}
	assert.Contains(t, out, "1 row in set")
}

func TestParseStyle(t *testing.T) {
	s, err := ParseStyle("")
	require.NoError(t, err)
	assert.Equal(t, StyleTable, s)
	s, err = ParseStyle(" Narrative ")
	require.NoError(t, err)
	assert.Equal(t, StyleNarrative, s)
	_, err = ParseStyle("html")
	assert.Error(t, err)
}
