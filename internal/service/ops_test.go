package service

import (
	"context"
	"testing"

	"CricketSync/internal/catalog"
	"CricketSync/internal/model"
	tf "CricketSync/internal/testfixture"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	eden      = "Eden Gardens"
	wankhede  = "Wankhede Stadium"
	bengaluru = "M Chinnaswamy Stadium"
)

// statsFixture 2020 赛季五场比赛，覆盖额外跑分、run out、超级回合与多个场地。
//
// x1 KKR 14/2 对 MI 3/2：Bumrah 1/12（含 1 个 wide、2 个 bye、一次 run out），Narine 2/3。
// x4 为平局，超级回合里 Dhoni 与 Jadeja 搭档 30 分，Bumrah 在超级回合拿下 1 个出局。
func statsFixture() map[string]tf.Match {
	return map[string]tf.Match{
		"x1": {
			Season: 2020, Date: "2020-04-01", Venue: eden, City: "Kolkata", Teams: [2]string{kkr, mi},
			Winner: kkr, ByRuns: 11, PlayerOfMatch: []string{"SP Narine"},
			Innings: []tf.Innings{
				{Team: kkr, Overs: [][]tf.Ball{{
					tf.Dot("Shubman Gill", "CA Lynn", "JJ Bumrah", 4),
					{Batter: "Shubman Gill", NonStriker: "CA Lynn", Bowler: "JJ Bumrah", Wides: 1},
					{Batter: "Shubman Gill", NonStriker: "CA Lynn", Bowler: "JJ Bumrah", Byes: 2},
					{Batter: "Shubman Gill", NonStriker: "CA Lynn", Bowler: "JJ Bumrah", Kind: "bowled", Out: "Shubman Gill"},
					{Batter: "AD Russell", NonStriker: "CA Lynn", Bowler: "JJ Bumrah", Runs: 1, Kind: "run out", Out: "CA Lynn"},
					tf.Dot("AD Russell", "KD Karthik", "JJ Bumrah", 6),
					tf.Dot("AD Russell", "KD Karthik", "JJ Bumrah", 0),
				}}},
				{Team: mi, Overs: [][]tf.Ball{append(tf.Over("RG Sharma", "Q de Kock", "SP Narine", 1, 0, 0),
					tf.Ball{Batter: "RG Sharma", NonStriker: "Q de Kock", Bowler: "SP Narine", Out: "RG Sharma", Fielder: "KD Karthik"},
					tf.Ball{Batter: "SA Yadav", NonStriker: "Q de Kock", Bowler: "SP Narine", Kind: "lbw", Out: "SA Yadav"},
					tf.Dot("KA Pollard", "Q de Kock", "SP Narine", 2),
				)}},
			},
		},
		"x2": {
			Season: 2020, Date: "2020-04-08", Venue: eden, City: "Kolkata", Teams: [2]string{kkr, rcb},
			Winner: rcb, ByWickets: 10,
			Innings: []tf.Innings{
				{Team: kkr, Overs: [][]tf.Ball{tf.Over("Shubman Gill", "CA Lynn", "YS Chahal", 6, 6, 1, 0, 0, 0)}},
				{Team: rcb, Overs: [][]tf.Ball{tf.Over("V Kohli", "AB de Villiers", "SP Narine", 6, 6, 2)}},
			},
		},
		"x3": {
			Season: 2020, Date: "2020-04-15", Venue: wankhede, City: "Mumbai", Teams: [2]string{mi, csk},
			Winner: mi, ByRuns: 20,
			Innings: []tf.Innings{
				{Team: mi, Overs: [][]tf.Ball{tf.Over("RG Sharma", "Q de Kock", "DL Chahar", 6, 6, 6, 6, 6, 6)}},
				{Team: csk, Overs: [][]tf.Ball{tf.Over("MS Dhoni", "RA Jadeja", "JJ Bumrah", 4, 4, 4, 4)}},
			},
		},
		"x4": {
			Season: 2020, Date: "2020-04-22", Venue: wankhede, City: "Mumbai", Teams: [2]string{csk, mi},
			Result: "tie",
			Innings: []tf.Innings{
				{Team: csk, Overs: [][]tf.Ball{tf.Over("SR Watson", "F du Plessis", "JJ Bumrah", 2, 2)}},
				{Team: mi, Overs: [][]tf.Ball{tf.Over("RG Sharma", "Q de Kock", "DL Chahar", 2, 2)}},
				{Team: csk, SuperOver: true, Overs: [][]tf.Ball{append(tf.Over("MS Dhoni", "RA Jadeja", "JJ Bumrah", 6, 6, 6, 6, 6),
					tf.Ball{Batter: "MS Dhoni", NonStriker: "RA Jadeja", Bowler: "JJ Bumrah", Kind: "bowled", Out: "MS Dhoni"},
				)}},
				{Team: mi, SuperOver: true, Overs: [][]tf.Ball{tf.Over("KA Pollard", "HH Pandya", "DL Chahar", 1)}},
			},
		},
		"x5": {
			Season: 2020, Date: "2020-05-01", Venue: bengaluru, City: "Bengaluru", Teams: [2]string{rcb, csk},
			Winner: rcb, ByRuns: 23,
			Innings: []tf.Innings{
				{Team: rcb, Overs: [][]tf.Ball{tf.Over("V Kohli", "AB de Villiers", "Imran Tahir", 4, 4, 4, 4, 4, 4)}},
				{Team: csk, Overs: [][]tf.Ball{tf.Over("SR Watson", "F du Plessis", "YS Chahal", 1)}},
			},
		},
	}
}

func (h *harness) loadStats(t *testing.T) {
	t.Helper()
	for key, m := range statsFixture() {
		h.write(t, key+".json", m.JSON())
	}
	report := h.load(t)
	require.Equal(t, 5, report.Inserted)
	require.Equal(t, 0, report.Failed)
}

func (h *harness) run(t *testing.T, op string, raw map[string]interface{}) *catalog.Result {
	t.Helper()
	resp, err := h.query.RunTool(context.Background(), op, raw, "")
	require.NoError(t, err, op)
	return resp.Result
}

func TestBestBowlingFiguresCountsOnlyBowlerWickets(t *testing.T) {
	h := newHarness(t)
	h.loadStats(t)

	res := h.run(t, "best_bowling_figures", map[string]interface{}{"limit": 3, "season": 2020})
	rows := res.Rows
	assert.Equal(t, []interface{}{"SP Narine", "JJ Bumrah", "YS Chahal"}, column(rows, "bowler"))
	// Bumrah：wide 计入失分，bye 不计；run out 不算投球手出局
	assert.Equal(t, []interface{}{"2/3", "1/12", "0/1"}, column(rows, "figures"))
	assert.Equal(t, []interface{}{"1.0", "1.0", "0.1"}, column(rows, "overs"))
	assert.Equal(t, []interface{}{mi, kkr, csk}, column(rows, "against"))
	assert.Equal(t, "x1", rows[1]["match_key"])
}

func TestTopWicketTakersSkipRunOutsAndSuperOvers(t *testing.T) {
	h := newHarness(t)
	h.loadStats(t)

	rows := h.run(t, "top_wicket_takers", map[string]interface{}{"limit": 5}).Rows
	assert.Equal(t, []interface{}{"SP Narine", "JJ Bumrah", "YS Chahal", "Imran Tahir", "DL Chahar"}, column(rows, "bowler"))
	assert.Equal(t, []interface{}{int64(2), int64(1), int64(0), int64(0), int64(0)}, column(rows, "wickets"))
	assert.Equal(t, []interface{}{int64(17), int64(32), int64(14), int64(24), int64(40)}, column(rows, "runs_conceded"))
	assert.Equal(t, "2.0", rows[1]["overs"])
	assert.InDelta(t, 16.0, rows[1]["economy"], 1e-9)
	assert.Nil(t, rows[2]["average"])
}

func TestPowerplayEconomy(t *testing.T) {
	h := newHarness(t)
	h.loadStats(t)

	rows := h.run(t, "powerplay_economy", map[string]interface{}{"min_balls": 9}).Rows
	assert.Equal(t, []interface{}{"SP Narine", "JJ Bumrah"}, column(rows, "bowler"))
	assert.Equal(t, []interface{}{int64(9), int64(12)}, column(rows, "legal_balls"))
	assert.InDelta(t, 17.0*6/9, rows[0]["economy"], 1e-9)
	assert.InDelta(t, 16.0, rows[1]["economy"], 1e-9)

	assert.Empty(t, h.run(t, "powerplay_economy", map[string]interface{}{"min_balls": 13}).Rows)
}

func TestPlayerBatting(t *testing.T) {
	h := newHarness(t)
	h.loadStats(t)

	rows := h.run(t, "player_batting", map[string]interface{}{"player": "rg sharma"}).Rows
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, "RG Sharma", r["player"])
	assert.Equal(t, int64(3), r["innings"])
	assert.Equal(t, int64(41), r["runs"])
	assert.Equal(t, int64(12), r["balls"])
	assert.Equal(t, int64(36), r["highest"])
	assert.Equal(t, int64(1), r["outs"])
	assert.Equal(t, int64(6), r["sixes"])
	assert.InDelta(t, 41.0, r["average"], 1e-9)

	// 只做过非击球端、在 x1 被 run out
	rows = h.run(t, "player_batting", map[string]interface{}{"player": "CA Lynn"}).Rows
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0]["innings"])
	assert.Equal(t, int64(0), rows[0]["balls"])
	assert.Equal(t, int64(1), rows[0]["outs"])
	assert.Nil(t, rows[0]["strike_rate"])

	assert.Empty(t, h.run(t, "player_batting", map[string]interface{}{"player": "Nobody"}).Rows)
}

func TestPlayerBowling(t *testing.T) {
	h := newHarness(t)
	h.loadStats(t)

	rows := h.run(t, "player_bowling", map[string]interface{}{"player": "jj bumrah", "season": 2020}).Rows
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, "JJ Bumrah", r["bowler"])
	assert.Equal(t, int64(3), r["matches"])
	assert.Equal(t, "2.0", r["overs"])
	assert.Equal(t, int64(32), r["runs_conceded"])
	assert.Equal(t, int64(1), r["wickets"])
	assert.Equal(t, int64(1), r["best_wickets"])
	assert.InDelta(t, 16.0, r["economy"], 1e-9)
	assert.InDelta(t, 12.0, r["strike_rate"], 1e-9)
	assert.InDelta(t, 200.0/12, r["dot_pct"], 1e-9)

	assert.Empty(t, h.run(t, "player_bowling", map[string]interface{}{"player": "JJ Bumrah", "season": 2019}).Rows)
}

func TestPartnershipsIgnoreSuperOvers(t *testing.T) {
	h := newHarness(t)
	h.loadStats(t)

	rows := h.run(t, "partnerships_over", map[string]interface{}{"threshold": 30}).Rows
	require.Len(t, rows, 1)
	assert.Equal(t, int64(36), rows[0]["runs"])
	assert.Equal(t, "x3", rows[0]["match_key"])
}

func TestTeamMatchesShowInningsScores(t *testing.T) {
	h := newHarness(t)
	h.loadStats(t)

	res := h.run(t, "team_matches", map[string]interface{}{"team": "CSK", "season": 2020})
	assert.Equal(t, []interface{}{"x5", "x4", "x3"}, column(res.Rows, "match_key"))
	assert.Equal(t, []interface{}{
		"Royal Challengers Bangalore 24/0",
		"Chennai Super Kings 4/0",
		"Mumbai Indians 36/0",
	}, column(res.Rows, "first_innings"))
	assert.Equal(t, "Chennai Super Kings 16/0", res.Rows[2]["second_innings"])
	assert.Equal(t, []catalog.Stat{
		{Label: "比赛", Value: int64(3)},
		{Label: "胜", Value: int64(0)},
		{Label: "负", Value: int64(2)},
		{Label: "无结果", Value: int64(1)},
	}, res.Summary)

	rows := h.run(t, "recent_matches", map[string]interface{}{"limit": 5}).Rows
	assert.Equal(t, "Kolkata Knight Riders 14/2", rows[4]["first_innings"])
	assert.Equal(t, "Mumbai Indians 3/2", rows[4]["second_innings"])
}

func TestTeamPerformance(t *testing.T) {
	h := newHarness(t)
	h.loadStats(t)

	rows := h.run(t, "team_performance", map[string]interface{}{"season": 2020}).Rows
	assert.Equal(t, []interface{}{rcb, kkr, mi, csk}, column(rows, "team"))
	assert.Equal(t, []interface{}{int64(2), int64(2), int64(3), int64(3)}, column(rows, "played"))
	assert.InDelta(t, 100.0, rows[0]["win_pct"], 1e-9)
	assert.InDelta(t, 50.0, rows[1]["win_pct"], 1e-9)

	rows = h.run(t, "team_performance", map[string]interface{}{"team": "mi"}).Rows
	require.Len(t, rows, 1)
	assert.Equal(t, model.Row{
		"team": mi, "played": int64(3), "won": int64(1), "lost": int64(1), "no_result": int64(1),
		"points": int64(3), "win_pct": rows[0]["win_pct"],
	}, rows[0])
	assert.InDelta(t, 100.0/3, rows[0]["win_pct"], 1e-9)
}

func TestVenueHighestScoringMinMatches(t *testing.T) {
	h := newHarness(t)
	h.loadStats(t)

	assert.Empty(t, h.run(t, "venue_highest_scoring", nil).Rows)

	rows := h.run(t, "venue_highest_scoring", map[string]interface{}{"min_matches": 2}).Rows
	assert.Equal(t, []interface{}{wankhede, eden}, column(rows, "venue"))
	assert.Equal(t, []interface{}{"Mumbai", "Kolkata"}, column(rows, "city"))
	assert.InDelta(t, 20.0, rows[0]["avg_first_innings"], 1e-9)
	assert.Equal(t, int64(36), rows[0]["highest_first_innings"])
	assert.InDelta(t, 13.5, rows[1]["avg_first_innings"], 1e-9)

	rows = h.run(t, "venue_highest_scoring", map[string]interface{}{"min_matches": 1, "limit": 1}).Rows
	assert.Equal(t, []interface{}{bengaluru}, column(rows, "venue"))
}

func TestVenueStats(t *testing.T) {
	h := newHarness(t)
	h.loadStats(t)

	rows := h.run(t, "venue_stats", map[string]interface{}{"venue": "EDEN"}).Rows
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, eden, r["venue"])
	assert.Equal(t, int64(2), r["matches"])
	assert.InDelta(t, 13.5, r["avg_first_innings"], 1e-9)
	assert.Equal(t, int64(14), r["highest_first_innings"])
	assert.Equal(t, int64(1), r["defended"])
	assert.Equal(t, int64(1), r["chased"])

	assert.Empty(t, h.run(t, "venue_stats", map[string]interface{}{"venue": "Lord's"}).Rows)
}

func TestSeasonSummary(t *testing.T) {
	h := newHarness(t)
	h.loadStats(t)

	rows := h.run(t, "season_summary", map[string]interface{}{"season": 2020}).Rows
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, int64(5), r["matches"])
	assert.Equal(t, int64(3), r["venues"])
	assert.Equal(t, int64(160), r["runs"])
	assert.Equal(t, int64(5), r["wickets"])
	assert.Equal(t, int64(11), r["fours"])
	assert.Equal(t, int64(16), r["sixes"])
	assert.Equal(t, rcb, r["last_match_winner"])

	assert.Empty(t, h.run(t, "season_summary", map[string]interface{}{"season": 2019}).Rows)
}

func TestMatchScorecard(t *testing.T) {
	h := newHarness(t)
	h.loadStats(t)

	rows := h.run(t, "match_scorecard", map[string]interface{}{"team_a": "KKR", "team_b": "MI"}).Rows
	require.Len(t, rows, 2)
	assert.Equal(t, []interface{}{kkr, mi}, column(rows, "team"))
	assert.Equal(t, []interface{}{"14/2", "3/2"}, column(rows, "score"))
	assert.Equal(t, []interface{}{"1.0", "1.0"}, column(rows, "overs"))
	assert.InDelta(t, 14.0, rows[0]["run_rate"], 1e-9)
	assert.Equal(t, kkr, rows[0]["winner"])
	assert.Equal(t, "11 runs", rows[0]["margin"])
	assert.Equal(t, "SP Narine", rows[0]["player_of_match"])

	// 默认只取最近一场，超级回合不列出
	rows = h.run(t, "match_scorecard", map[string]interface{}{"team_a": "CSK", "team_b": "MI"}).Rows
	assert.Equal(t, []interface{}{int64(1), int64(2)}, column(rows, "innings"))
	assert.Equal(t, []interface{}{"x4", "x4"}, column(rows, "match_key"))
	assert.Nil(t, rows[0]["winner"])
	assert.Nil(t, rows[0]["player_of_match"])

	rows = h.run(t, "match_scorecard", map[string]interface{}{"team_a": "CSK", "date": "2020-04-15"}).Rows
	assert.Equal(t, []interface{}{"36/0", "16/0"}, column(rows, "score"))

	rows = h.run(t, "match_scorecard", map[string]interface{}{"team_a": "CSK", "limit": 3}).Rows
	assert.Equal(t, []interface{}{"x5", "x5", "x4", "x4", "x3", "x3"}, column(rows, "match_key"))
}
