package catalog

import (
	"errors"

	"CricketSync/internal/model"
)

// Default 内置的全部分析操作
func Default() *Catalog {
	return New(
		mostWinsByTeam(),
		topRunScorers(),
		bestBowlingFigures(),
		headToHead(),
		partnershipsOver(),
		venueHighestScoring(),
		recentMatches(),
		seasonMatches(),
		teamMatches(),
		teamPerformance(),
		pointsTable(),
		topWicketTakers(),
		powerplayEconomy(),
		playerBatting(),
		playerBowling(),
		matchScorecard(),
		venueStats(),
		seasonSummary(),
		generalStats(),
	)
}

// bowlerWicketKinds 记在投球手名下的出局方式（run out、obstructing the field 等不计）
var bowlerWicketKinds = []string{"bowled", "caught", "caught and bowled", "lbw", "stumped", "hit wicket"}

const (
	// legalBall 不含 wide 与 no-ball 的合法球
	legalBall = "CASE WHEN d.wides = 0 AND d.noballs = 0 THEN 1 ELSE 0 END"
	// facedBall 击球手面对的球（wide 不计）
	facedBall = "CASE WHEN d.wides = 0 THEN 1 ELSE 0 END"
	// concededRuns 记在投球手名下的失分：击球得分 + wide + no-ball，bye/leg-bye 不计
	concededRuns = "d.runs_batter + d.wides + d.noballs"

	// inningsScores 每局总分与出局数（出局含 run out）
	inningsScores = `SELECT i.match_id AS match_id, i.number AS number, bt.name AS team,
    CAST(SUM(d.runs_total) AS BIGINT) AS runs,
    CAST(SUM(CASE WHEN d.dismissed_id IS NOT NULL THEN 1 ELSE 0 END) AS BIGINT) AS wickets
  FROM innings i
  JOIN teams bt ON bt.id = i.batting_team_id
  JOIN deliveries d ON d.innings_id = i.id
  GROUP BY i.match_id, i.number, bt.name`

	firstInningsTotals = `SELECT i.match_id AS match_id, CAST(SUM(d.runs_total) AS BIGINT) AS total
  FROM innings i
  JOIN deliveries d ON d.innings_id = i.id
  WHERE i.number = 1
  GROUP BY i.match_id`

	deliveryJoins = `FROM deliveries d
JOIN innings i ON i.id = d.innings_id
JOIN matches m ON m.id = i.match_id`
)

// tallyCollector 最多保留 maxRows+1 行，但读完全部结果用于汇总
type tallyCollector struct {
	max   int
	rows  []model.Row
	onRow func(model.Row)
	stats func() []Stat
}

func (c *tallyCollector) Add(row model.Row) error {
	c.onRow(row)
	if len(c.rows) <= c.max {
		c.rows = append(c.rows, row)
	}
	return nil
}

func (c *tallyCollector) Finish() ([]model.Row, []Stat) { return c.rows, c.stats() }

func distinctTeams(a, b string) func(Args) error {
	return func(args Args) error {
		ta, tb := args.Team(a), args.Team(b)
		if ta.ID != 0 && ta.ID == tb.ID {
			return errors.New("两支球队不能相同")
		}
		return nil
	}
}
