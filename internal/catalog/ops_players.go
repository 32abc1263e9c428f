package catalog

import (
	"fmt"
	"sort"

	"CricketSync/internal/identity"
	"CricketSync/internal/model"
	"CricketSync/internal/partnership"
)

func topRunScorers() *Operation {
	return &Operation{
		Name:        "top_run_scorers",
		Description: "击球得分最多的球员（不含超级回合）",
		Params:      []Param{limitParam(10, 50), seasonParam(false)},
		Columns: []Column{
			text("player", "球员"),
			integer("runs", "得分", "分"),
			integer("balls", "面对球数", "球"),
			integer("innings", "局数", "局"),
			float("strike_rate", "击球率", 2),
		},
		MaxRows: 50,
		Build: func(a Args) model.Statement {
			b := &sqlBuilder{}
			b.add(`SELECT p.name AS player,
  CAST(SUM(d.runs_batter) AS BIGINT) AS runs,
  CAST(SUM(` + facedBall + `) AS BIGINT) AS balls,
  COUNT(DISTINCT d.innings_id) AS innings
` + deliveryJoins + `
JOIN players p ON p.id = d.striker_id
WHERE i.super_over = FALSE`)
			b.season(a, "m.season_year")
			b.add("GROUP BY p.id, p.name")
			b.add("ORDER BY runs DESC, p.name ASC")
			b.add("LIMIT ?", a.Int("limit"))
			return b.statement()
		},
		NewCollector: func(_ Args, maxRows int) Collector {
			return mapCollector(maxRows, func(row model.Row) {
				row["strike_rate"] = ratio(asInt(row["runs"]), asInt(row["balls"]), 100)
			})
		},
	}
}

func bestBowlingFigures() *Operation {
	return &Operation{
		Name:        "best_bowling_figures",
		Description: "单场最佳投球数据：出局数降序，失分升序",
		Params:      []Param{limitParam(10, 50), seasonParam(false)},
		Columns: []Column{
			text("bowler", "投球手"),
			text("figures", "数据"),
			text("overs", "回合"),
			integer("wickets", "出局", "个"),
			integer("runs_conceded", "失分", "分"),
			text("against", "对手"),
			date("date", "日期"),
			text("match_key", "比赛"),
		},
		MaxRows: 50,
		Build: func(a Args) model.Statement {
			b := &sqlBuilder{}
			b.add(`SELECT p.name AS bowler, bt.name AS against, m.match_date AS date, m.match_key AS match_key,
  m.balls_per_over AS balls_per_over,
  CAST(SUM(CASE WHEN d.dismissal_kind IN ? THEN 1 ELSE 0 END) AS BIGINT) AS wickets,
  CAST(SUM(`+concededRuns+`) AS BIGINT) AS runs_conceded,
  CAST(SUM(`+legalBall+`) AS BIGINT) AS legal_balls
`+deliveryJoins+`
JOIN players p ON p.id = d.bowler_id
JOIN teams bt ON bt.id = i.batting_team_id
WHERE i.super_over = FALSE`, bowlerWicketKinds)
			b.season(a, "m.season_year")
			b.add("GROUP BY p.id, p.name, bt.name, m.id, m.match_date, m.match_key, m.balls_per_over")
			b.add("ORDER BY wickets DESC, runs_conceded ASC, p.name ASC, m.match_date ASC, m.match_key ASC")
			b.add("LIMIT ?", a.Int("limit"))
			return b.statement()
		},
		NewCollector: func(_ Args, maxRows int) Collector {
			return mapCollector(maxRows, func(row model.Row) {
				row["figures"] = fmt.Sprintf("%d/%d", asInt(row["wickets"]), asInt(row["runs_conceded"]))
				row["overs"] = oversText(asInt(row["legal_balls"]), asInt(row["balls_per_over"]))
			})
		},
	}
}

func topWicketTakers() *Operation {
	return &Operation{
		Name:        "top_wicket_takers",
		Description: "出局数最多的投球手（run out 等不计入投球手）",
		Params:      []Param{limitParam(10, 50), seasonParam(false)},
		Columns: []Column{
			text("bowler", "投球手"),
			integer("wickets", "出局", "个"),
			text("overs", "回合"),
			integer("runs_conceded", "失分", "分"),
			float("economy", "经济率", 2),
			float("average", "平均失分", 2),
		},
		MaxRows: 50,
		Build: func(a Args) model.Statement {
			b := &sqlBuilder{}
			b.add(`SELECT p.name AS bowler,
  CAST(SUM(CASE WHEN d.dismissal_kind IN ? THEN 1 ELSE 0 END) AS BIGINT) AS wickets,
  CAST(SUM(`+concededRuns+`) AS BIGINT) AS runs_conceded,
  CAST(SUM(`+legalBall+`) AS BIGINT) AS legal_balls
`+deliveryJoins+`
JOIN players p ON p.id = d.bowler_id
WHERE i.super_over = FALSE`, bowlerWicketKinds)
			b.season(a, "m.season_year")
			b.add("GROUP BY p.id, p.name")
			b.add("ORDER BY wickets DESC, runs_conceded ASC, p.name ASC")
			b.add("LIMIT ?", a.Int("limit"))
			return b.statement()
		},
		NewCollector: func(_ Args, maxRows int) Collector {
			return mapCollector(maxRows, func(row model.Row) {
				legal, conceded := asInt(row["legal_balls"]), asInt(row["runs_conceded"])
				row["overs"] = oversText(legal, 6)
				row["economy"] = ratio(conceded, legal, 6)
				row["average"] = ratio(conceded, asInt(row["wickets"]), 1)
			})
		},
	}
}

func powerplayEconomy() *Operation {
	return &Operation{
		Name:        "powerplay_economy",
		Description: "强制限制区回合内经济率最低的投球手（按合法球计）",
		Params: []Param{
			limitParam(10, 50),
			seasonParam(false),
			{
				Name:        "min_balls",
				Kind:        ParamInt,
				Description: "最少合法球数",
				Default:     60,
				Rules:       "min=1,max=100000",
			},
		},
		Columns: []Column{
			text("bowler", "投球手"),
			integer("legal_balls", "合法球", "球"),
			integer("runs_conceded", "失分", "分"),
			integer("wickets", "出局", "个"),
			float("economy", "经济率", 2),
		},
		MaxRows: 50,
		Build: func(a Args) model.Statement {
			b := &sqlBuilder{}
			b.add(`SELECT p.name AS bowler,
  CAST(SUM(`+legalBall+`) AS BIGINT) AS legal_balls,
  CAST(SUM(`+concededRuns+`) AS BIGINT) AS runs_conceded,
  CAST(SUM(CASE WHEN d.dismissal_kind IN ? THEN 1 ELSE 0 END) AS BIGINT) AS wickets,
  CAST(SUM(`+concededRuns+`) AS DOUBLE PRECISION) * 6 / SUM(`+legalBall+`) AS economy
`+deliveryJoins+`
JOIN players p ON p.id = d.bowler_id
WHERE i.super_over = FALSE AND d.over_number < i.powerplay_overs`, bowlerWicketKinds)
			b.season(a, "m.season_year")
			b.add("GROUP BY p.id, p.name")
			b.add("HAVING SUM("+legalBall+") >= ?", a.Int("min_balls"))
			b.add("ORDER BY economy ASC, p.name ASC")
			b.add("LIMIT ?", a.Int("limit"))
			return b.statement()
		},
	}
}

func playerBatting() *Operation {
	return &Operation{
		Name:        "player_batting",
		Description: "单个球员的击球数据（姓名按大小写归一后精确匹配）",
		Params: []Param{
			{
				Name:        "player",
				Kind:        ParamString,
				Description: "球员姓名，如 V Kohli",
				Required:    true,
				Rules:       "min=2,max=128",
			},
			seasonParam(false),
		},
		Columns: []Column{
			text("player", "球员"),
			integer("innings", "局数", "局"),
			integer("runs", "得分", "分"),
			integer("balls", "面对球数", "球"),
			integer("highest", "最高分", "分"),
			integer("outs", "出局", "次"),
			float("average", "平均分", 2),
			float("strike_rate", "击球率", 2),
			integer("fours", "四分球", "个"),
			integer("sixes", "六分球", "个"),
		},
		MaxRows: 5,
		Build: func(a Args) model.Statement {
			b := &sqlBuilder{}
			b.add(`SELECT p.name AS player, COUNT(*) AS innings,
  CAST(SUM(x.runs) AS BIGINT) AS runs,
  CAST(SUM(x.balls) AS BIGINT) AS balls,
  MAX(x.runs) AS highest,
  CAST(SUM(x.outs) AS BIGINT) AS outs,
  CAST(SUM(x.fours) AS BIGINT) AS fours,
  CAST(SUM(x.sixes) AS BIGINT) AS sixes
FROM (
  SELECT p.id AS player_id, d.innings_id AS innings_id,
    CAST(SUM(CASE WHEN d.striker_id = p.id THEN d.runs_batter ELSE 0 END) AS BIGINT) AS runs,
    CAST(SUM(CASE WHEN d.striker_id = p.id AND d.wides = 0 THEN 1 ELSE 0 END) AS BIGINT) AS balls,
    CAST(SUM(CASE WHEN d.dismissed_id = p.id THEN 1 ELSE 0 END) AS BIGINT) AS outs,
    CAST(SUM(CASE WHEN d.striker_id = p.id AND d.runs_batter = 4 THEN 1 ELSE 0 END) AS BIGINT) AS fours,
    CAST(SUM(CASE WHEN d.striker_id = p.id AND d.runs_batter = 6 THEN 1 ELSE 0 END) AS BIGINT) AS sixes
  `+deliveryJoins+`
  JOIN players p ON (p.id = d.striker_id OR p.id = d.non_striker_id)
  WHERE p.name_key = ? AND i.super_over = FALSE`, identity.Key(a.String("player")))
			b.season(a, "m.season_year")
			b.add(`  GROUP BY p.id, d.innings_id
) x
JOIN players p ON p.id = x.player_id
GROUP BY p.id, p.name
ORDER BY p.name ASC`)
			return b.statement()
		},
		NewCollector: func(_ Args, maxRows int) Collector {
			return mapCollector(maxRows, func(row model.Row) {
				runs := asInt(row["runs"])
				row["average"] = ratio(runs, asInt(row["outs"]), 1)
				row["strike_rate"] = ratio(runs, asInt(row["balls"]), 100)
			})
		},
	}
}

func playerBowling() *Operation {
	return &Operation{
		Name:        "player_bowling",
		Description: "单个球员的投球数据（姓名按大小写归一后精确匹配，不含超级回合）",
		Params: []Param{
			{
				Name:        "player",
				Kind:        ParamString,
				Description: "球员姓名，如 JJ Bumrah",
				Required:    true,
				Rules:       "min=2,max=128",
			},
			seasonParam(false),
		},
		Columns: []Column{
			text("bowler", "投球手"),
			integer("matches", "场次", "场"),
			text("overs", "回合"),
			integer("runs_conceded", "失分", "分"),
			integer("wickets", "出局", "个"),
			integer("best_wickets", "单场最多出局", "个"),
			float("economy", "经济率", 2),
			float("average", "平均失分", 2),
			float("strike_rate", "每出局用球", 1),
			float("dot_pct", "零分球%", 1),
		},
		MaxRows: 5,
		Build: func(a Args) model.Statement {
			b := &sqlBuilder{}
			b.add(`SELECT p.name AS bowler, COUNT(*) AS matches,
  CAST(SUM(x.legal_balls) AS BIGINT) AS legal_balls,
  CAST(SUM(x.runs_conceded) AS BIGINT) AS runs_conceded,
  CAST(SUM(x.wickets) AS BIGINT) AS wickets,
  MAX(x.wickets) AS best_wickets,
  CAST(SUM(x.dots) AS BIGINT) AS dots
FROM (
  SELECT d.bowler_id AS player_id, m.id AS match_id,
    CAST(SUM(`+legalBall+`) AS BIGINT) AS legal_balls,
    CAST(SUM(`+concededRuns+`) AS BIGINT) AS runs_conceded,
    CAST(SUM(CASE WHEN d.dismissal_kind IN ? THEN 1 ELSE 0 END) AS BIGINT) AS wickets,
    CAST(SUM(CASE WHEN d.wides = 0 AND d.noballs = 0 AND d.runs_total = 0 THEN 1 ELSE 0 END) AS BIGINT) AS dots
  `+deliveryJoins+`
  JOIN players p ON p.id = d.bowler_id
  WHERE p.name_key = ? AND i.super_over = FALSE`, bowlerWicketKinds, identity.Key(a.String("player")))
			b.season(a, "m.season_year")
			b.add(`  GROUP BY d.bowler_id, m.id
) x
JOIN players p ON p.id = x.player_id
GROUP BY p.id, p.name
ORDER BY p.name ASC`)
			return b.statement()
		},
		NewCollector: func(_ Args, maxRows int) Collector {
			return mapCollector(maxRows, func(row model.Row) {
				legal, conceded, wickets := asInt(row["legal_balls"]), asInt(row["runs_conceded"]), asInt(row["wickets"])
				row["overs"] = oversText(legal, 6)
				row["economy"] = ratio(conceded, legal, 6)
				row["average"] = ratio(conceded, wickets, 1)
				row["strike_rate"] = ratio(legal, wickets, 1)
				row["dot_pct"] = ratio(asInt(row["dots"]), legal, 100)
			})
		},
	}
}

func partnershipsOver() *Operation {
	return &Operation{
		Name:        "partnerships_over",
		Description: "得分不低于 threshold 的搭档（按局内连续同一对击球手计算，含额外跑分，不含超级回合）",
		Params: []Param{
			{
				Name:        "threshold",
				Kind:        ParamInt,
				Description: "搭档最低得分",
				Default:     100,
				Rules:       "min=1,max=1000",
			},
			seasonParam(false),
		},
		Columns: []Column{
			text("batter_1", "击球手1"),
			text("batter_2", "击球手2"),
			integer("runs", "搭档得分", "分"),
			integer("balls", "球数", "球"),
			integer("batter_1_runs", "击球手1得分", "分"),
			integer("batter_2_runs", "击球手2得分", "分"),
			text("team", "球队"),
			date("date", "日期"),
			text("match_key", "比赛"),
			integer("innings", "局", ""),
		},
		MaxRows: 50,
		Build: func(a Args) model.Statement {
			b := &sqlBuilder{}
			b.add(`SELECT m.match_key AS match_key, m.match_date AS date, i.number AS innings, bt.name AS team,
  s.name AS striker, ns.name AS non_striker,
  d.runs_total AS runs_total, d.runs_batter AS runs_batter, d.wides AS wides
` + deliveryJoins + `
JOIN teams bt ON bt.id = i.batting_team_id
JOIN players s ON s.id = d.striker_id
JOIN players ns ON ns.id = d.non_striker_id
WHERE i.super_over = FALSE`)
			b.season(a, "m.season_year")
			b.add("ORDER BY m.id ASC, i.number ASC, d.over_number ASC, d.ball_number ASC")
			return b.statement()
		},
		NewCollector: func(a Args, maxRows int) Collector {
			return &partnershipCollector{threshold: a.Int("threshold")}
		},
	}
}

type inningsRef struct {
	matchKey string
	date     string
	team     string
	innings  int64
}

type foundPartnership struct {
	inningsRef
	p partnership.Partnership
}

// partnershipCollector 按局切分投球序列，逐局计算搭档
type partnershipCollector struct {
	threshold int
	cur       inningsRef
	balls     []partnership.Ball
	found     []foundPartnership
}

func (c *partnershipCollector) Add(row model.Row) error {
	ref := inningsRef{
		matchKey: asString(row["match_key"]),
		date:     asString(row["date"]),
		team:     asString(row["team"]),
		innings:  asInt(row["innings"]),
	}
	if ref.matchKey != c.cur.matchKey || ref.innings != c.cur.innings {
		c.flush()
		c.cur = ref
	}
	c.balls = append(c.balls, partnership.Ball{
		Striker:    asString(row["striker"]),
		NonStriker: asString(row["non_striker"]),
		Runs:       int(asInt(row["runs_total"])),
		BatterRuns: int(asInt(row["runs_batter"])),
		Wide:       asInt(row["wides"]) > 0,
	})
	return nil
}

func (c *partnershipCollector) flush() {
	if len(c.balls) == 0 {
		return
	}
	for _, p := range partnership.Over(partnership.Compute(c.balls), c.threshold) {
		c.found = append(c.found, foundPartnership{inningsRef: c.cur, p: p})
	}
	c.balls = c.balls[:0]
}

func (c *partnershipCollector) Finish() ([]model.Row, []Stat) {
	c.flush()
	sort.SliceStable(c.found, func(i, j int) bool {
		a, b := c.found[i], c.found[j]
		switch {
		case a.p.Runs != b.p.Runs:
			return a.p.Runs > b.p.Runs
		case a.date != b.date:
			return a.date < b.date
		case a.matchKey != b.matchKey:
			return a.matchKey < b.matchKey
		case a.innings != b.innings:
			return a.innings < b.innings
		}
		return a.p.Start < b.p.Start
	})
	rows := make([]model.Row, 0, len(c.found))
	for _, f := range c.found {
		rows = append(rows, model.Row{
			"batter_1":      f.p.First,
			"batter_2":      f.p.Second,
			"runs":          int64(f.p.Runs),
			"balls":         int64(f.p.Balls),
			"batter_1_runs": int64(f.p.FirstRuns),
			"batter_2_runs": int64(f.p.SecondRuns),
			"team":          f.team,
			"date":          f.date,
			"match_key":     f.matchKey,
			"innings":       f.innings,
		})
	}
	return rows, []Stat{{Label: "符合条件的搭档", Value: int64(len(rows))}}
}
