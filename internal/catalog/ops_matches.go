package catalog

import (
	"fmt"
	"strings"

	"CricketSync/internal/identity"
	"CricketSync/internal/model"

	jsoniter "github.com/json-iterator/go"
)

// matchListSelect 比赛列表，附带前两局比分，如 "Chennai Super Kings 180/4"
const matchListSelect = `SELECT m.match_date AS date, m.season AS season, ta.name AS team_a, tb.name AS team_b,
  s1.team || ' ' || s1.runs || '/' || s1.wickets AS first_innings,
  s2.team || ' ' || s2.runs || '/' || s2.wickets AS second_innings,
  w.name AS winner, m.margin AS margin, m.result_type AS result, v.name AS venue, m.match_key AS match_key
FROM matches m
JOIN teams ta ON ta.id = m.team_a_id
JOIN teams tb ON tb.id = m.team_b_id
LEFT JOIN teams w ON w.id = m.winner_id
JOIN venues v ON v.id = m.venue_id
LEFT JOIN (` + inningsScores + `) s1 ON s1.match_id = m.id AND s1.number = 1
LEFT JOIN (` + inningsScores + `) s2 ON s2.match_id = m.id AND s2.number = 2`

var matchColumns = []Column{
	date("date", "日期"),
	text("season", "赛季"),
	text("team_a", "球队A"),
	text("team_b", "球队B"),
	text("first_innings", "第一局"),
	text("second_innings", "第二局"),
	text("winner", "胜者"),
	text("margin", "胜负差"),
	text("result", "结果"),
	text("venue", "场地"),
	text("match_key", "比赛"),
}

func mostWinsByTeam() *Operation {
	return &Operation{
		Name:        "most_wins_by_team",
		Description: "各球队胜场数，可按赛季过滤",
		Params:      []Param{seasonParam(false)},
		Columns:     []Column{text("team", "球队"), integer("wins", "胜场", "场")},
		MaxRows:     50,
		Build: func(a Args) model.Statement {
			b := &sqlBuilder{}
			b.add(`SELECT t.name AS team, COUNT(*) AS wins
FROM matches m
JOIN teams t ON t.id = m.winner_id
WHERE 1 = 1`)
			b.season(a, "m.season_year")
			b.add("GROUP BY t.id, t.name")
			b.add("ORDER BY wins DESC, t.name ASC")
			return b.statement()
		},
	}
}

func headToHead() *Operation {
	return &Operation{
		Name:        "head_to_head",
		Description: "两队交锋记录：各自胜场与全部比赛",
		Params: []Param{
			teamParam("team_a", "球队名称或简称"),
			teamParam("team_b", "球队名称或简称"),
		},
		Columns: matchColumns,
		MaxRows: 100,
		Check:   distinctTeams("team_a", "team_b"),
		Build: func(a Args) model.Statement {
			ta, tb := a.Team("team_a"), a.Team("team_b")
			b := &sqlBuilder{}
			b.add(matchListSelect)
			b.add("WHERE ((m.team_a_id = ? AND m.team_b_id = ?) OR (m.team_a_id = ? AND m.team_b_id = ?))",
				ta.ID, tb.ID, tb.ID, ta.ID)
			b.add("ORDER BY m.match_date ASC, m.match_key ASC")
			return b.statement()
		},
		NewCollector: func(a Args, maxRows int) Collector {
			ta, tb := a.Team("team_a"), a.Team("team_b")
			var total, winsA, winsB int64
			return &tallyCollector{
				max: maxRows,
				onRow: func(row model.Row) {
					total++
					switch asString(row["winner"]) {
					case ta.Name:
						winsA++
					case tb.Name:
						winsB++
					}
				},
				stats: func() []Stat {
					return []Stat{
						{Label: "比赛", Value: total},
						{Label: ta.Name, Value: winsA},
						{Label: tb.Name, Value: winsB},
						{Label: "无结果", Value: total - winsA - winsB},
					}
				},
			}
		},
	}
}

func matchScorecard() *Operation {
	teamB := teamParam("team_b", "对手球队名称或简称，可选")
	teamB.Required = false
	return &Operation{
		Name:        "match_scorecard",
		Description: "比赛记分卡：每局总分、出局、回合、得分率与最佳球员，默认只取最近一场（不含超级回合）",
		Params: []Param{
			teamParam("team_a", "球队名称或简称"),
			teamB,
			seasonParam(false),
			{
				Name:        "date",
				Kind:        ParamString,
				Description: "比赛日期，如 2019-05-12",
				Rules:       "datetime=2006-01-02",
			},
			limitParam(1, 10),
		},
		Columns: []Column{
			date("date", "日期"),
			text("match_key", "比赛"),
			integer("innings", "局", ""),
			text("team", "击球方"),
			text("score", "比分"),
			text("overs", "回合"),
			float("run_rate", "每回合得分", 2),
			text("winner", "胜者"),
			text("margin", "胜负差"),
			text("player_of_match", "最佳球员"),
		},
		MaxRows: 40,
		Check:   distinctTeams("team_a", "team_b"),
		Build: func(a Args) model.Statement {
			ta, tb := a.Team("team_a"), a.Team("team_b")
			b := &sqlBuilder{}
			b.add(`SELECT m.match_date AS date, m.match_key AS match_key, i.number AS innings, bt.name AS team,
  s.runs AS runs, s.wickets AS wickets, s.legal_balls AS legal_balls, m.balls_per_over AS balls_per_over,
  w.name AS winner, m.margin AS margin, CAST(m.player_of_match AS TEXT) AS player_of_match
FROM innings i
JOIN matches m ON m.id = i.match_id
JOIN teams bt ON bt.id = i.batting_team_id
LEFT JOIN teams w ON w.id = m.winner_id
JOIN (SELECT d.innings_id AS innings_id,
    CAST(SUM(d.runs_total) AS BIGINT) AS runs,
    CAST(SUM(CASE WHEN d.dismissed_id IS NOT NULL THEN 1 ELSE 0 END) AS BIGINT) AS wickets,
    CAST(SUM(`+legalBall+`) AS BIGINT) AS legal_balls
  FROM deliveries d
  GROUP BY d.innings_id) s ON s.innings_id = i.id
WHERE i.super_over = FALSE AND m.id IN (
  SELECT mm.id FROM matches mm
  WHERE (mm.team_a_id = ? OR mm.team_b_id = ?)`, ta.ID, ta.ID)
			b.addIf(a.Has("team_b"), "  AND (mm.team_a_id = ? OR mm.team_b_id = ?)", tb.ID, tb.ID)
			b.season(a, "mm.season_year")
			b.addIf(a.Has("date"), "  AND mm.match_date = ?", a.String("date"))
			b.add("  ORDER BY mm.match_date DESC, mm.match_key DESC")
			b.add("  LIMIT ?", a.Int("limit"))
			b.add(")")
			b.add("ORDER BY m.match_date DESC, m.match_key DESC, i.number ASC")
			return b.statement()
		},
		NewCollector: func(_ Args, maxRows int) Collector {
			return mapCollector(maxRows, func(row model.Row) {
				legal, perOver := asInt(row["legal_balls"]), asInt(row["balls_per_over"])
				if perOver <= 0 {
					perOver = 6
				}
				row["score"] = fmt.Sprintf("%d/%d", asInt(row["runs"]), asInt(row["wickets"]))
				row["overs"] = oversText(legal, perOver)
				row["run_rate"] = ratio(asInt(row["runs"]), legal, float64(perOver))
				row["player_of_match"] = namesText(row["player_of_match"])
			})
		},
	}
}

// namesText JSON 名单列转为逗号分隔的文字，空名单为 nil
func namesText(v interface{}) interface{} {
	var names []string
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.UnmarshalFromString(asString(v), &names); err != nil || len(names) == 0 {
		return nil
	}
	return strings.Join(names, ", ")
}

func recentMatches() *Operation {
	return &Operation{
		Name:        "recent_matches",
		Description: "最近的比赛，按日期倒序",
		Params:      []Param{limitParam(10, 50), seasonParam(false)},
		Columns:     matchColumns,
		MaxRows:     50,
		Build: func(a Args) model.Statement {
			b := &sqlBuilder{}
			b.add(matchListSelect)
			b.add("WHERE 1 = 1")
			b.season(a, "m.season_year")
			b.add("ORDER BY m.match_date DESC, m.match_key DESC")
			b.add("LIMIT ?", a.Int("limit"))
			return b.statement()
		},
	}
}

func seasonMatches() *Operation {
	const maxRows = 100
	return &Operation{
		Name:        "season_matches",
		Description: "某赛季的全部比赛，按日期顺序",
		Params:      []Param{seasonParam(true)},
		Columns:     matchColumns,
		MaxRows:     maxRows,
		Build: func(a Args) model.Statement {
			b := &sqlBuilder{}
			b.add(matchListSelect)
			b.add("WHERE m.season_year = ?", a.Int("season"))
			b.add("ORDER BY m.match_date ASC, m.match_key ASC")
			b.add("LIMIT ?", maxRows+1)
			return b.statement()
		},
	}
}

func teamMatches() *Operation {
	return &Operation{
		Name:        "team_matches",
		Description: "某球队参加的比赛及胜负汇总",
		Params:      []Param{teamParam("team", "球队名称或简称"), seasonParam(false)},
		Columns:     matchColumns,
		MaxRows:     100,
		Build: func(a Args) model.Statement {
			team := a.Team("team")
			b := &sqlBuilder{}
			b.add(matchListSelect)
			b.add("WHERE (m.team_a_id = ? OR m.team_b_id = ?)", team.ID, team.ID)
			b.season(a, "m.season_year")
			b.add("ORDER BY m.match_date DESC, m.match_key DESC")
			return b.statement()
		},
		NewCollector: func(a Args, maxRows int) Collector {
			team := a.Team("team")
			var played, won, lost int64
			return &tallyCollector{
				max: maxRows,
				onRow: func(row model.Row) {
					played++
					switch winner := asString(row["winner"]); {
					case winner == team.Name:
						won++
					case winner != "":
						lost++
					}
				},
				stats: func() []Stat {
					return []Stat{
						{Label: "比赛", Value: played},
						{Label: "胜", Value: won},
						{Label: "负", Value: lost},
						{Label: "无结果", Value: played - won - lost},
					}
				},
			}
		},
	}
}

// standings 球队战绩。积分：胜 2 分，无胜者（无结果/平局未决）1 分
const standingsSelect = `SELECT t.name AS team,
  COUNT(*) AS played,
  CAST(SUM(CASE WHEN m.winner_id = t.id THEN 1 ELSE 0 END) AS BIGINT) AS won,
  CAST(SUM(CASE WHEN m.winner_id IS NOT NULL AND m.winner_id <> t.id THEN 1 ELSE 0 END) AS BIGINT) AS lost,
  CAST(SUM(CASE WHEN m.winner_id IS NULL THEN 1 ELSE 0 END) AS BIGINT) AS no_result,
  CAST(SUM(CASE WHEN m.winner_id = t.id THEN 2 WHEN m.winner_id IS NULL THEN 1 ELSE 0 END) AS BIGINT) AS points,
  CAST(SUM(CASE WHEN m.winner_id = t.id THEN 1 ELSE 0 END) AS DOUBLE PRECISION) * 100 / COUNT(*) AS win_pct
FROM teams t
JOIN matches m ON (m.team_a_id = t.id OR m.team_b_id = t.id)`

var standingsColumns = []Column{
	text("team", "球队"),
	integer("played", "场次", "场"),
	integer("won", "胜", "场"),
	integer("lost", "负", "场"),
	integer("no_result", "无结果", "场"),
	integer("points", "积分", "分"),
	float("win_pct", "胜率%", 1),
}

func pointsTable() *Operation {
	return &Operation{
		Name:        "points_table",
		Description: "赛季积分榜（含季后赛场次，不计净得分率）",
		Params:      []Param{seasonParam(true)},
		Columns:     standingsColumns,
		MaxRows:     30,
		Build: func(a Args) model.Statement {
			b := &sqlBuilder{}
			b.add(standingsSelect)
			b.add("WHERE m.season_year = ?", a.Int("season"))
			b.add("GROUP BY t.id, t.name")
			b.add("ORDER BY points DESC, won DESC, t.name ASC")
			return b.statement()
		},
	}
}

func teamPerformance() *Operation {
	team := teamParam("team", "球队名称或简称，不填则列出全部球队")
	team.Required = false
	return &Operation{
		Name:        "team_performance",
		Description: "球队胜负与胜率，可按球队、赛季过滤",
		Params:      []Param{team, seasonParam(false)},
		Columns:     standingsColumns,
		MaxRows:     30,
		Build: func(a Args) model.Statement {
			b := &sqlBuilder{}
			b.add(standingsSelect)
			b.add("WHERE 1 = 1")
			b.addIf(a.Has("team"), "AND t.id = ?", a.Team("team").ID)
			b.season(a, "m.season_year")
			b.add("GROUP BY t.id, t.name")
			b.add("ORDER BY win_pct DESC, played DESC, t.name ASC")
			return b.statement()
		},
	}
}

func venueHighestScoring() *Operation {
	return &Operation{
		Name:        "venue_highest_scoring",
		Description: "第一局平均得分最高的场地（至少 min_matches 场）",
		Params: []Param{
			limitParam(10, 50),
			{
				Name:        "min_matches",
				Kind:        ParamInt,
				Description: "场地最少比赛场数，避免单场偏差",
				Default:     3,
				Rules:       "min=1,max=500",
			},
			seasonParam(false),
		},
		Columns: []Column{
			text("venue", "场地"),
			text("city", "城市"),
			integer("matches", "场次", "场"),
			float("avg_first_innings", "第一局平均得分", 1),
			integer("highest_first_innings", "第一局最高分", "分"),
		},
		MaxRows: 50,
		Build: func(a Args) model.Statement {
			b := &sqlBuilder{}
			b.add(`SELECT v.name AS venue, v.city AS city, COUNT(*) AS matches,
  CAST(SUM(t.total) AS DOUBLE PRECISION) / COUNT(*) AS avg_first_innings,
  MAX(t.total) AS highest_first_innings
FROM (` + firstInningsTotals + `) t
JOIN matches m ON m.id = t.match_id
JOIN venues v ON v.id = m.venue_id
WHERE 1 = 1`)
			b.season(a, "m.season_year")
			b.add("GROUP BY v.id, v.name, v.city")
			b.add("HAVING COUNT(*) >= ?", a.Int("min_matches"))
			b.add("ORDER BY avg_first_innings DESC, v.name ASC")
			b.add("LIMIT ?", a.Int("limit"))
			return b.statement()
		},
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func venueStats() *Operation {
	return &Operation{
		Name:        "venue_stats",
		Description: "名称包含给定文字的场地统计：场次、第一局得分、先攻/后攻获胜",
		Params: []Param{{
			Name:        "venue",
			Kind:        ParamString,
			Description: "场地名称（部分匹配）",
			Required:    true,
			Rules:       "min=2,max=128",
		}},
		Columns: []Column{
			text("venue", "场地"),
			text("city", "城市"),
			integer("matches", "场次", "场"),
			float("avg_first_innings", "第一局平均得分", 1),
			integer("highest_first_innings", "第一局最高分", "分"),
			integer("defended", "先攻获胜", "场"),
			integer("chased", "后攻获胜", "场"),
		},
		MaxRows: 20,
		Build: func(a Args) model.Statement {
			pattern := "%" + likeEscaper.Replace(identity.Key(a.String("venue"))) + "%"
			b := &sqlBuilder{}
			b.add(`SELECT v.name AS venue, v.city AS city, COUNT(*) AS matches,
  CAST(SUM(t.total) AS DOUBLE PRECISION) / NULLIF(COUNT(t.total), 0) AS avg_first_innings,
  MAX(t.total) AS highest_first_innings,
  CAST(SUM(CASE WHEN m.win_by_runs > 0 THEN 1 ELSE 0 END) AS BIGINT) AS defended,
  CAST(SUM(CASE WHEN m.win_by_wickets > 0 THEN 1 ELSE 0 END) AS BIGINT) AS chased
FROM matches m
JOIN venues v ON v.id = m.venue_id
LEFT JOIN (` + firstInningsTotals + `) t ON t.match_id = m.id`)
			b.add(`WHERE v.name_key LIKE ? ESCAPE '\'`, pattern)
			b.add("GROUP BY v.id, v.name, v.city")
			b.add("ORDER BY matches DESC, v.name ASC")
			return b.statement()
		},
	}
}

func seasonSummary() *Operation {
	return &Operation{
		Name:        "season_summary",
		Description: "赛季概况：场次、总得分、出局、四分与六分球、最后一场的胜者",
		Params:      []Param{seasonParam(true)},
		Columns: []Column{
			integer("matches", "场次", "场"),
			integer("venues", "场地数", "个"),
			integer("runs", "总得分", "分"),
			integer("wickets", "出局", "次"),
			integer("fours", "四分球", "个"),
			integer("sixes", "六分球", "个"),
			text("last_match_winner", "最后一场胜者"),
		},
		MaxRows: 1,
		Build: func(a Args) model.Statement {
			season := a.Int("season")
			b := &sqlBuilder{}
			b.add(`SELECT
  (SELECT COUNT(*) FROM matches m1 WHERE m1.season_year = ?) AS matches,
  (SELECT COUNT(DISTINCT m2.venue_id) FROM matches m2 WHERE m2.season_year = ?) AS venues,
  CAST(COALESCE(SUM(d.runs_total), 0) AS BIGINT) AS runs,
  CAST(COALESCE(SUM(CASE WHEN d.dismissed_id IS NOT NULL THEN 1 ELSE 0 END), 0) AS BIGINT) AS wickets,
  CAST(COALESCE(SUM(CASE WHEN d.runs_batter = 4 THEN 1 ELSE 0 END), 0) AS BIGINT) AS fours,
  CAST(COALESCE(SUM(CASE WHEN d.runs_batter = 6 THEN 1 ELSE 0 END), 0) AS BIGINT) AS sixes,
  (SELECT w.name FROM matches m3 JOIN teams w ON w.id = m3.winner_id
    WHERE m3.season_year = ? ORDER BY m3.match_date DESC, m3.match_key DESC LIMIT 1) AS last_match_winner`,
				season, season, season)
			b.add(deliveryJoins)
			b.add("WHERE m.season_year = ?", season)
			return b.statement()
		},
		NewCollector: func(_ Args, maxRows int) Collector {
			c := newListCollector(maxRows)
			c.keep = func(row model.Row) bool { return asInt(row["matches"]) > 0 }
			return c
		},
	}
}

func generalStats() *Operation {
	return &Operation{
		Name:        "general_stats",
		Description: "数据库总体规模：赛季、比赛、球队、球员、场地、投球数",
		Columns: []Column{
			integer("seasons", "赛季数", "个"),
			integer("first_season", "最早赛季", ""),
			integer("last_season", "最近赛季", ""),
			integer("matches", "比赛", "场"),
			integer("teams", "球队", "支"),
			integer("players", "球员", "人"),
			integer("venues", "场地", "个"),
			integer("deliveries", "投球", "个"),
		},
		MaxRows: 1,
		Build: func(Args) model.Statement {
			return model.Statement{SQL: `SELECT
  (SELECT COUNT(DISTINCT season_year) FROM matches) AS seasons,
  (SELECT MIN(season_year) FROM matches) AS first_season,
  (SELECT MAX(season_year) FROM matches) AS last_season,
  (SELECT COUNT(*) FROM matches) AS matches,
  (SELECT COUNT(*) FROM teams) AS teams,
  (SELECT COUNT(*) FROM players) AS players,
  (SELECT COUNT(*) FROM venues) AS venues,
  (SELECT COUNT(*) FROM deliveries) AS deliveries`}
		},
	}
}
