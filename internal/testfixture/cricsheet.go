// Package testfixture 构造测试用的 CricSheet 比赛 JSON。
package testfixture

import (
	"strconv"

	"CricketSync/internal/model"

	jsoniter "github.com/json-iterator/go"
)

// Ball 一个投球。Out 非空时记一次出局，Kind 默认 caught
type Ball struct {
	Batter     string
	NonStriker string
	Bowler     string
	Runs       int
	Wides      int
	NoBalls    int
	Byes       int
	LegByes    int
	Kind       string
	Out        string
	Fielder    string
}

// Dot 击球得 runs 分的普通球
func Dot(batter, nonStriker, bowler string, runs int) Ball {
	return Ball{Batter: batter, NonStriker: nonStriker, Bowler: bowler, Runs: runs}
}

type Innings struct {
	Team      string
	SuperOver bool
	// Overs 每个元素是一个回合内的投球，回合序号从 0 连续编号
	Overs [][]Ball
}

type Match struct {
	Season    interface{}
	Date      string
	Venue     string
	City      string
	Teams     [2]string
	Toss      string
	Winner    string
	ByRuns    int
	ByWickets int
	Result    string
	Overs     int
	Innings   []Innings
	Players   map[string][]string

	PlayerOfMatch []string
}

// Cricsheet 转为数据源结构，未填的字段给出合理默认值
func (m Match) Cricsheet() *model.CricsheetMatch {
	if m.Date == "" {
		m.Date = "2019-04-01"
	}
	if m.Venue == "" {
		m.Venue = "Wankhede Stadium"
	}
	if m.Overs == 0 {
		m.Overs = 20
	}
	out := &model.CricsheetMatch{
		Meta: model.CricsheetMeta{DataVersion: "1.1.0", Revision: 1},
		Info: model.CricsheetInfo{
			BallsPerOver: 6,
			City:         m.City,
			Dates:        []string{m.Date},
			Gender:       "male",
			MatchType:    "T20",
			Overs:        m.Overs,
			Players:      m.Players,
			Teams:        []string{m.Teams[0], m.Teams[1]},
			Venue:        m.Venue,
			Outcome: model.CricsheetOutcome{
				Winner: m.Winner,
				Result: m.Result,
				By:     model.CricsheetBy{Runs: m.ByRuns, Wickets: m.ByWickets},
			},
		},
	}
	out.Info.PlayerOfMatch = m.PlayerOfMatch
	switch s := m.Season.(type) {
	case int:
		out.Info.Season = model.Season(strconv.Itoa(s))
	case string:
		out.Info.Season = model.Season(s)
	}
	if m.Toss != "" {
		out.Info.Toss = model.CricsheetToss{Winner: m.Toss, Decision: "field"}
	}

	for _, in := range m.Innings {
		ci := model.CricsheetInnings{Team: in.Team, SuperOver: in.SuperOver}
		for n, balls := range in.Overs {
			over := model.CricsheetOver{Over: n}
			for _, b := range balls {
				over.Deliveries = append(over.Deliveries, b.delivery())
			}
			ci.Overs = append(ci.Overs, over)
		}
		out.Innings = append(out.Innings, ci)
	}
	return out
}

func (b Ball) delivery() model.CricsheetDelivery {
	extras := b.Wides + b.NoBalls + b.Byes + b.LegByes
	d := model.CricsheetDelivery{
		Batter:     b.Batter,
		NonStriker: b.NonStriker,
		Bowler:     b.Bowler,
		Runs:       model.CricsheetRuns{Batter: b.Runs, Extras: extras, Total: b.Runs + extras},
	}
	if extras > 0 {
		d.Extras = &model.CricsheetExtras{Wides: b.Wides, Noballs: b.NoBalls, Byes: b.Byes, Legbyes: b.LegByes}
	}
	if b.Out != "" {
		kind := b.Kind
		if kind == "" {
			kind = "caught"
		}
		w := model.CricsheetWicket{Kind: kind, PlayerOut: b.Out}
		if b.Fielder != "" {
			w.Fielders = []model.CricsheetFielder{{Name: b.Fielder}}
		}
		d.Wickets = []model.CricsheetWicket{w}
	}
	return d
}

// JSON 序列化为数据源格式
func (m Match) JSON() []byte {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(m.Cricsheet())
	if err != nil {
		panic(err)
	}
	return data
}

// Over 由若干个击球得分构成的一个回合，击球手与投球手固定
func Over(batter, nonStriker, bowler string, runs ...int) []Ball {
	balls := make([]Ball, 0, len(runs))
	for _, r := range runs {
		balls = append(balls, Dot(batter, nonStriker, bowler, r))
	}
	return balls
}
