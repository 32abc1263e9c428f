package model

import (
	"bytes"
	"fmt"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

// CricsheetMatch CricSheet 单场比赛 JSON（只映射入库需要的字段，缺省字段按零值处理）
type CricsheetMatch struct {
	Meta    CricsheetMeta      `json:"meta"`
	Info    CricsheetInfo      `json:"info"`
	Innings []CricsheetInnings `json:"innings"`
}

type CricsheetMeta struct {
	DataVersion string `json:"data_version"`
	Created     string `json:"created"`
	Revision    int    `json:"revision"`
}

type CricsheetInfo struct {
	BallsPerOver  int                 `json:"balls_per_over"`
	City          string              `json:"city"`
	Dates         []string            `json:"dates"`
	Event         *CricsheetEvent     `json:"event"`
	Gender        string              `json:"gender"`
	MatchType     string              `json:"match_type"`
	Officials     map[string][]string `json:"officials"`
	Outcome       CricsheetOutcome    `json:"outcome"`
	Overs         int                 `json:"overs"`
	PlayerOfMatch []string            `json:"player_of_match"`
	Players       map[string][]string `json:"players"`
	Registry      CricsheetRegistry   `json:"registry"`
	Season        Season              `json:"season"`
	TeamType      string              `json:"team_type"`
	Teams         []string            `json:"teams"`
	Toss          CricsheetToss       `json:"toss"`
	Venue         string              `json:"venue"`
}

type CricsheetEvent struct {
	Name        string `json:"name"`
	MatchNumber int    `json:"match_number"`
	Stage       string `json:"stage"`
}

type CricsheetOutcome struct {
	Winner     string      `json:"winner"`
	By         CricsheetBy `json:"by"`
	Result     string      `json:"result"`
	Method     string      `json:"method"`
	Eliminator string      `json:"eliminator"`
}

type CricsheetBy struct {
	Runs    int `json:"runs"`
	Wickets int `json:"wickets"`
	Innings int `json:"innings"`
}

type CricsheetToss struct {
	Decision string `json:"decision"`
	Winner   string `json:"winner"`
}

type CricsheetRegistry struct {
	People map[string]string `json:"people"`
}

type CricsheetInnings struct {
	Team            string                       `json:"team"`
	Overs           []CricsheetOver              `json:"overs"`
	Declared        bool                         `json:"declared"`
	Forfeited       bool                         `json:"forfeited"`
	SuperOver       bool                         `json:"super_over"`
	Target          *CricsheetTarget             `json:"target"`
	Powerplays      []CricsheetPowerplay         `json:"powerplays"`
	MiscountedOvers map[string]CricsheetMiscount `json:"miscounted_overs"`
}

type CricsheetTarget struct {
	Runs  int     `json:"runs"`
	Overs float64 `json:"overs"`
}

type CricsheetPowerplay struct {
	From float64 `json:"from"`
	To   float64 `json:"to"`
	Type string  `json:"type"`
}

// CricsheetMiscount 裁判多/少判了球的回合（键为 over 字段的回合序号），balls 为实际投出的合法球数
type CricsheetMiscount struct {
	Balls  int    `json:"balls"`
	Umpire string `json:"umpire"`
}

type CricsheetOver struct {
	Over       int                 `json:"over"`
	Deliveries []CricsheetDelivery `json:"deliveries"`
}

type CricsheetDelivery struct {
	Batter     string            `json:"batter"`
	Bowler     string            `json:"bowler"`
	NonStriker string            `json:"non_striker"`
	Runs       CricsheetRuns     `json:"runs"`
	Extras     *CricsheetExtras  `json:"extras"`
	Wickets    []CricsheetWicket `json:"wickets"`
}

type CricsheetRuns struct {
	Batter      int  `json:"batter"`
	Extras      int  `json:"extras"`
	Total       int  `json:"total"`
	NonBoundary bool `json:"non_boundary"`
}

type CricsheetExtras struct {
	Wides   int `json:"wides"`
	Noballs int `json:"noballs"`
	Byes    int `json:"byes"`
	Legbyes int `json:"legbyes"`
	Penalty int `json:"penalty"`
}

// Sum 所有额外跑分之和
func (e *CricsheetExtras) Sum() int {
	if e == nil {
		return 0
	}
	return e.Wides + e.Noballs + e.Byes + e.Legbyes + e.Penalty
}

type CricsheetWicket struct {
	Kind      string             `json:"kind"`
	PlayerOut string             `json:"player_out"`
	Fielders  []CricsheetFielder `json:"fielders"`
}

type CricsheetFielder struct {
	Name       string `json:"name"`
	Substitute bool   `json:"substitute"`
}

// Season 数据源中赛季既可能是数字（2019）也可能是字符串（"2007/08"）
type Season string

func (s *Season) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = Season(v)
		return nil
	}
	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return fmt.Errorf("无法识别的赛季: %s", data)
	}
	*s = Season(data)
	return nil
}

// Year 纯数字赛季返回对应年份，否则返回 false
func (s Season) Year() (int, bool) {
	y, err := strconv.Atoi(string(s))
	if err != nil {
		return 0, false
	}
	return y, true
}
