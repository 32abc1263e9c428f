package ingest

import (
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"
	"time"

	"CricketSync/internal/identity"
	"CricketSync/internal/model"

	"github.com/cespare/xxhash/v2"
	jsoniter "github.com/json-iterator/go"
)

const defaultPowerplayOvers = 6

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Decode 解析 CricSheet JSON，不做语义校验
func Decode(data []byte) (*model.CricsheetMatch, error) {
	var m model.CricsheetMatch
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &RecordError{Reason: "JSON解析失败: " + err.Error()}
	}
	return &m, nil
}

// Parse 解码、校验并归一化一条记录。id 为空时用内容哈希作为比赛自然键
func Parse(source, id string, data []byte) (*model.MatchRecord, error) {
	m, err := Decode(data)
	if err == nil {
		err = Validate(m)
	}
	if err != nil {
		if re, ok := err.(*RecordError); ok {
			re.Source = source
		}
		return nil, err
	}
	sum := xxhash.Sum64(data)
	if id == "" {
		id = "sha-" + strconv.FormatUint(sum, 16)
	}
	return Normalize(m, id, fmt.Sprintf("%016x", sum)), nil
}

// KeyFromName 数据源路径对应的比赛自然键：文件名去扩展名
func KeyFromName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// Normalize 把已校验的记录转换为入库结构
func Normalize(m *model.CricsheetMatch, key, checksum string) *model.MatchRecord {
	info := &m.Info
	rec := &model.MatchRecord{
		Key:           key,
		Checksum:      checksum,
		Season:        string(info.Season),
		Date:          info.Dates[0],
		MatchType:     info.MatchType,
		Gender:        info.Gender,
		Overs:         info.Overs,
		BallsPerOver:  info.BallsPerOver,
		Venue:         strings.TrimSpace(info.Venue),
		City:          strings.TrimSpace(info.City),
		TeamA:         strings.TrimSpace(info.Teams[0]),
		TeamB:         strings.TrimSpace(info.Teams[1]),
		TossWinner:    canonicalTeam(info, info.Toss.Winner),
		TossDecision:  info.Toss.Decision,
		Method:        info.Outcome.Method,
		PlayerOfMatch: info.PlayerOfMatch,
		Officials:     info.Officials,
		Registry:      info.Registry.People,
	}
	if rec.BallsPerOver == 0 {
		rec.BallsPerOver = defaultBallsPerOver
	}
	if y, ok := info.Season.Year(); ok {
		rec.SeasonYear = y
	} else if t, err := time.Parse(dateLayout, rec.Date); err == nil {
		rec.SeasonYear = t.Year()
	}
	if info.Event != nil {
		rec.Competition = info.Event.Name
		rec.MatchNumber = info.Event.MatchNumber
	}
	normalizeOutcome(info, rec)

	rec.Squads = make(map[string][]string, 2)
	for team, players := range info.Players {
		if name := canonicalTeam(info, team); name != "" {
			rec.Squads[name] = players
		}
	}

	for i := range m.Innings {
		rec.Innings = append(rec.Innings, normalizeInnings(info, &m.Innings[i], i+1))
	}
	return rec
}

func normalizeOutcome(info *model.CricsheetInfo, rec *model.MatchRecord) {
	out := info.Outcome
	rec.ResultType = out.Result
	if rec.ResultType == "" {
		rec.ResultType = model.ResultNormal
	}
	rec.NoResult = out.Result == model.ResultNoResult
	rec.Winner = canonicalTeam(info, out.Winner)
	if rec.Winner == "" && out.Result == model.ResultTie && out.Eliminator != "" {
		rec.Winner = canonicalTeam(info, out.Eliminator)
	}
	rec.WinByRuns = out.By.Runs
	rec.WinByWickets = out.By.Wickets

	switch {
	case out.By.Runs > 0:
		rec.Margin = plural(out.By.Runs, "run")
	case out.By.Wickets > 0:
		rec.Margin = plural(out.By.Wickets, "wicket")
	}
	if out.By.Innings > 0 && rec.Margin != "" {
		rec.Margin = "an innings and " + rec.Margin
	}
	if rec.Margin != "" && out.Method != "" {
		rec.Margin += " (" + out.Method + ")"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}

func normalizeInnings(info *model.CricsheetInfo, in *model.CricsheetInnings, number int) model.InningsRecord {
	batting := canonicalTeam(info, in.Team)
	bowling := strings.TrimSpace(info.Teams[0])
	if identity.Key(bowling) == identity.Key(batting) {
		bowling = strings.TrimSpace(info.Teams[1])
	}
	rec := model.InningsRecord{
		Number:         number,
		BattingTeam:    batting,
		BowlingTeam:    bowling,
		Declared:       in.Declared,
		Forfeited:      in.Forfeited,
		SuperOver:      in.SuperOver,
		PowerplayOvers: defaultPowerplayOvers,
		Powerplays:     in.Powerplays,
	}
	if in.Target != nil {
		rec.TargetRuns = in.Target.Runs
		rec.TargetOvers = in.Target.Overs
	}
	for _, pp := range in.Powerplays {
		if pp.Type == "mandatory" {
			rec.PowerplayOvers = int(math.Floor(pp.To)) + 1
			break
		}
	}

	for _, over := range in.Overs {
		for k := range over.Deliveries {
			rec.Deliveries = append(rec.Deliveries, normalizeDelivery(over.Over, k+1, &over.Deliveries[k]))
		}
	}
	return rec
}

func normalizeDelivery(over, ball int, d *model.CricsheetDelivery) model.DeliveryRecord {
	rec := model.DeliveryRecord{
		Over:       over,
		Ball:       ball,
		Striker:    strings.TrimSpace(d.Batter),
		NonStriker: strings.TrimSpace(d.NonStriker),
		Bowler:     strings.TrimSpace(d.Bowler),
		RunsBatter: d.Runs.Batter,
		RunsExtras: d.Runs.Extras,
		RunsTotal:  d.Runs.Total,
		Legal:      true,
	}
	if e := d.Extras; e != nil {
		rec.Wides = e.Wides
		rec.NoBalls = e.Noballs
		rec.Byes = e.Byes
		rec.LegByes = e.Legbyes
		rec.Penalty = e.Penalty
		rec.Legal = e.Wides == 0 && e.Noballs == 0
	}
	// 同一个球记录两次出局（极少见）时只保留第一次
	if len(d.Wickets) > 0 {
		w := d.Wickets[0]
		rec.Wicket = true
		rec.DismissalKind = w.Kind
		rec.Dismissed = strings.TrimSpace(w.PlayerOut)
		if len(w.Fielders) > 0 {
			rec.Fielder = strings.TrimSpace(w.Fielders[0].Name)
		}
	}
	return rec
}

// canonicalTeam 把记录中出现的球队名统一成 info.teams 中的写法
func canonicalTeam(info *model.CricsheetInfo, name string) string {
	key := identity.Key(name)
	if key == "" {
		return ""
	}
	for _, team := range info.Teams {
		if identity.Key(team) == key {
			return strings.TrimSpace(team)
		}
	}
	return ""
}
