package ingest

import (
	"strconv"
	"time"

	"CricketSync/internal/identity"
	"CricketSync/internal/model"
)

const (
	dateLayout          = "2006-01-02"
	defaultBallsPerOver = 6
)

// Validate 检查记录结构与语义，返回第一个发现的问题
func Validate(m *model.CricsheetMatch) error {
	info := &m.Info
	if len(info.Teams) != 2 {
		return malformed("info.teams", "需要恰好两支球队，实际%d支", len(info.Teams))
	}
	for i, team := range info.Teams {
		if identity.Key(team) == "" {
			return malformed("info.teams["+strconv.Itoa(i)+"]", "球队名称为空")
		}
	}
	if identity.Key(info.Teams[0]) == identity.Key(info.Teams[1]) {
		return malformed("info.teams", "两支球队相同: %s", info.Teams[0])
	}
	if identity.Key(info.Venue) == "" {
		return malformed("info.venue", "缺少比赛场地")
	}
	if len(info.Dates) == 0 {
		return malformed("info.dates", "缺少比赛日期")
	}
	for i, d := range info.Dates {
		if _, err := time.Parse(dateLayout, d); err != nil {
			return malformed("info.dates["+strconv.Itoa(i)+"]", "日期格式错误: %q", d)
		}
	}
	if info.BallsPerOver < 0 || info.Overs < 0 {
		return malformed("info", "balls_per_over/overs 不能为负")
	}
	if info.Toss.Winner != "" && !isTeam(info, info.Toss.Winner) {
		return malformed("info.toss.winner", "掷币获胜方不是参赛球队: %s", info.Toss.Winner)
	}
	out := info.Outcome
	if out.Winner != "" && !isTeam(info, out.Winner) {
		return malformed("info.outcome.winner", "胜者不是参赛球队: %s", out.Winner)
	}
	if out.Eliminator != "" && !isTeam(info, out.Eliminator) {
		return malformed("info.outcome.eliminator", "超级回合胜者不是参赛球队: %s", out.Eliminator)
	}
	if out.By.Runs < 0 || out.By.Wickets < 0 || out.By.Innings < 0 {
		return malformed("info.outcome.by", "胜负差不能为负")
	}

	for i := range m.Innings {
		if err := validateInnings(info, &m.Innings[i], "innings["+strconv.Itoa(i)+"]"); err != nil {
			return err
		}
	}
	return nil
}

func validateInnings(info *model.CricsheetInfo, in *model.CricsheetInnings, path string) error {
	if !isTeam(info, in.Team) {
		return malformed(path+".team", "击球方不是参赛球队: %q", in.Team)
	}
	ballsPerOver := info.BallsPerOver
	if ballsPerOver == 0 {
		ballsPerOver = defaultBallsPerOver
	}

	prevOver := -1
	for j := range in.Overs {
		over := &in.Overs[j]
		overPath := path + ".overs[" + strconv.Itoa(j) + "]"
		if over.Over < 0 {
			return malformed(overPath, "回合序号为负: %d", over.Over)
		}
		if over.Over <= prevOver {
			return malformed(overPath, "回合序号必须严格递增: %d 之后出现 %d", prevOver, over.Over)
		}
		prevOver = over.Over
		if !in.SuperOver && info.Overs > 0 && over.Over >= info.Overs {
			return malformed(overPath, "回合序号 %d 超出比赛回合数 %d", over.Over, info.Overs)
		}

		maxLegal := ballsPerOver
		if mc, ok := in.MiscountedOvers[strconv.Itoa(over.Over)]; ok && mc.Balls > 0 {
			maxLegal = mc.Balls
		}
		legal := 0
		for k := range over.Deliveries {
			d := &over.Deliveries[k]
			dPath := overPath + ".deliveries[" + strconv.Itoa(k) + "]"
			if err := validateDelivery(d, dPath); err != nil {
				return err
			}
			if d.Extras == nil || (d.Extras.Wides == 0 && d.Extras.Noballs == 0) {
				legal++
			}
			if legal > maxLegal {
				return malformed(dPath, "第%d回合合法球超过%d个", over.Over, maxLegal)
			}
		}
	}
	return nil
}

func validateDelivery(d *model.CricsheetDelivery, path string) error {
	if identity.Key(d.Batter) == "" || identity.Key(d.NonStriker) == "" || identity.Key(d.Bowler) == "" {
		return malformed(path, "击球手/非击球手/投球手不能为空")
	}
	if identity.Key(d.Batter) == identity.Key(d.NonStriker) {
		return malformed(path, "击球手与非击球手相同: %s", d.Batter)
	}
	r := d.Runs
	if r.Batter < 0 || r.Extras < 0 || r.Total < 0 {
		return malformed(path+".runs", "跑分不能为负")
	}
	if e := d.Extras; e != nil {
		if e.Wides < 0 || e.Noballs < 0 || e.Byes < 0 || e.Legbyes < 0 || e.Penalty < 0 {
			return malformed(path+".extras", "额外跑分不能为负")
		}
	}
	if sum := d.Extras.Sum(); sum != r.Extras {
		return malformed(path+".extras", "额外跑分明细之和 %d 与 runs.extras %d 不一致", sum, r.Extras)
	}
	if r.Batter+r.Extras != r.Total {
		return malformed(path+".runs", "runs.total %d 不等于击球得分 %d 加额外跑分 %d", r.Total, r.Batter, r.Extras)
	}

	for w := range d.Wickets {
		wk := &d.Wickets[w]
		wPath := path + ".wickets[" + strconv.Itoa(w) + "]"
		if wk.Kind == "" {
			return malformed(wPath, "缺少出局方式")
		}
		out := identity.Key(wk.PlayerOut)
		if out == "" {
			return malformed(wPath, "缺少出局球员")
		}
		if out != identity.Key(d.Batter) && out != identity.Key(d.NonStriker) {
			return malformed(wPath, "出局球员 %q 不是当前两名击球手之一", wk.PlayerOut)
		}
	}
	return nil
}

func isTeam(info *model.CricsheetInfo, name string) bool {
	key := identity.Key(name)
	return key != "" && (key == identity.Key(info.Teams[0]) || key == identity.Key(info.Teams[1]))
}
