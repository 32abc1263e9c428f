package model

// IngestOutcome 单场比赛的导入结果
type IngestOutcome string

const (
	OutcomeInserted  IngestOutcome = "inserted"
	OutcomeReplaced  IngestOutcome = "replaced"
	OutcomeUnchanged IngestOutcome = "unchanged"
)

// Result types stored in matches.result_type.
const (
	ResultNormal   = "normal"
	ResultTie      = "tie"
	ResultNoResult = "no result"
	ResultDraw     = "draw"
)

// MatchRecord 校验并归一化后的比赛，实体仍以名称引用，ID 在入库事务中解析
type MatchRecord struct {
	Key          string
	Checksum     string
	Season       string
	SeasonYear   int
	Date         string
	Competition  string
	MatchNumber  int
	MatchType    string
	Gender       string
	Overs        int
	BallsPerOver int

	Venue string
	City  string
	TeamA string
	TeamB string

	TossWinner   string
	TossDecision string

	Winner       string
	ResultType   string
	WinByRuns    int
	WinByWickets int
	Margin       string
	NoResult     bool
	Method       string

	PlayerOfMatch []string
	Officials     map[string][]string
	// Squads 球队 -> 出场球员（保持数据源顺序）
	Squads map[string][]string
	// Registry 球员姓名 -> 数据源登记ID
	Registry map[string]string

	Innings []InningsRecord
}

type InningsRecord struct {
	Number         int
	BattingTeam    string
	BowlingTeam    string
	Declared       bool
	Forfeited      bool
	SuperOver      bool
	TargetRuns     int
	TargetOvers    float64
	PowerplayOvers int
	Powerplays     []CricsheetPowerplay
	Deliveries     []DeliveryRecord
}

type DeliveryRecord struct {
	Over       int
	Ball       int
	Striker    string
	NonStriker string
	Bowler     string

	RunsBatter int
	Wides      int
	NoBalls    int
	Byes       int
	LegByes    int
	Penalty    int
	RunsExtras int
	RunsTotal  int
	Legal      bool

	Wicket        bool
	DismissalKind string
	Dismissed     string
	Fielder       string
}

// DeliveryCount 全部局的投球数
func (r *MatchRecord) DeliveryCount() int {
	n := 0
	for i := range r.Innings {
		n += len(r.Innings[i].Deliveries)
	}
	return n
}

// SourceItem 数据源中的一条比赛记录
type SourceItem struct {
	ID   string // 比赛自然键（文件名去扩展名）
	Name string // 数据源内路径
}
