package model

import (
	"time"

	"gorm.io/datatypes"
)

type Team struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	Name      string    `gorm:"column:name;type:varchar(128);not null;comment:球队名称（按数据源原样保存）"`
	NameKey   string    `gorm:"column:name_key;type:varchar(128);uniqueIndex;not null;comment:大小写归一后的自然键"`
	ShortCode string    `gorm:"column:short_code;type:varchar(16);index;comment:球队简称，如CSK"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;comment:创建时间"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;comment:更新时间"`
}

type Venue struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	Name      string    `gorm:"column:name;type:varchar(256);not null;comment:场地名称"`
	NameKey   string    `gorm:"column:name_key;type:varchar(256);uniqueIndex;not null;comment:大小写归一后的自然键"`
	City      string    `gorm:"column:city;type:varchar(128);not null;default:'';comment:城市"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;comment:创建时间"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;comment:更新时间"`
}

type Player struct {
	ID         uint64    `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	Name       string    `gorm:"column:name;type:varchar(128);not null;comment:球员姓名"`
	NameKey    string    `gorm:"column:name_key;type:varchar(128);uniqueIndex;not null;comment:大小写归一后的自然键"`
	RegistryID string    `gorm:"column:registry_id;type:varchar(32);index;comment:数据源登记ID"`
	TeamHint   string    `gorm:"column:team_hint;type:varchar(128);comment:最近一次出场所属球队（仅提示）"`
	CreatedAt  time.Time `gorm:"column:created_at;type:timestamp;comment:创建时间"`
	UpdatedAt  time.Time `gorm:"column:updated_at;type:timestamp;comment:更新时间"`
}

// Match 一场比赛。match_key 为自然键，checksum 用于判断重复导入
type Match struct {
	ID            uint64         `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	MatchKey      string         `gorm:"column:match_key;type:varchar(64);uniqueIndex;not null;comment:比赛自然键（文件名或内容哈希）"`
	Checksum      string         `gorm:"column:checksum;type:varchar(16);not null;comment:原始记录内容哈希"`
	Season        string         `gorm:"column:season;type:varchar(16);comment:赛季（原样）"`
	SeasonYear    int            `gorm:"column:season_year;type:int;index;not null;comment:赛季年份"`
	MatchDate     string         `gorm:"column:match_date;type:varchar(10);index;not null;comment:比赛日期YYYY-MM-DD"`
	Competition   string         `gorm:"column:competition;type:varchar(128);comment:赛事名称"`
	MatchNumber   int            `gorm:"column:match_number;type:int;default:0;comment:赛事内场次"`
	MatchType     string         `gorm:"column:match_type;type:varchar(16);comment:比赛类型T20/ODI/Test"`
	Gender        string         `gorm:"column:gender;type:varchar(16);comment:性别"`
	Overs         int            `gorm:"column:overs;type:int;default:0;comment:每局最多回合数"`
	BallsPerOver  int            `gorm:"column:balls_per_over;type:int;default:6;comment:每回合合法球数"`
	VenueID       uint64         `gorm:"column:venue_id;type:bigint;not null;index;comment:场地ID"`
	TeamAID       uint64         `gorm:"column:team_a_id;type:bigint;not null;index;check:chk_matches_distinct_teams,team_a_id <> team_b_id;comment:球队A"`
	TeamBID       uint64         `gorm:"column:team_b_id;type:bigint;not null;index;comment:球队B"`
	TossWinnerID  *uint64        `gorm:"column:toss_winner_id;type:bigint;comment:掷币获胜方"`
	TossDecision  string         `gorm:"column:toss_decision;type:varchar(16);comment:掷币选择bat/field"`
	WinnerID      *uint64        `gorm:"column:winner_id;type:bigint;index;comment:胜者（无结果/平局为空）"`
	ResultType    string         `gorm:"column:result_type;type:varchar(16);not null;comment:结果类型normal/tie/no result/draw"`
	WinByRuns     int            `gorm:"column:win_by_runs;type:int;default:0;check:chk_matches_win_by_runs,win_by_runs >= 0;comment:按跑分获胜"`
	WinByWickets  int            `gorm:"column:win_by_wickets;type:int;default:0;check:chk_matches_win_by_wickets,win_by_wickets >= 0;comment:按剩余三柱门获胜"`
	Margin        string         `gorm:"column:margin;type:varchar(48);comment:胜负差描述"`
	NoResult      bool           `gorm:"column:no_result;type:boolean;default:false;comment:是否无结果"`
	Method        string         `gorm:"column:method;type:varchar(16);comment:计分方法如D/L"`
	PlayerOfMatch datatypes.JSON `gorm:"column:player_of_match;type:jsonb;comment:最佳球员"`
	Officials     datatypes.JSON `gorm:"column:officials;type:jsonb;comment:裁判信息"`
	CreatedAt     time.Time      `gorm:"column:created_at;type:timestamp;comment:创建时间"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;type:timestamp;comment:更新时间"`

	Venue      *Venue `gorm:"foreignKey:VenueID"`
	TeamA      *Team  `gorm:"foreignKey:TeamAID"`
	TeamB      *Team  `gorm:"foreignKey:TeamBID"`
	TossWinner *Team  `gorm:"foreignKey:TossWinnerID"`
	Winner     *Team  `gorm:"foreignKey:WinnerID"`
}

// MatchPlayer 单场比赛的出场名单
type MatchPlayer struct {
	MatchID  uint64 `gorm:"column:match_id;primaryKey;comment:比赛ID"`
	PlayerID uint64 `gorm:"column:player_id;primaryKey;index;comment:球员ID"`
	TeamID   uint64 `gorm:"column:team_id;type:bigint;not null;comment:所属球队"`

	Match  *Match  `gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE"`
	Player *Player `gorm:"foreignKey:PlayerID"`
	Team   *Team   `gorm:"foreignKey:TeamID"`
}

type Innings struct {
	ID             uint64         `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	MatchID        uint64         `gorm:"column:match_id;type:bigint;not null;uniqueIndex:uk_innings_match_number;comment:比赛ID"`
	Number         int            `gorm:"column:number;type:int;not null;uniqueIndex:uk_innings_match_number;check:chk_innings_number,number >= 1;comment:局序号（超级回合从3开始）"`
	BattingTeamID  uint64         `gorm:"column:batting_team_id;type:bigint;not null;comment:击球方"`
	BowlingTeamID  uint64         `gorm:"column:bowling_team_id;type:bigint;not null;comment:投球方"`
	Declared       bool           `gorm:"column:declared;type:boolean;default:false;comment:是否宣布结束"`
	Forfeited      bool           `gorm:"column:forfeited;type:boolean;default:false;comment:是否弃局"`
	SuperOver      bool           `gorm:"column:super_over;type:boolean;default:false;comment:是否超级回合"`
	TargetRuns     int            `gorm:"column:target_runs;type:int;default:0;comment:目标分"`
	TargetOvers    float64        `gorm:"column:target_overs;type:numeric(6,1);default:0;comment:目标回合数"`
	PowerplayOvers int            `gorm:"column:powerplay_overs;type:int;default:6;comment:强制限制区回合数"`
	Powerplays     datatypes.JSON `gorm:"column:powerplays;type:jsonb;comment:限制区原始定义"`

	Match       *Match `gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE"`
	BattingTeam *Team  `gorm:"foreignKey:BattingTeamID"`
	BowlingTeam *Team  `gorm:"foreignKey:BowlingTeamID"`
}

// Delivery 单球记录。(innings_id, over_number, ball_number) 唯一，所有跑分非负
type Delivery struct {
	ID           uint64  `gorm:"column:id;primaryKey;autoIncrement;comment:自增主键ID"`
	InningsID    uint64  `gorm:"column:innings_id;type:bigint;not null;uniqueIndex:uk_delivery_position;comment:局ID"`
	OverNumber   int     `gorm:"column:over_number;type:int;not null;uniqueIndex:uk_delivery_position;check:chk_deliveries_over,over_number >= 0;comment:回合（从0开始）"`
	BallNumber   int     `gorm:"column:ball_number;type:int;not null;uniqueIndex:uk_delivery_position;check:chk_deliveries_ball,ball_number >= 1;comment:回合内投球序号（含额外球）"`
	StrikerID    uint64  `gorm:"column:striker_id;type:bigint;not null;index;comment:击球手"`
	NonStrikerID uint64  `gorm:"column:non_striker_id;type:bigint;not null;comment:非击球端击球手"`
	BowlerID     uint64  `gorm:"column:bowler_id;type:bigint;not null;index;comment:投球手"`
	RunsBatter   int     `gorm:"column:runs_batter;type:int;not null;default:0;check:chk_deliveries_runs_batter,runs_batter >= 0;comment:击球得分"`
	Wides        int     `gorm:"column:wides;type:int;not null;default:0;check:chk_deliveries_wides,wides >= 0;comment:大范围球"`
	NoBalls      int     `gorm:"column:noballs;type:int;not null;default:0;check:chk_deliveries_noballs,noballs >= 0;comment:违例球"`
	Byes         int     `gorm:"column:byes;type:int;not null;default:0;check:chk_deliveries_byes,byes >= 0;comment:漏接跑分"`
	LegByes      int     `gorm:"column:legbyes;type:int;not null;default:0;check:chk_deliveries_legbyes,legbyes >= 0;comment:触身跑分"`
	Penalty      int     `gorm:"column:penalty;type:int;not null;default:0;check:chk_deliveries_penalty,penalty >= 0;comment:罚分"`
	RunsExtras   int     `gorm:"column:runs_extras;type:int;not null;default:0;check:chk_deliveries_runs_extras,runs_extras >= 0;comment:额外跑分合计"`
	RunsTotal    int     `gorm:"column:runs_total;type:int;not null;default:0;check:chk_deliveries_runs_total,runs_total >= 0;comment:本球总跑分"`
	IsLegal      bool    `gorm:"column:is_legal;type:boolean;not null;default:true;comment:是否计入合法球数"`
	IsWicket     bool    `gorm:"column:is_wicket;type:boolean;not null;default:false;comment:是否出局"`
	DismissKind  string  `gorm:"column:dismissal_kind;type:varchar(32);comment:出局方式"`
	DismissedID  *uint64 `gorm:"column:dismissed_id;type:bigint;comment:出局球员"`
	FielderID    *uint64 `gorm:"column:fielder_id;type:bigint;comment:第一名参与的防守球员"`

	Innings    *Innings `gorm:"foreignKey:InningsID;constraint:OnDelete:CASCADE"`
	Striker    *Player  `gorm:"foreignKey:StrikerID"`
	NonStriker *Player  `gorm:"foreignKey:NonStrikerID"`
	Bowler     *Player  `gorm:"foreignKey:BowlerID"`
	Dismissed  *Player  `gorm:"foreignKey:DismissedID"`
	Fielder    *Player  `gorm:"foreignKey:FielderID"`
}

func (Team) TableName() string        { return "teams" }
func (Venue) TableName() string       { return "venues" }
func (Player) TableName() string      { return "players" }
func (Match) TableName() string       { return "matches" }
func (MatchPlayer) TableName() string { return "match_players" }
func (Innings) TableName() string     { return "innings" }
func (Delivery) TableName() string    { return "deliveries" }

// AllTables 按依赖顺序返回全部表模型（迁移与统计共用）
func AllTables() []interface{} {
	return []interface{}{
		&Team{},
		&Venue{},
		&Player{},
		&Match{},
		&MatchPlayer{},
		&Innings{},
		&Delivery{},
	}
}
