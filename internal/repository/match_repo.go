package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"CricketSync/internal/identity"
	"CricketSync/internal/interfaces"
	"CricketSync/internal/model"

	jsoniter "github.com/json-iterator/go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const deliveryBatchSize = 500

type MatchRepository struct {
	db       *gorm.DB
	resolver identity.Resolver
}

func NewMatchRepository(db *gorm.DB, resolver identity.Resolver) interfaces.MatchRepository {
	return &MatchRepository{db: db, resolver: resolver}
}

// SaveMatch 单场比赛入库。match_key 已存在且内容哈希相同则不做任何修改；
// 内容变化时在同一事务内删除旧的局、投球与名单后重建。
func (r *MatchRepository) SaveMatch(ctx context.Context, rec *model.MatchRecord) (outcome model.IngestOutcome, err error) {
	// 开启事务
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return "", fmt.Errorf("开启事务失败: %w", tx.Error)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
		}
	}()

	// 1. 判断是否已入库
	var existing model.Match
	findErr := tx.Where("match_key = ?", rec.Key).Take(&existing).Error
	switch {
	case findErr == nil && existing.Checksum == rec.Checksum:
		tx.Rollback()
		return model.OutcomeUnchanged, nil
	case findErr == nil:
		outcome = model.OutcomeReplaced
		if err = purgeMatchChildren(tx, existing.ID); err != nil {
			return "", err
		}
	case errors.Is(findErr, gorm.ErrRecordNotFound):
		outcome = model.OutcomeInserted
	default:
		return "", fmt.Errorf("查询比赛失败: %w, match_key: %s", findErr, rec.Key)
	}

	scope := r.resolver.Begin(tx)

	// 2. 保存比赛
	match, err := r.buildMatch(ctx, scope, rec)
	if err != nil {
		return "", err
	}
	if outcome == model.OutcomeReplaced {
		match.ID = existing.ID
		match.CreatedAt = existing.CreatedAt
		err = tx.Omit(clause.Associations).Save(match).Error
	} else {
		err = tx.Omit(clause.Associations).Create(match).Error
	}
	if err != nil {
		return "", fmt.Errorf("保存Match失败: %w, match_key: %s", err, rec.Key)
	}

	// 3. 出场名单
	if err = r.saveSquads(ctx, tx, scope, match, rec); err != nil {
		return "", err
	}

	// 4. 各局与投球
	for i := range rec.Innings {
		if err = r.saveInnings(ctx, tx, scope, match.ID, rec, &rec.Innings[i]); err != nil {
			return "", err
		}
	}

	// 提交事务
	if err = tx.Commit().Error; err != nil {
		return "", fmt.Errorf("提交事务失败: %w", err)
	}
	scope.Publish()
	return outcome, nil
}

func purgeMatchChildren(tx *gorm.DB, matchID uint64) error {
	innings := tx.Model(&model.Innings{}).Select("id").Where("match_id = ?", matchID)
	if err := tx.Where("innings_id IN (?)", innings).Delete(&model.Delivery{}).Error; err != nil {
		return fmt.Errorf("删除旧投球记录失败: %w, match_id: %d", err, matchID)
	}
	if err := tx.Where("match_id = ?", matchID).Delete(&model.Innings{}).Error; err != nil {
		return fmt.Errorf("删除旧局记录失败: %w, match_id: %d", err, matchID)
	}
	if err := tx.Where("match_id = ?", matchID).Delete(&model.MatchPlayer{}).Error; err != nil {
		return fmt.Errorf("删除旧出场名单失败: %w, match_id: %d", err, matchID)
	}
	return nil
}

func (r *MatchRepository) buildMatch(ctx context.Context, scope identity.Scope, rec *model.MatchRecord) (*model.Match, error) {
	venueID, err := scope.Venue(ctx, rec.Venue, rec.City)
	if err != nil {
		return nil, err
	}
	teamA, err := scope.Team(ctx, rec.TeamA)
	if err != nil {
		return nil, err
	}
	teamB, err := scope.Team(ctx, rec.TeamB)
	if err != nil {
		return nil, err
	}
	optionalTeam := func(name string) (*uint64, error) {
		if name == "" {
			return nil, nil
		}
		id, err := scope.Team(ctx, name)
		if err != nil {
			return nil, err
		}
		return &id, nil
	}
	tossWinner, err := optionalTeam(rec.TossWinner)
	if err != nil {
		return nil, err
	}
	winner, err := optionalTeam(rec.Winner)
	if err != nil {
		return nil, err
	}
	pom, err := jsonColumn(rec.PlayerOfMatch)
	if err != nil {
		return nil, err
	}
	officials, err := jsonColumn(rec.Officials)
	if err != nil {
		return nil, err
	}

	return &model.Match{
		MatchKey:      rec.Key,
		Checksum:      rec.Checksum,
		Season:        rec.Season,
		SeasonYear:    rec.SeasonYear,
		MatchDate:     rec.Date,
		Competition:   rec.Competition,
		MatchNumber:   rec.MatchNumber,
		MatchType:     rec.MatchType,
		Gender:        rec.Gender,
		Overs:         rec.Overs,
		BallsPerOver:  rec.BallsPerOver,
		VenueID:       venueID,
		TeamAID:       teamA,
		TeamBID:       teamB,
		TossWinnerID:  tossWinner,
		TossDecision:  rec.TossDecision,
		WinnerID:      winner,
		ResultType:    rec.ResultType,
		WinByRuns:     rec.WinByRuns,
		WinByWickets:  rec.WinByWickets,
		Margin:        rec.Margin,
		NoResult:      rec.NoResult,
		Method:        rec.Method,
		PlayerOfMatch: pom,
		Officials:     officials,
	}, nil
}

func (r *MatchRepository) saveSquads(ctx context.Context, tx *gorm.DB, scope identity.Scope, match *model.Match, rec *model.MatchRecord) error {
	teams := make([]string, 0, len(rec.Squads))
	for team := range rec.Squads {
		teams = append(teams, team)
	}
	sort.Strings(teams)

	var rows []model.MatchPlayer
	seen := make(map[uint64]bool)
	for _, team := range teams {
		teamID, err := scope.Team(ctx, team)
		if err != nil {
			return err
		}
		for _, name := range rec.Squads[team] {
			playerID, err := scope.Player(ctx, name, identity.PlayerHint{RegistryID: rec.Registry[name], Team: team})
			if err != nil {
				return err
			}
			if seen[playerID] {
				continue
			}
			seen[playerID] = true
			rows = append(rows, model.MatchPlayer{MatchID: match.ID, PlayerID: playerID, TeamID: teamID})
		}
	}
	if len(rows) == 0 {
		return nil
	}
	if err := tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
		return fmt.Errorf("保存出场名单失败: %w, match_key: %s", err, rec.Key)
	}
	return nil
}

func (r *MatchRepository) saveInnings(ctx context.Context, tx *gorm.DB, scope identity.Scope, matchID uint64, rec *model.MatchRecord, in *model.InningsRecord) error {
	batting, err := scope.Team(ctx, in.BattingTeam)
	if err != nil {
		return err
	}
	bowling, err := scope.Team(ctx, in.BowlingTeam)
	if err != nil {
		return err
	}
	powerplays, err := jsonColumn(in.Powerplays)
	if err != nil {
		return err
	}
	row := model.Innings{
		MatchID:        matchID,
		Number:         in.Number,
		BattingTeamID:  batting,
		BowlingTeamID:  bowling,
		Declared:       in.Declared,
		Forfeited:      in.Forfeited,
		SuperOver:      in.SuperOver,
		TargetRuns:     in.TargetRuns,
		TargetOvers:    in.TargetOvers,
		PowerplayOvers: in.PowerplayOvers,
		Powerplays:     powerplays,
	}
	if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
		return fmt.Errorf("保存Innings失败: %w, match_key: %s, innings: %d", err, rec.Key, in.Number)
	}
	if len(in.Deliveries) == 0 {
		return nil
	}

	player := func(name string) (uint64, error) {
		return scope.Player(ctx, name, identity.PlayerHint{RegistryID: rec.Registry[name]})
	}
	optionalPlayer := func(name string) (*uint64, error) {
		if name == "" {
			return nil, nil
		}
		id, err := player(name)
		if err != nil {
			return nil, err
		}
		return &id, nil
	}

	deliveries := make([]model.Delivery, 0, len(in.Deliveries))
	for i := range in.Deliveries {
		d := &in.Deliveries[i]
		striker, err := player(d.Striker)
		if err != nil {
			return err
		}
		nonStriker, err := player(d.NonStriker)
		if err != nil {
			return err
		}
		bowler, err := player(d.Bowler)
		if err != nil {
			return err
		}
		dismissed, err := optionalPlayer(d.Dismissed)
		if err != nil {
			return err
		}
		fielder, err := optionalPlayer(d.Fielder)
		if err != nil {
			return err
		}
		deliveries = append(deliveries, model.Delivery{
			InningsID:    row.ID,
			OverNumber:   d.Over,
			BallNumber:   d.Ball,
			StrikerID:    striker,
			NonStrikerID: nonStriker,
			BowlerID:     bowler,
			RunsBatter:   d.RunsBatter,
			Wides:        d.Wides,
			NoBalls:      d.NoBalls,
			Byes:         d.Byes,
			LegByes:      d.LegByes,
			Penalty:      d.Penalty,
			RunsExtras:   d.RunsExtras,
			RunsTotal:    d.RunsTotal,
			IsLegal:      d.Legal,
			IsWicket:     d.Wicket,
			DismissKind:  d.DismissalKind,
			DismissedID:  dismissed,
			FielderID:    fielder,
		})
	}
	if err := tx.Omit(clause.Associations).CreateInBatches(&deliveries, deliveryBatchSize).Error; err != nil {
		return fmt.Errorf("保存Delivery失败: %w, match_key: %s, innings: %d", err, rec.Key, in.Number)
	}
	return nil
}

func jsonColumn(v interface{}) (datatypes.JSON, error) {
	b, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("序列化JSON字段失败: %w", err)
	}
	return datatypes.JSON(b), nil
}
