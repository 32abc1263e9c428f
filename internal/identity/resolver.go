// Package identity 把数据源里的球队、场地、球员名称解析为库内 ID。
//
// 目前只做大小写归一后的精确匹配：同一实体的不同拼写会得到不同的行。
// 需要别名表或模糊匹配时实现新的 Resolver 即可，入库与查询逻辑不受影响。
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"CricketSync/internal/model"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Resolver 实体解析入口，每个入库事务开一个 Scope
type Resolver interface {
	Begin(tx *gorm.DB) Scope
}

// Scope 绑定到单个事务的解析器。事务提交成功后调用 Publish，
// 回滚时直接丢弃，未提交的 ID 不会进入共享缓存。
type Scope interface {
	Team(ctx context.Context, name string) (uint64, error)
	Venue(ctx context.Context, name, city string) (uint64, error)
	Player(ctx context.Context, name string, hint PlayerHint) (uint64, error)
	Publish()
}

// PlayerHint 数据源附带的球员辅助信息
type PlayerHint struct {
	RegistryID string
	Team       string
}

var folder = cases.Fold()

// Key 名称的自然键：NFC 归一、折叠空白、大小写折叠
func Key(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	return folder.String(norm.NFC.String(name))
}

type playerEntry struct {
	id   uint64
	team string
}

// ExactResolver 按归一化名称精确匹配，已提交的映射缓存在 LRU 中
type ExactResolver struct {
	teams   *lru.Cache[string, uint64]
	venues  *lru.Cache[string, uint64]
	players *lru.Cache[string, playerEntry]
	codes   map[string]string
}

// NewExactResolver teamCodes 为 球队全称 -> 简称，新建球队时写入 short_code
func NewExactResolver(cacheSize int, teamCodes map[string]string) (*ExactResolver, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	teams, err := lru.New[string, uint64](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("创建球队缓存失败: %w", err)
	}
	venues, err := lru.New[string, uint64](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("创建场地缓存失败: %w", err)
	}
	players, err := lru.New[string, playerEntry](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("创建球员缓存失败: %w", err)
	}
	codes := make(map[string]string, len(teamCodes))
	for name, code := range teamCodes {
		codes[Key(name)] = strings.ToUpper(strings.TrimSpace(code))
	}
	return &ExactResolver{teams: teams, venues: venues, players: players, codes: codes}, nil
}

// ShortCode 球队简称，未配置时返回空
func (r *ExactResolver) ShortCode(name string) string {
	return r.codes[Key(name)]
}

func (r *ExactResolver) Begin(tx *gorm.DB) Scope {
	return &exactScope{
		r:       r,
		tx:      tx,
		teams:   make(map[string]uint64),
		venues:  make(map[string]uint64),
		players: make(map[string]playerEntry),
	}
}

type exactScope struct {
	r       *ExactResolver
	tx      *gorm.DB
	teams   map[string]uint64
	venues  map[string]uint64
	players map[string]playerEntry
}

func (s *exactScope) Team(ctx context.Context, name string) (uint64, error) {
	key := Key(name)
	if key == "" {
		return 0, errors.New("球队名称为空")
	}
	if id, ok := s.teams[key]; ok {
		return id, nil
	}
	if id, ok := s.r.teams.Get(key); ok {
		s.teams[key] = id
		return id, nil
	}
	row := model.Team{Name: strings.TrimSpace(name), NameKey: key, ShortCode: s.r.codes[key]}
	id, err := findOrCreate(ctx, s.tx, &row, key, func(t *model.Team) uint64 { return t.ID })
	if err != nil {
		return 0, fmt.Errorf("解析球队失败: %w, name: %s", err, name)
	}
	s.teams[key] = id
	return id, nil
}

func (s *exactScope) Venue(ctx context.Context, name, city string) (uint64, error) {
	key := Key(name)
	if key == "" {
		return 0, errors.New("场地名称为空")
	}
	if id, ok := s.venues[key]; ok {
		return id, nil
	}
	if id, ok := s.r.venues.Get(key); ok {
		s.venues[key] = id
		return id, nil
	}
	row := model.Venue{Name: strings.TrimSpace(name), NameKey: key, City: strings.TrimSpace(city)}
	id, err := findOrCreate(ctx, s.tx, &row, key, func(v *model.Venue) uint64 { return v.ID })
	if err != nil {
		return 0, fmt.Errorf("解析场地失败: %w, name: %s", err, name)
	}
	s.venues[key] = id
	return id, nil
}

func (s *exactScope) Player(ctx context.Context, name string, hint PlayerHint) (uint64, error) {
	key := Key(name)
	if key == "" {
		return 0, errors.New("球员姓名为空")
	}
	if e, ok := s.players[key]; ok {
		return e.id, nil
	}
	entry, cached := s.r.players.Get(key)
	if !cached {
		row := model.Player{
			Name:       strings.TrimSpace(name),
			NameKey:    key,
			RegistryID: hint.RegistryID,
			TeamHint:   hint.Team,
		}
		id, err := findOrCreate(ctx, s.tx, &row, key, func(p *model.Player) uint64 { return p.ID })
		if err != nil {
			return 0, fmt.Errorf("解析球员失败: %w, name: %s", err, name)
		}
		var current model.Player
		if err := s.tx.WithContext(ctx).Select("id", "team_hint").Where("id = ?", id).Take(&current).Error; err != nil {
			return 0, fmt.Errorf("读取球员失败: %w, name: %s", err, name)
		}
		entry = playerEntry{id: id, team: current.TeamHint}
	}

	// 球队提示以最近一次出场为准
	if hint.Team != "" && hint.Team != entry.team {
		if err := s.tx.WithContext(ctx).Model(&model.Player{}).
			Where("id = ?", entry.id).
			Update("team_hint", hint.Team).Error; err != nil {
			return 0, fmt.Errorf("更新球员球队失败: %w, name: %s", err, name)
		}
		entry.team = hint.Team
	}
	s.players[key] = entry
	return entry.id, nil
}

func (s *exactScope) Publish() {
	for k, id := range s.teams {
		s.r.teams.Add(k, id)
	}
	for k, id := range s.venues {
		s.r.venues.Add(k, id)
	}
	for k, e := range s.players {
		s.r.players.Add(k, e)
	}
}

// findOrCreate 先按 name_key 查找，不存在才插入；并发插入冲突时回查
func findOrCreate[T any](ctx context.Context, tx *gorm.DB, row *T, key string, idOf func(*T) uint64) (uint64, error) {
	var existing T
	err := tx.WithContext(ctx).Where("name_key = ?", key).Take(&existing).Error
	if err == nil {
		return idOf(&existing), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	if err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name_key"}}, DoNothing: true}).
		Create(row).Error; err != nil {
		return 0, err
	}
	if id := idOf(row); id != 0 {
		return id, nil
	}
	if err := tx.WithContext(ctx).Where("name_key = ?", key).Take(&existing).Error; err != nil {
		return 0, err
	}
	return idOf(&existing), nil
}
