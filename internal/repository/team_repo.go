package repository

import (
	"context"
	"sort"
	"strings"

	"CricketSync/internal/identity"
	"CricketSync/internal/interfaces"
	"CricketSync/internal/model"

	"gorm.io/gorm"
)

type teamRepository struct {
	db *gorm.DB
}

func NewTeamRepository(db *gorm.DB) interfaces.TeamFinder {
	return &teamRepository{db: db}
}

// FindTeam 先按归一化全称匹配，再按简称匹配；简称对应多支球队时取名称字典序最小的一支
func (r *teamRepository) FindTeam(ctx context.Context, query string) (*model.Team, error) {
	key := identity.Key(query)
	if key == "" {
		return nil, nil
	}
	code := strings.ToUpper(strings.TrimSpace(query))

	var teams []*model.Team
	if err := r.db.WithContext(ctx).
		Where("name_key = ? OR short_code = ?", key, code).
		Find(&teams).Error; err != nil {
		return nil, err
	}
	if len(teams) == 0 {
		return nil, nil
	}
	sort.Slice(teams, func(i, j int) bool {
		ei, ej := teams[i].NameKey == key, teams[j].NameKey == key
		if ei != ej {
			return ei
		}
		return teams[i].Name < teams[j].Name
	})
	return teams[0], nil
}
