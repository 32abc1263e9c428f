package repository

import (
	"context"
	"fmt"

	"CricketSync/internal/model"

	"gorm.io/gorm"
)

// TableCount 单表行数
type TableCount struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}

// SchemaOverview 库概况（给外部意图解析服务了解可查询的数据范围）
type SchemaOverview struct {
	Tables    []TableCount `json:"tables"`
	FirstYear int          `json:"first_season"`
	LastYear  int          `json:"last_season"`
}

type SchemaRepository interface {
	Overview(ctx context.Context) (*SchemaOverview, error)
}

type schemaRepository struct {
	db *gorm.DB
}

func NewSchemaRepository(db *gorm.DB) SchemaRepository {
	return &schemaRepository{db: db}
}

func (r *schemaRepository) Overview(ctx context.Context) (*SchemaOverview, error) {
	out := &SchemaOverview{}
	for _, table := range model.AllTables() {
		stmt := &gorm.Statement{DB: r.db}
		if err := stmt.Parse(table); err != nil {
			return nil, fmt.Errorf("解析表结构失败: %w", err)
		}
		var n int64
		if err := r.db.WithContext(ctx).Model(table).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("统计%s行数失败: %w", stmt.Schema.Table, err)
		}
		out.Tables = append(out.Tables, TableCount{Table: stmt.Schema.Table, Rows: n})
	}

	var span struct {
		First *int
		Last  *int
	}
	if err := r.db.WithContext(ctx).Model(&model.Match{}).
		Select("MIN(season_year) AS first, MAX(season_year) AS last").
		Scan(&span).Error; err != nil {
		return nil, fmt.Errorf("统计赛季范围失败: %w", err)
	}
	if span.First != nil {
		out.FirstYear = *span.First
	}
	if span.Last != nil {
		out.LastYear = *span.Last
	}
	return out, nil
}
