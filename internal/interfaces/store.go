package interfaces

import (
	"context"
	"errors"

	"CricketSync/internal/model"
)

// ErrStopScan 由 visit 返回时停止读取后续行，不视为错误
var ErrStopScan = errors.New("stop scan")

// MatchRepository 比赛入库（单场一个事务，全部成功或全部回滚）
type MatchRepository interface {
	SaveMatch(ctx context.Context, rec *model.MatchRecord) (model.IngestOutcome, error)
}

// QueryStore 只读查询。visit 逐行回调，返回结果集列名
type QueryStore interface {
	Query(ctx context.Context, stmt model.Statement, visit func(model.Row) error) ([]string, error)
}

// TeamFinder 按名称或简称查找球队，找不到返回 nil
type TeamFinder interface {
	FindTeam(ctx context.Context, query string) (*model.Team, error)
}

// RecordSource 比赛记录来源（目录、zip 包、下载地址）
type RecordSource interface {
	Kind() string
	List(ctx context.Context) ([]model.SourceItem, error)
	Read(ctx context.Context, item model.SourceItem) ([]byte, error)
}
