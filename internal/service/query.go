package service

import (
	"context"
	"fmt"

	"CricketSync/internal/apperr"
	"CricketSync/internal/catalog"
	"CricketSync/internal/config"
	"CricketSync/internal/executor"
	"CricketSync/internal/format"
	"CricketSync/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ToolResponse 一次工具调用的应答：Text 为渲染后的文本，Result 为结构化结果
type ToolResponse struct {
	RequestID string          `json:"request_id"`
	Text      string          `json:"text"`
	Result    *catalog.Result `json:"result"`
}

// SchemaGuide 给外部意图解析服务的数据概况
type SchemaGuide struct {
	*repository.SchemaOverview
	Tools []string `json:"tools"`
}

type QueryService struct {
	exec     *executor.Executor
	schema   repository.SchemaRepository
	logger   *logrus.Logger
	maxChars int
}

func NewQueryService(exec *executor.Executor, schema repository.SchemaRepository, cfg config.QueryConfig, logger *logrus.Logger) *QueryService {
	return &QueryService{exec: exec, schema: schema, logger: logger, maxChars: cfg.MaxOutputChars}
}

// RunTool 执行具名分析操作并渲染结果
func (s *QueryService) RunTool(ctx context.Context, name string, args map[string]interface{}, style string) (*ToolResponse, error) {
	st, err := format.ParseStyle(style)
	if err != nil {
		return nil, apperr.Invalid(name, "%v", err)
	}
	reqID := uuid.NewString()
	s.logger.WithFields(logrus.Fields{"request_id": reqID, "tool": name, "args": args}).Info("收到工具调用")

	res, err := s.exec.Execute(ctx, name, args)
	if err != nil {
		return nil, fmt.Errorf("请求%s: %w", reqID, err)
	}
	return s.respond(reqID, res, st), nil
}

// RunSQL 执行单条只读 SQL
func (s *QueryService) RunSQL(ctx context.Context, sql, style string) (*ToolResponse, error) {
	st, err := format.ParseStyle(style)
	if err != nil {
		return nil, apperr.Invalid(executor.SQLOperation, "%v", err)
	}
	reqID := uuid.NewString()
	s.logger.WithFields(logrus.Fields{"request_id": reqID, "sql": sql}).Info("收到直接 SQL 查询")

	res, err := s.exec.ExecuteSQL(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("请求%s: %w", reqID, err)
	}
	return s.respond(reqID, res, st), nil
}

func (s *QueryService) respond(reqID string, res *catalog.Result, st format.Style) *ToolResponse {
	return &ToolResponse{
		RequestID: reqID,
		Text:      format.Render(res, format.Options{Style: st, MaxChars: s.maxChars}),
		Result:    res,
	}
}

// ListTools 全部分析操作，按名称排序
func (s *QueryService) ListTools() []*catalog.Operation {
	return s.exec.Catalog().List()
}

func (s *QueryService) SchemaGuide(ctx context.Context) (*SchemaGuide, error) {
	overview, err := s.schema.Overview(ctx)
	if err != nil {
		return nil, apperr.Unavailable("schema", err)
	}
	guide := &SchemaGuide{SchemaOverview: overview}
	for _, op := range s.ListTools() {
		guide.Tools = append(guide.Tools, op.Name)
	}
	return guide, nil
}
