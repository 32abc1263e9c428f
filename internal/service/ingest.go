package service

import (
	"context"
	"errors"
	"sync"

	"CricketSync/internal/adapter"
	"CricketSync/internal/apperr"
	"CricketSync/internal/config"
	"CricketSync/internal/ingest"
	"CricketSync/internal/interfaces"

	"github.com/sirupsen/logrus"
)

// ErrIngestRunning 入库是单写入者，已有批次在运行时拒绝新的触发
var ErrIngestRunning = errors.New("已有入库任务在运行")

type IngestService struct {
	pipeline *ingest.Pipeline
	dataset  config.DatasetConfig
	logger   *logrus.Logger
	mu       sync.Mutex
}

func NewIngestService(p *ingest.Pipeline, dataset config.DatasetConfig, logger *logrus.Logger) *IngestService {
	return &IngestService{pipeline: p, dataset: dataset, logger: logger}
}

// Run 按配置的数据源入库；override 非空时覆盖数据源配置
func (s *IngestService) Run(ctx context.Context, override *config.DatasetConfig) (*ingest.BatchReport, error) {
	cfg := s.dataset
	if override != nil {
		cfg = *override
	}
	src, err := adapter.New(&cfg, s.logger)
	if err != nil {
		return nil, apperr.Invalid("ingest", "%v", err)
	}
	return s.RunSource(ctx, src)
}

// Dataset 返回配置的数据源
func (s *IngestService) Dataset() config.DatasetConfig { return s.dataset }

// RunSource 对给定数据源执行一次批量入库
func (s *IngestService) RunSource(ctx context.Context, src interfaces.RecordSource) (*ingest.BatchReport, error) {
	if !s.mu.TryLock() {
		return nil, ErrIngestRunning
	}
	defer s.mu.Unlock()
	return s.pipeline.RunBatch(ctx, src)
}
