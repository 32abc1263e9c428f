package cli

import (
	"fmt"
	"os"
	"strings"

	"CricketSync/internal/catalog"
	"CricketSync/internal/config"
	"CricketSync/internal/database"
	"CricketSync/internal/executor"
	"CricketSync/internal/identity"
	"CricketSync/internal/ingest"
	"CricketSync/internal/metrics"
	"CricketSync/internal/repository"
	"CricketSync/internal/retry"
	"CricketSync/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// app 一次命令运行所需的全部组件
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	db       *gorm.DB
	registry *prometheus.Registry
	query    *service.QueryService
	ingest   *service.IngestService
}

func newApp(opts *RootOptions) (*app, error) {
	// 1. 加载配置文件
	cfg, err := config.LoadConfig(opts.ConfigDir)
	if err != nil {
		return nil, err
	}

	// 2. 初始化日志
	logger := newLogger(cfg.Log, opts.Verbose)
	logger.Debug("配置文件加载成功")

	// 3. 连接数据库并迁移表结构
	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, err
	}

	resolver, err := identity.NewExactResolver(cfg.Identity.CacheSize, cfg.Identity.TeamCodes)
	if err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("初始化实体识别失败: %w", err)
	}

	// 4. 指标
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 5. 入库流水线与查询执行器
	pipeline := ingest.NewPipeline(repository.NewMatchRepository(db, resolver), logger, retry.Config{
		MaxAttempts: cfg.Ingest.CommitRetries,
		MinBackoff:  cfg.Ingest.MinBackoff,
		MaxBackoff:  cfg.Ingest.MaxBackoff,
	}, m)
	exec := executor.New(catalog.Default(), repository.NewQueryStore(db), repository.NewTeamRepository(db), cfg.Query, logger, m)

	return &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		registry: reg,
		query:    service.NewQueryService(exec, repository.NewSchemaRepository(db), cfg.Query, logger),
		ingest:   service.NewIngestService(pipeline, cfg.Dataset, logger),
	}, nil
}

func (a *app) Close() {
	if err := database.Close(a.db); err != nil {
		a.logger.WithError(err).Warn("关闭数据库失败")
	}
}

// newLogger 按配置创建 logrus 日志，输出到 stderr，stdout 留给查询结果
func newLogger(cfg config.LogConfig, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	if verbose {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
