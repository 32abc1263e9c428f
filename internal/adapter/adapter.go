package adapter

import (
	"fmt"

	"CricketSync/internal/config"
	"CricketSync/internal/interfaces"

	"github.com/sirupsen/logrus"
)

// New 按 cfg.Source 从工厂注册表创建数据源
func New(cfg *config.DatasetConfig, logger *logrus.Logger) (interfaces.RecordSource, error) {
	factory, ok := GetFactory(cfg.Source)
	if !ok {
		return nil, fmt.Errorf("未知的数据源类型%q（已注册：%v）", cfg.Source, ListFactories())
	}
	src, err := factory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("创建数据源%s失败: %w", cfg.Source, err)
	}
	logger.WithFields(logrus.Fields{
		"source":   cfg.Source,
		"location": cfg.Location,
		"pattern":  cfg.Pattern,
	}).Info("数据源初始化成功")
	return src, nil
}
