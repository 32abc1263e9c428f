// internal/adapter/registry.go
package adapter

import (
	"fmt"
	"sort"

	"CricketSync/internal/config"
	"CricketSync/internal/interfaces"

	"github.com/sirupsen/logrus"
)

// Factory 数据源工厂函数签名
// 入参：数据源配置、日志实例
// 出参：实现RecordSource接口的数据源
type Factory func(cfg *config.DatasetConfig, logger *logrus.Logger) (interfaces.RecordSource, error)

// ========== 全局工厂函数注册表 ==========
var factoryRegistry = make(map[string]Factory)

// Register 供数据源包的init函数调用，注册工厂函数
func Register(kind string, factory Factory) {
	if factory == nil {
		panic(fmt.Sprintf("数据源%s的工厂函数不能为nil", kind))
	}
	if _, exists := factoryRegistry[kind]; exists {
		logrus.Warnf("数据源%s已注册，将覆盖原有实现", kind)
	}
	factoryRegistry[kind] = factory
}

// GetFactory 获取指定类型的工厂函数
func GetFactory(kind string) (Factory, bool) {
	factory, ok := factoryRegistry[kind]
	return factory, ok
}

// ListFactories 列出所有已注册的数据源类型（按名称排序）
func ListFactories() []string {
	kinds := make([]string, 0, len(factoryRegistry))
	for k := range factoryRegistry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
