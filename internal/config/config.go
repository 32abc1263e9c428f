package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`   // 服务器配置
	Database DatabaseConfig `mapstructure:"database"` // 数据库配置
	Dataset  DatasetConfig  `mapstructure:"dataset"`  // 比赛数据源
	Ingest   IngestConfig   `mapstructure:"ingest"`   // 入库重试
	Query    QueryConfig    `mapstructure:"query"`    // 查询执行
	Identity IdentityConfig `mapstructure:"identity"` // 实体识别
	Reasoner ReasonerConfig `mapstructure:"reasoner"` // 外部意图解析服务
	Log      LogConfig      `mapstructure:"log"`      // 日志
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port            int           `mapstructure:"port"`             // 服务端口
	Mode            string        `mapstructure:"mode"`             // Gin运行模式：debug/release/test
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"` // 优雅退出等待时间
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`            // postgres / sqlite
	DSN             string        `mapstructure:"dsn"`               // 连接DSN
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
	LogLevel        string        `mapstructure:"log_level"`         // GORM日志级别：silent/error/warn/info
	AutoCreate      bool          `mapstructure:"auto_create"`       // 目标库不存在时自动创建（仅postgres）
}

// DatasetConfig 比赛数据源
type DatasetConfig struct {
	Source   string `mapstructure:"source"`   // dir / zip / url
	Location string `mapstructure:"location"` // 目录、zip文件路径或下载地址
	Pattern  string `mapstructure:"pattern"`  // 文件匹配规则（doublestar）
	Proxy    string `mapstructure:"proxy"`    // 下载代理
	Timeout  int    `mapstructure:"timeout"`  // 下载超时（秒）
}

// IngestConfig 入库提交的重试策略
type IngestConfig struct {
	CommitRetries int           `mapstructure:"commit_retries"` // 最多尝试次数
	MinBackoff    time.Duration `mapstructure:"min_backoff"`
	MaxBackoff    time.Duration `mapstructure:"max_backoff"`
}

// QueryConfig 查询执行配置
type QueryConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`          // 单次查询超时
	MaxRetries     int           `mapstructure:"max_retries"`      // 最多尝试次数
	MinBackoff     time.Duration `mapstructure:"min_backoff"`      // 最小退避
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`      // 最大退避
	MaxOutputChars int           `mapstructure:"max_output_chars"` // 渲染结果最大字符数
	AdhocMaxRows   int           `mapstructure:"adhoc_max_rows"`   // 直接SQL最大返回行数
	Breaker        BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig 存储熔断
type BreakerConfig struct {
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"` // 连续失败多少次后熔断
	OpenTimeout         time.Duration `mapstructure:"open_timeout"`         // 熔断后多久进入半开
}

// IdentityConfig 实体识别配置
type IdentityConfig struct {
	CacheSize int               `mapstructure:"cache_size"` // 名称→ID 缓存容量
	TeamCodes map[string]string `mapstructure:"team_codes"` // 球队全称 -> 简称
}

// ReasonerConfig 外部意图解析服务凭证，本服务只透传不使用
type ReasonerConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug/info/warn/error
	Format string `mapstructure:"format"` // text/json
}

// LoadConfig 加载配置文件（dir/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig(dir string) (*Config, error) {
	// 1. 加载 .env（若存在），env 中的值会覆盖 config.yaml 中同名字段
	_ = godotenv.Load() // 忽略错误（.env 可不存在）

	// 2. 读取 config.yaml，文件不存在时使用默认值
	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir == "" {
		dir = "./config"
	}
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.auto_create", true)

	v.SetDefault("dataset.source", "dir")
	v.SetDefault("dataset.location", "./data/ipl_json")
	v.SetDefault("dataset.pattern", "**/*.json")
	v.SetDefault("dataset.timeout", 120)

	v.SetDefault("ingest.commit_retries", 3)
	v.SetDefault("ingest.min_backoff", 200*time.Millisecond)
	v.SetDefault("ingest.max_backoff", 2*time.Second)

	v.SetDefault("query.timeout", 10*time.Second)
	v.SetDefault("query.max_retries", 3)
	v.SetDefault("query.min_backoff", 100*time.Millisecond)
	v.SetDefault("query.max_backoff", time.Second)
	v.SetDefault("query.max_output_chars", 4000)
	v.SetDefault("query.adhoc_max_rows", 100)
	v.SetDefault("query.breaker.consecutive_failures", 5)
	v.SetDefault("query.breaker.open_timeout", 30*time.Second)

	v.SetDefault("identity.cache_size", 8192)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("DATASET_LOCATION"); v != "" {
		cfg.Dataset.Location = v
	}
	if v := os.Getenv("DATASET_PROXY"); v != "" {
		cfg.Dataset.Proxy = v
	}
	if v := os.Getenv("REASONER_API_KEY"); v != "" {
		cfg.Reasoner.APIKey = v
	}
}

// MinOutputChars 渲染上限的下限，保证至少容得下表头或省略说明
const MinOutputChars = 200

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn 未配置")
	}
	if c.Query.MaxRetries < 1 {
		c.Query.MaxRetries = 1
	}
	// 0 表示不限制
	if c.Query.MaxOutputChars > 0 && c.Query.MaxOutputChars < MinOutputChars {
		return fmt.Errorf("query.max_output_chars 过小: %d，至少为 %d", c.Query.MaxOutputChars, MinOutputChars)
	}
	if c.Ingest.CommitRetries < 1 {
		c.Ingest.CommitRetries = 1
	}
	if c.Dataset.Source == "dir" || c.Dataset.Source == "zip" {
		c.Dataset.Location = filepath.Clean(c.Dataset.Location)
	}
	return nil
}
