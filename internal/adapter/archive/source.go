// Package archive 从 zip 包读取比赛 JSON，zip 可以是本地文件，也可以是下载地址（CricSheet 按赛事提供整包下载）。
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"CricketSync/internal/adapter"
	"CricketSync/internal/config"
	"CricketSync/internal/ingest"
	"CricketSync/internal/interfaces"
	"CricketSync/internal/model"
	"CricketSync/internal/utils/httpclient"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/zip"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const (
	KindZip = "zip"
	KindURL = "url"
)

// maxEntrySize 单个比赛文件解压后的上限
const maxEntrySize = 64 << 20

func init() {
	adapter.Register(KindZip, func(cfg *config.DatasetConfig, logger *logrus.Logger) (interfaces.RecordSource, error) {
		return NewFile(afero.NewOsFs(), cfg.Location, cfg.Pattern, logger)
	})
	adapter.Register(KindURL, func(cfg *config.DatasetConfig, logger *logrus.Logger) (interfaces.RecordSource, error) {
		return NewURL(cfg, logger)
	})
}

// Source zip 包数据源。包内容首次 List 时加载并留在内存中
type Source struct {
	kind    string
	pattern string
	logger  *logrus.Logger
	fetch   func(ctx context.Context) ([]byte, error)

	mu      sync.Mutex
	entries map[string]*zip.File
}

// NewFile 读取本地 zip 文件
func NewFile(fsys afero.Fs, path, pattern string, logger *logrus.Logger) (*Source, error) {
	if _, err := fsys.Stat(path); err != nil {
		return nil, fmt.Errorf("zip 文件不可用: %w", err)
	}
	return newSource(KindZip, pattern, logger, func(context.Context) ([]byte, error) {
		return afero.ReadFile(fsys, path)
	})
}

// NewURL 下载 cfg.Location 指向的 zip 包，代理与超时取自 cfg
func NewURL(cfg *config.DatasetConfig, logger *logrus.Logger) (*Source, error) {
	if cfg.Location == "" {
		return nil, fmt.Errorf("缺少下载地址")
	}
	client := httpclient.NewHTTPClient(cfg, logger)
	location := cfg.Location
	return newSource(KindURL, cfg.Pattern, logger, func(ctx context.Context) ([]byte, error) {
		logger.WithField("url", location).Info("开始下载比赛数据包")
		return httpclient.Download(ctx, client, location)
	})
}

func newSource(kind, pattern string, logger *logrus.Logger, fetch func(context.Context) ([]byte, error)) (*Source, error) {
	if pattern == "" {
		pattern = "**/*.json"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("文件匹配规则不合法: %s", pattern)
	}
	return &Source{kind: kind, pattern: pattern, logger: logger, fetch: fetch}, nil
}

func (s *Source) Kind() string { return s.kind }

func (s *Source) List(ctx context.Context) ([]model.SourceItem, error) {
	entries, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]model.SourceItem, 0, len(entries))
	for name := range entries {
		items = append(items, model.SourceItem{ID: ingest.KeyFromName(name), Name: name})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (s *Source) Read(ctx context.Context, item model.SourceItem) ([]byte, error) {
	entries, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	f, ok := entries[item.Name]
	if !ok {
		return nil, fmt.Errorf("zip 中不存在: %s", item.Name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("打开 zip 条目失败: %w, name: %s", err, item.Name)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("解压失败: %w, name: %s", err, item.Name)
	}
	if len(data) > maxEntrySize {
		return nil, fmt.Errorf("zip 条目过大: %s", item.Name)
	}
	return data, nil
}

func (s *Source) load(ctx context.Context) (map[string]*zip.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries != nil {
		return s.entries, nil
	}

	data, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("解析 zip 失败: %w", err)
	}
	entries := make(map[string]*zip.File)
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		ok, err := doublestar.Match(s.pattern, f.Name)
		if err != nil {
			return nil, fmt.Errorf("匹配文件失败: %w", err)
		}
		if ok {
			entries[f.Name] = f
		}
	}
	s.logger.WithFields(logrus.Fields{
		"source":  s.kind,
		"entries": len(zr.File),
		"matched": len(entries),
	}).Info("比赛数据包加载完成")
	s.entries = entries
	return entries, nil
}
