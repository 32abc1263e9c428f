// Package dir 从本地目录读取比赛 JSON 文件。
package dir

import (
	"context"
	"fmt"
	"io/fs"
	"sort"

	"CricketSync/internal/adapter"
	"CricketSync/internal/config"
	"CricketSync/internal/ingest"
	"CricketSync/internal/interfaces"
	"CricketSync/internal/model"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const Kind = "dir"

func init() {
	adapter.Register(Kind, func(cfg *config.DatasetConfig, logger *logrus.Logger) (interfaces.RecordSource, error) {
		return New(afero.NewOsFs(), cfg.Location, cfg.Pattern, logger)
	})
}

type Source struct {
	root    string
	pattern string
	fs      afero.Fs
	logger  *logrus.Logger
}

// New root 下按 doublestar 规则匹配文件，pattern 为空时取全部 .json
func New(fsys afero.Fs, root, pattern string, logger *logrus.Logger) (*Source, error) {
	if pattern == "" {
		pattern = "**/*.json"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("文件匹配规则不合法: %s", pattern)
	}
	info, err := fsys.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("数据目录不可用: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("数据目录不是目录: %s", root)
	}
	return &Source{
		root:    root,
		pattern: pattern,
		fs:      afero.NewBasePathFs(fsys, root),
		logger:  logger,
	}, nil
}

func (s *Source) Kind() string { return Kind }

func (s *Source) List(ctx context.Context) ([]model.SourceItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	names, err := doublestar.Glob(afero.NewIOFS(s.fs), s.pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("遍历数据目录失败: %w, root: %s", err, s.root)
	}
	sort.Strings(names)
	items := make([]model.SourceItem, 0, len(names))
	for _, name := range names {
		items = append(items, model.SourceItem{ID: ingest.KeyFromName(name), Name: name})
	}
	s.logger.WithFields(logrus.Fields{"root": s.root, "files": len(items)}).Debug("数据目录扫描完成")
	return items, nil
}

func (s *Source) Read(ctx context.Context, item model.SourceItem) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !fs.ValidPath(item.Name) {
		return nil, fmt.Errorf("非法的文件路径: %s", item.Name)
	}
	return afero.ReadFile(s.fs, item.Name)
}
