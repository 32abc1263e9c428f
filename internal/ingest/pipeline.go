// Package ingest 校验、归一化 CricSheet 比赛记录并逐场写入存储。
package ingest

import (
	"context"
	"errors"
	"sort"
	"time"

	"CricketSync/internal/apperr"
	"CricketSync/internal/interfaces"
	"CricketSync/internal/metrics"
	"CricketSync/internal/model"
	"CricketSync/internal/retry"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// FileResult 单个文件的处理结果，失败时 Outcome 为空
type FileResult struct {
	Item     string              `json:"item"`
	MatchKey string              `json:"match_key,omitempty"`
	Outcome  model.IngestOutcome `json:"outcome,omitempty"`
	Err      error               `json:"-"`
	Error    string              `json:"error,omitempty"`
}

// BatchReport 一次批量入库的汇总
type BatchReport struct {
	BatchID   string       `json:"batch_id"`
	Source    string       `json:"source"`
	Started   time.Time    `json:"started"`
	Finished  time.Time    `json:"finished"`
	Inserted  int          `json:"inserted"`
	Replaced  int          `json:"replaced"`
	Unchanged int          `json:"unchanged"`
	Failed    int          `json:"failed"`
	Results   []FileResult `json:"results"`
}

func (r *BatchReport) add(res FileResult) {
	switch res.Outcome {
	case model.OutcomeInserted:
		r.Inserted++
	case model.OutcomeReplaced:
		r.Replaced++
	case model.OutcomeUnchanged:
		r.Unchanged++
	default:
		r.Failed++
	}
	if res.Err != nil {
		res.Error = res.Err.Error()
	}
	r.Results = append(r.Results, res)
}

// Pipeline 单写入者：调用方保证同一时间只有一个批次在运行
type Pipeline struct {
	repo    interfaces.MatchRepository
	logger  *logrus.Logger
	retry   retry.Config
	metrics *metrics.Metrics
}

func NewPipeline(repo interfaces.MatchRepository, logger *logrus.Logger, rc retry.Config, m *metrics.Metrics) *Pipeline {
	return &Pipeline{repo: repo, logger: logger, retry: rc, metrics: m}
}

// IngestRecord 处理一条原始记录。记录不合法返回 *RecordError；
// 提交遇到瞬时故障时按配置重试，重试耗尽返回 storage_unavailable。
func (p *Pipeline) IngestRecord(ctx context.Context, source, id string, data []byte) (string, model.IngestOutcome, error) {
	rec, err := Parse(source, id, data)
	if err != nil {
		p.metrics.IngestRecord(string(apperr.KindMalformedInput))
		return "", "", err
	}

	var outcome model.IngestOutcome
	err = retry.Do(ctx, p.retry, func(ctx context.Context) error {
		var serr error
		outcome, serr = p.repo.SaveMatch(ctx, rec)
		return serr
	}, func(attempt int, err error) {
		p.metrics.StorageRetry("ingest")
		p.logger.WithError(err).WithFields(logrus.Fields{
			"match_key": rec.Key,
			"attempt":   attempt,
		}).Warn("比赛入库失败，准备重试")
	})
	if err != nil {
		if retry.IsTransient(err) {
			err = apperr.Unavailable(source, err)
		} else {
			err = apperr.Wrap(apperr.KindInternal, source, err)
		}
		p.metrics.IngestRecord(string(apperr.KindOf(err)))
		return rec.Key, "", err
	}
	p.metrics.IngestRecord(string(outcome))
	return rec.Key, outcome, nil
}

// RunBatch 按名称顺序逐条入库。不合法的记录记日志后跳过；
// 存储不可用时中止批次，返回已处理部分的报告和错误。
func (p *Pipeline) RunBatch(ctx context.Context, src interfaces.RecordSource) (*BatchReport, error) {
	report := &BatchReport{
		BatchID: uuid.NewString(),
		Source:  src.Kind(),
		Started: time.Now(),
	}
	log := p.logger.WithFields(logrus.Fields{"batch_id": report.BatchID, "source": src.Kind()})

	items, err := src.List(ctx)
	if err != nil {
		report.Finished = time.Now()
		return report, apperr.Wrap(apperr.KindInternal, "list", err)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	log.Infof("开始入库，共 %s 个文件", humanize.Comma(int64(len(items))))

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			report.Finished = time.Now()
			return report, err
		}

		res := FileResult{Item: item.Name}
		data, err := src.Read(ctx, item)
		if err != nil {
			res.Err = &RecordError{Source: item.Name, Reason: "读取失败: " + err.Error()}
			report.add(res)
			log.WithError(err).WithField("item", item.Name).Warn("读取比赛文件失败，跳过")
			continue
		}

		res.MatchKey, res.Outcome, res.Err = p.IngestRecord(ctx, item.Name, item.ID, data)
		report.add(res)
		switch {
		case res.Err == nil:
			log.WithFields(logrus.Fields{"item": item.Name, "outcome": res.Outcome}).Debug("比赛入库完成")
		case apperr.Is(res.Err, apperr.KindMalformedInput):
			log.WithError(res.Err).WithField("item", item.Name).Warn("比赛记录不合法，跳过")
		case apperr.Is(res.Err, apperr.KindStorageUnavailable), errors.Is(res.Err, context.Canceled):
			report.Finished = time.Now()
			log.WithError(res.Err).WithField("item", item.Name).Error("存储不可用，中止本批次")
			return report, res.Err
		default:
			log.WithError(res.Err).WithField("item", item.Name).Error("比赛入库失败，跳过")
		}
	}

	report.Finished = time.Now()
	log.WithFields(logrus.Fields{
		"inserted":  report.Inserted,
		"replaced":  report.Replaced,
		"unchanged": report.Unchanged,
		"failed":    report.Failed,
	}).Infof("入库完成，耗时 %s（开始于 %s）", report.Finished.Sub(report.Started).Round(time.Millisecond), humanize.Time(report.Started))
	return report, nil
}
