// Package metrics 入库与查询的 Prometheus 指标。所有方法对 nil 接收者安全。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cricketsync"

type Metrics struct {
	ingestRecords   *prometheus.CounterVec
	queryRequests   *prometheus.CounterVec
	queryDuration   *prometheus.HistogramVec
	storageRetries  *prometheus.CounterVec
	breakerRejected prometheus.Counter
}

// New 在 reg 上注册全部指标；reg 为 nil 时指标只在进程内累计，不对外暴露
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ingestRecords: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_records_total",
			Help:      "Match records processed by ingestion, by outcome.",
		}, []string{"outcome"}),
		queryRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_requests_total",
			Help:      "Catalog and ad-hoc query requests, by operation and status.",
		}, []string{"operation", "status"}),
		queryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Time spent executing queries against storage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"operation"}),
		storageRetries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_retries_total",
			Help:      "Retries caused by transient storage failures.",
		}, []string{"path"}),
		breakerRejected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_breaker_rejections_total",
			Help:      "Queries rejected while the storage circuit breaker was open.",
		}),
	}
}

func (m *Metrics) IngestRecord(outcome string) {
	if m == nil {
		return
	}
	m.ingestRecords.WithLabelValues(outcome).Inc()
}

func (m *Metrics) QueryRequest(operation, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.queryRequests.WithLabelValues(operation, status).Inc()
	m.queryDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// StorageRetry path 为 ingest 或 query
func (m *Metrics) StorageRetry(path string) {
	if m == nil {
		return
	}
	m.storageRetries.WithLabelValues(path).Inc()
}

func (m *Metrics) BreakerRejected() {
	if m == nil {
		return
	}
	m.breakerRejected.Inc()
}
