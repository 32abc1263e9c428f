// Package api 暴露工具、直接 SQL、数据概况与入库触发的 HTTP 接口。
package api

import (
	"net/http"
	"time"

	"CricketSync/internal/apperr"
	"CricketSync/internal/service"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// NewRouter 注册全部路由。gatherer 为 nil 时不暴露 /metrics
func NewRouter(query *service.QueryService, ingest *service.IngestService, gatherer prometheus.Gatherer, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	// 注册ppof 方便调试和监测性能问题
	pprof.Register(r)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	tools := NewToolHandler(query, logger)
	r.GET("/api/tools", tools.ListTools)
	r.POST("/api/tools/:name", tools.RunTool)
	r.POST("/api/sql", tools.RunSQL)
	r.GET("/api/schema", tools.Schema)

	if ingest != nil {
		r.POST("/api/ingest", NewIngestHandler(ingest, logger).Ingest)
	}
	return r
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Round(time.Microsecond),
		}).Debug("HTTP 请求")
	}
}

func errorBody(kind, message string) gin.H {
	return gin.H{"error": gin.H{"kind": kind, "message": message}}
}

// writeError invalid_operation → 400，storage_unavailable → 503，其余 500
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	kind := apperr.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case apperr.KindInvalidOperation, apperr.KindMalformedInput:
		status = http.StatusBadRequest
	case apperr.KindStorageUnavailable:
		status = http.StatusServiceUnavailable
	default:
		logger.WithError(err).WithField("path", c.FullPath()).Error("请求处理失败")
	}
	c.JSON(status, errorBody(string(kind), err.Error()))
}
