package api

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"CricketSync/internal/config"
	"CricketSync/internal/service"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type IngestHandler struct {
	ingest *service.IngestService
	logger *logrus.Logger
}

func NewIngestHandler(ingest *service.IngestService, logger *logrus.Logger) *IngestHandler {
	return &IngestHandler{ingest: ingest, logger: logger}
}

// ingestRequest 数据源与位置只能由配置决定，请求只允许收窄匹配规则
type ingestRequest struct {
	Source   string `json:"source"`
	Location string `json:"location"`
	Pattern  string `json:"pattern"`
}

// Ingest 触发一次批量入库，使用配置的数据源
// POST /api/ingest  {"pattern": "2019/*.json"}
func (h *IngestHandler) Ingest(c *gin.Context) {
	var override *config.DatasetConfig
	if c.Request.ContentLength != 0 {
		var req ingestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorBody("invalid_operation", "请求体不是合法的 JSON: "+err.Error()))
			return
		}
		if req.Source != "" || req.Location != "" {
			c.JSON(http.StatusBadRequest, errorBody("invalid_operation", "数据源与位置只能在配置文件中指定"))
			return
		}
		if req.Pattern != "" {
			if err := checkPattern(req.Pattern); err != nil {
				c.JSON(http.StatusBadRequest, errorBody("invalid_operation", err.Error()))
				return
			}
			ds := h.ingest.Dataset()
			ds.Pattern = req.Pattern
			override = &ds
		}
	}

	report, err := h.ingest.Run(c.Request.Context(), override)
	if errors.Is(err, service.ErrIngestRunning) {
		c.JSON(http.StatusConflict, errorBody("conflict", err.Error()))
		return
	}
	if err != nil {
		if report != nil {
			h.logger.WithError(err).WithField("batch_id", report.BatchID).Error("入库批次中止")
		}
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// checkPattern 匹配规则必须是配置位置下的相对路径
func checkPattern(pattern string) error {
	if !doublestar.ValidatePattern(pattern) {
		return errors.New("匹配规则不合法: " + pattern)
	}
	if path.IsAbs(pattern) || strings.Contains(pattern, `\`) {
		return errors.New("匹配规则必须是相对路径: " + pattern)
	}
	for _, seg := range strings.Split(pattern, "/") {
		if seg == ".." {
			return errors.New("匹配规则不能跳出数据目录: " + pattern)
		}
	}
	return nil
}
