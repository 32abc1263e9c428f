package api

import (
	"net/http"

	"CricketSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ToolHandler 提供给外部意图解析服务的工具接口
type ToolHandler struct {
	query  *service.QueryService
	logger *logrus.Logger
}

func NewToolHandler(query *service.QueryService, logger *logrus.Logger) *ToolHandler {
	return &ToolHandler{query: query, logger: logger}
}

type toolRequest struct {
	Args   map[string]interface{} `json:"args"`
	Format string                 `json:"format"`
}

type sqlRequest struct {
	SQL    string `json:"sql" binding:"required"`
	Format string `json:"format"`
}

// ListTools 工具目录：名称、说明、参数与结果列
// GET /api/tools
func (h *ToolHandler) ListTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": h.query.ListTools()})
}

// RunTool 执行一个工具
// POST /api/tools/:name  {"args": {"team_a": "CSK", "team_b": "MI"}, "format": "table"}
func (h *ToolHandler) RunTool(c *gin.Context) {
	name := c.Param("name")
	var req toolRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorBody("invalid_operation", "请求体不是合法的 JSON: "+err.Error()))
			return
		}
	}
	if req.Format == "" {
		req.Format = c.Query("format")
	}

	resp, err := h.query.RunTool(c.Request.Context(), name, req.Args, req.Format)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RunSQL 只读直接 SQL
// POST /api/sql  {"sql": "SELECT ...", "format": "table"}
func (h *ToolHandler) RunSQL(c *gin.Context) {
	var req sqlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_operation", "sql 不能为空"))
		return
	}
	resp, err := h.query.RunSQL(c.Request.Context(), req.SQL, req.Format)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Schema 数据概况
// GET /api/schema
func (h *ToolHandler) Schema(c *gin.Context) {
	guide, err := h.query.SchemaGuide(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, guide)
}
