package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"my-page/backend/internal/service"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	icsContentType  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportExecution 导出执行记录为 Excel
// GET /api/v1/drawings/:id/executions/:executionId/export
func (h *ExportHandler) ExportExecution(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportExecution(c.Request.Context(), c.Param("id"), c.Param("executionId"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	setAttachment(c, filename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ExportMyCalendar 导出当前用户已发布分配的日历
// GET /api/v1/drawings/:id/allocations/my.ics
func (h *ExportHandler) ExportMyCalendar(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	data, filename, err := h.exportSvc.ExportMyCalendar(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	setAttachment(c, filename)
	c.Data(http.StatusOK, icsContentType, data)
}

// setAttachment 设置下载响应头
func setAttachment(c *gin.Context, filename string) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
}
