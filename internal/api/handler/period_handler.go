package handler

import (
	"github.com/gin-gonic/gin"

	"my-page/backend/internal/dto"
	"my-page/backend/internal/service"
	"my-page/backend/pkg/response"
)

// PeriodHandler 时段模块 HTTP 处理器
type PeriodHandler struct {
	periodSvc service.PeriodService
}

// NewPeriodHandler 创建 PeriodHandler
func NewPeriodHandler(periodSvc service.PeriodService) *PeriodHandler {
	return &PeriodHandler{periodSvc: periodSvc}
}

// ListPeriods 获取抽签的时段列表
// GET /api/v1/drawings/:id/periods
func (h *PeriodHandler) ListPeriods(c *gin.Context) {
	periods, err := h.periodSvc.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": periods})
}

// AddPeriod 新增时段
// POST /api/v1/drawings/:id/periods
func (h *PeriodHandler) AddPeriod(c *gin.Context) {
	var req dto.CreatePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	period, err := h.periodSvc.Add(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, period)
}

// BulkCreatePeriods 按周批量生成时段
// POST /api/v1/drawings/:id/periods/bulk
func (h *PeriodHandler) BulkCreatePeriods(c *gin.Context) {
	var req dto.BulkCreatePeriodsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	periods, err := h.periodSvc.BulkCreateWeekly(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, gin.H{"list": periods})
}

// UpdatePeriod 更新时段
// PUT /api/v1/drawings/:id/periods/:periodId
func (h *PeriodHandler) UpdatePeriod(c *gin.Context) {
	var req dto.UpdatePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	period, err := h.periodSvc.Update(c.Request.Context(), c.Param("id"), c.Param("periodId"), &req, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, period)
}

// DeletePeriod 删除时段及其愿望
// DELETE /api/v1/drawings/:id/periods/:periodId
func (h *PeriodHandler) DeletePeriod(c *gin.Context) {
	if err := h.periodSvc.Delete(c.Request.Context(), c.Param("id"), c.Param("periodId")); err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, nil)
}
