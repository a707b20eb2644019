package handler

import (
	"github.com/gin-gonic/gin"

	"my-page/backend/internal/dto"
	"my-page/backend/internal/service"
	"my-page/backend/pkg/response"
)

// DrawingHandler 抽签模块 HTTP 处理器
type DrawingHandler struct {
	drawingSvc service.DrawingService
}

// NewDrawingHandler 创建 DrawingHandler
func NewDrawingHandler(drawingSvc service.DrawingService) *DrawingHandler {
	return &DrawingHandler{drawingSvc: drawingSvc}
}

// CreateDrawing 创建抽签
// POST /api/v1/drawings
func (h *DrawingHandler) CreateDrawing(c *gin.Context) {
	var req dto.CreateDrawingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	drawing, err := h.drawingSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, drawing)
}

// ListDrawings 分页查询抽签
// GET /api/v1/drawings?page=1&page_size=20
func (h *DrawingHandler) ListDrawings(c *gin.Context) {
	var req dto.DrawingListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.drawingSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetDrawing 获取抽签详情
// GET /api/v1/drawings/:id
func (h *DrawingHandler) GetDrawing(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "抽签ID不能为空")
		return
	}

	drawing, err := h.drawingSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, drawing)
}

// TransitionDrawing 生命周期跳转（open / locked / 回退）
// POST /api/v1/drawings/:id/transition
func (h *DrawingHandler) TransitionDrawing(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "抽签ID不能为空")
		return
	}

	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	drawing, err := h.drawingSvc.Transition(c.Request.Context(), id, req.Status, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, drawing)
}

// DeleteDrawing 删除抽签（仅 draft / open / locked）
// DELETE /api/v1/drawings/:id
func (h *DrawingHandler) DeleteDrawing(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "抽签ID不能为空")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.drawingSvc.Delete(c.Request.Context(), id, callerID); err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, nil)
}
