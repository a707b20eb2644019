package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"my-page/backend/internal/dto"
	"my-page/backend/internal/service"
	"my-page/backend/pkg/response"
)

// ExecutionHandler 抽签执行与发布 HTTP 处理器
type ExecutionHandler struct {
	executionSvc service.ExecutionService
}

// NewExecutionHandler 创建 ExecutionHandler
func NewExecutionHandler(executionSvc service.ExecutionService) *ExecutionHandler {
	return &ExecutionHandler{executionSvc: executionSvc}
}

// Draw 运行抽签
// POST /api/v1/drawings/:id/executions  body: {"seed": 42}（可选）
func (h *ExecutionHandler) Draw(c *gin.Context) {
	var req dto.DrawRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	detail, err := h.executionSvc.Draw(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, detail)
}

// ListExecutions 获取抽签的执行记录
// GET /api/v1/drawings/:id/executions
func (h *ExecutionHandler) ListExecutions(c *gin.Context) {
	list, err := h.executionSvc.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// GetExecution 获取执行记录详情（含审计日志）
// GET /api/v1/drawings/:id/executions/:executionId
func (h *ExecutionHandler) GetExecution(c *gin.Context) {
	detail, err := h.executionSvc.Get(c.Request.Context(), c.Param("id"), c.Param("executionId"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, detail)
}

// CompareExecutions 对比两次执行
// GET /api/v1/drawings/:id/executions/compare?a=xxx&b=yyy
func (h *ExecutionHandler) CompareExecutions(c *gin.Context) {
	a, b := c.Query("a"), c.Query("b")
	if a == "" || b == "" {
		response.BadRequest(c, 10001, "a 与 b 不能为空")
		return
	}

	result, err := h.executionSvc.Compare(c.Request.Context(), c.Param("id"), a, b)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// PublishExecution 发布执行记录
// POST /api/v1/drawings/:id/executions/:executionId/publish
func (h *ExecutionHandler) PublishExecution(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	drawing, err := h.executionSvc.Publish(c.Request.Context(), c.Param("id"), c.Param("executionId"), callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, drawing)
}

// ReviseExecution 基于执行记录做人工调整
// POST /api/v1/drawings/:id/executions/:executionId/revise
func (h *ExecutionHandler) ReviseExecution(c *gin.Context) {
	var req dto.ReviseExecutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	detail, err := h.executionSvc.Revise(c.Request.Context(), c.Param("id"), c.Param("executionId"), &req, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, detail)
}

// Unpublish 撤销发布
// POST /api/v1/drawings/:id/unpublish
func (h *ExecutionHandler) Unpublish(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	drawing, err := h.executionSvc.Unpublish(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, drawing)
}

// GetPublishedAllocations 获取已发布的分配结果
// GET /api/v1/drawings/:id/allocations
func (h *ExecutionHandler) GetPublishedAllocations(c *gin.Context) {
	result, err := h.executionSvc.GetPublishedAllocations(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// GetMyAllocations 获取当前用户已发布的分配
// GET /api/v1/drawings/:id/allocations/my
func (h *ExecutionHandler) GetMyAllocations(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.executionSvc.GetMyAllocations(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}
