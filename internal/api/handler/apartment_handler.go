package handler

import (
	"github.com/gin-gonic/gin"

	"my-page/backend/internal/dto"
	"my-page/backend/internal/service"
	"my-page/backend/pkg/response"
)

// ApartmentHandler 公寓模块 HTTP 处理器
type ApartmentHandler struct {
	apartmentSvc service.ApartmentService
}

// NewApartmentHandler 创建 ApartmentHandler
func NewApartmentHandler(apartmentSvc service.ApartmentService) *ApartmentHandler {
	return &ApartmentHandler{apartmentSvc: apartmentSvc}
}

// ListApartments 获取公寓列表
// GET /api/v1/apartments?include_inactive=true（停用公寓仅管理员可见）
func (h *ApartmentHandler) ListApartments(c *gin.Context) {
	role, ok := MustGetRole(c)
	if !ok {
		return
	}
	includeInactive := role == "admin" && c.Query("include_inactive") == "true"

	list, err := h.apartmentSvc.List(c.Request.Context(), includeInactive)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// CreateApartment 新增公寓
// POST /api/v1/apartments
func (h *ApartmentHandler) CreateApartment(c *gin.Context) {
	var req dto.CreateApartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	apartment, err := h.apartmentSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, apartment)
}

// UpdateApartment 更新公寓（含启用 / 停用）
// PUT /api/v1/apartments/:id
func (h *ApartmentHandler) UpdateApartment(c *gin.Context) {
	var req dto.UpdateApartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	apartment, err := h.apartmentSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, apartment)
}
