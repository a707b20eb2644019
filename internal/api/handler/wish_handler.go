package handler

import (
	"github.com/gin-gonic/gin"

	"my-page/backend/internal/dto"
	"my-page/backend/internal/service"
	"my-page/backend/pkg/response"
)

// WishHandler 愿望模块 HTTP 处理器
type WishHandler struct {
	wishSvc service.WishService
}

// NewWishHandler 创建 WishHandler
func NewWishHandler(wishSvc service.WishService) *WishHandler {
	return &WishHandler{wishSvc: wishSvc}
}

// SubmitWish 提交愿望（同一优先级再次提交即覆盖）
// POST /api/v1/drawings/:id/wishes
func (h *WishHandler) SubmitWish(c *gin.Context) {
	var req dto.SubmitWishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	wish, err := h.wishSvc.Submit(c.Request.Context(), c.Param("id"), &req, caller)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, wish)
}

// ListWishes 获取抽签的全部愿望（管理员）
// GET /api/v1/drawings/:id/wishes
func (h *WishHandler) ListWishes(c *gin.Context) {
	wishes, err := h.wishSvc.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": wishes})
}

// ListMyWishes 获取当前用户的愿望
// GET /api/v1/drawings/:id/wishes/my
func (h *WishHandler) ListMyWishes(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	wishes, err := h.wishSvc.ListMine(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": wishes})
}

// DeleteWish 删除愿望（本人或管理员）
// DELETE /api/v1/drawings/:id/wishes/:wishId
func (h *WishHandler) DeleteWish(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	if err := h.wishSvc.Delete(c.Request.Context(), c.Param("id"), c.Param("wishId"), caller); err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, nil)
}

// ImportWishes 从 CSV / XLSX 批量导入愿望
// POST /api/v1/drawings/:id/wishes/import (multipart, 字段名 file)
func (h *WishHandler) ImportWishes(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, 10001, "请上传 CSV 或 XLSX 文件")
		return
	}
	defer file.Close()

	rows, err := h.wishSvc.ParseImportFile(file, header.Filename)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	result, err := h.wishSvc.BulkImport(c.Request.Context(), c.Param("id"), rows, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}
