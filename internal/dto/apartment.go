package dto

// ── 公寓模块 DTO ──

// CreateApartmentRequest 新增公寓请求
type CreateApartmentRequest struct {
	Name      string `json:"name"       binding:"required,min=1,max=100"`
	SortOrder int    `json:"sort_order" binding:"omitempty,min=0"`
}

// UpdateApartmentRequest 更新公寓请求
type UpdateApartmentRequest struct {
	Name      *string `json:"name"       binding:"omitempty,min=1,max=100"`
	SortOrder *int    `json:"sort_order" binding:"omitempty,min=0"`
	IsActive  *bool   `json:"is_active"`
}

// ApartmentResponse 公寓信息响应
type ApartmentResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
	IsActive  bool   `json:"is_active"`
}
