package dto

// ── 时段模块 DTO ──

// CreatePeriodRequest 新增时段请求
type CreatePeriodRequest struct {
	StartDate            string   `json:"start_date"             binding:"required"` // "2026-07-01"
	EndDate              string   `json:"end_date"               binding:"required"` // "2026-07-08"
	Description          string   `json:"description"            binding:"required,max=200"`
	Comment              string   `json:"comment"                binding:"omitempty,max=500"`
	SortOrder            *int     `json:"sort_order"             binding:"omitempty,min=0"`
	ExcludedApartmentIDs []string `json:"excluded_apartment_ids" binding:"omitempty,dive,uuid"`
}

// UpdatePeriodRequest 更新时段请求
type UpdatePeriodRequest struct {
	StartDate            *string   `json:"start_date"`
	EndDate              *string   `json:"end_date"`
	Description          *string   `json:"description"            binding:"omitempty,max=200"`
	Comment              *string   `json:"comment"                binding:"omitempty,max=500"`
	SortOrder            *int      `json:"sort_order"             binding:"omitempty,min=0"`
	ExcludedApartmentIDs *[]string `json:"excluded_apartment_ids" binding:"omitempty,dive,uuid"`
}

// BulkCreatePeriodsRequest 按周批量生成时段
// label_template 支持 {n} {week} {start} {end} 占位符
type BulkCreatePeriodsRequest struct {
	StartDate     string `json:"start_date"     binding:"required"`
	EndDate       string `json:"end_date"       binding:"required"`
	LabelTemplate string `json:"label_template" binding:"omitempty,max=150"`
	Comment       string `json:"comment"        binding:"omitempty,max=500"`
}

// PeriodResponse 时段信息响应
type PeriodResponse struct {
	ID                   string   `json:"id"`
	DrawingID            string   `json:"drawing_id"`
	StartDate            string   `json:"start_date"`
	EndDate              string   `json:"end_date"`
	Description          string   `json:"description"`
	Comment              string   `json:"comment,omitempty"`
	SortOrder            int      `json:"sort_order"`
	ExcludedApartmentIDs []string `json:"excluded_apartment_ids"`
}
