package dto

// ── 抽签模块 DTO ──

// CreateDrawingRequest 创建抽签请求
type CreateDrawingRequest struct {
	Season string `json:"season" binding:"required,min=2,max=100"`
}

// TransitionRequest 生命周期跳转请求
// drawn / published 只能通过抽签与发布产生
type TransitionRequest struct {
	Status string `json:"status" binding:"required,oneof=draft open locked"`
}

// DrawingListRequest 抽签列表查询参数
type DrawingListRequest struct {
	PaginationRequest
}

// DrawingResponse 抽签信息响应
type DrawingResponse struct {
	ID                   string  `json:"id"`
	Season               string  `json:"season"`
	Status               string  `json:"status"`
	OpenedAt             *string `json:"opened_at,omitempty"`
	LockedAt             *string `json:"locked_at,omitempty"`
	DrawnAt              *string `json:"drawn_at,omitempty"`
	PublishedAt          *string `json:"published_at,omitempty"`
	PublishedExecutionID *string `json:"published_execution_id,omitempty"`
	Version              int     `json:"version"`
	CreatedAt            string  `json:"created_at"`
}
