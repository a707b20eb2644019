package dto

// ── 愿望模块 DTO ──

// SubmitWishRequest 提交愿望请求
// user_id 仅管理员代提交时使用，默认为当前用户
type SubmitWishRequest struct {
	UserID              string   `json:"user_id"               binding:"omitempty,uuid"`
	PeriodID            string   `json:"period_id"             binding:"required,uuid"`
	Priority            int      `json:"priority"              binding:"required,min=1"`
	DesiredApartmentIDs []string `json:"desired_apartment_ids" binding:"required,min=1,dive,uuid"`
	Comment             string   `json:"comment"               binding:"omitempty,max=500"`
}

// WishResponse 愿望信息响应
type WishResponse struct {
	ID                  string     `json:"id"`
	DrawingID           string     `json:"drawing_id"`
	User                *UserBrief `json:"user,omitempty"`
	UserID              string     `json:"user_id"`
	PeriodID            string     `json:"period_id"`
	Priority            int        `json:"priority"`
	DesiredApartmentIDs []string   `json:"desired_apartment_ids"`
	Comment             string     `json:"comment,omitempty"`
	UpdatedAt           string     `json:"updated_at"`
}

// ImportWishRow 导入层解析出的一行
// 名称到 ID 的解析由愿望服务完成
type ImportWishRow struct {
	Line                  int
	Email                 string
	PeriodDescription     string
	DesiredApartmentNames []string
	Priority              int
	Comment               string
	ParseError            string // 解析阶段已发现的问题，非空时该行直接记为失败
}

// ImportWishResponse 批量导入结果
type ImportWishResponse struct {
	TotalLines   int               `json:"total_lines"`
	SuccessCount int               `json:"success_count"`
	ErrorCount   int               `json:"error_count"`
	Errors       []ImportWishError `json:"errors,omitempty"`
}

// ImportWishError 导入错误详情
type ImportWishError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}
