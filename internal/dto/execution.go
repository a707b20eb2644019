package dto

// ── 执行记录模块 DTO ──

// DrawRequest 执行抽签请求
// seed 为空时自动生成
type DrawRequest struct {
	Seed *int64 `json:"seed"`
}

// ExecutionSummary 执行记录摘要
type ExecutionSummary struct {
	ID              string  `json:"id"`
	DrawingID       string  `json:"drawing_id"`
	BaseExecutionID *string `json:"base_execution_id,omitempty"`
	ExecutedAt      string  `json:"executed_at"`
	ExecutedBy      string  `json:"executed_by"`
	RandomSeed      *int64  `json:"random_seed"`
	EffectiveSeed   int64   `json:"effective_seed"`
	AllocationCount int     `json:"allocation_count"`
	Published       bool    `json:"published"`
}

// ExecutionDetail 执行记录详情
type ExecutionDetail struct {
	ExecutionSummary
	Allocations []AllocationResponse `json:"allocations"`
	Statistics  StatisticsResponse   `json:"statistics"`
	AuditLog    []string             `json:"audit_log"`
}

// AllocationResponse 分配信息
type AllocationResponse struct {
	ID                string `json:"id"`
	PeriodID          string `json:"period_id"`
	PeriodDescription string `json:"period_description,omitempty"`
	StartDate         string `json:"start_date,omitempty"`
	EndDate           string `json:"end_date,omitempty"`
	ApartmentID       string `json:"apartment_id"`
	ApartmentName     string `json:"apartment_name,omitempty"`
	UserID            string `json:"user_id"`
	UserName          string `json:"user_name,omitempty"`
	Type              string `json:"allocation_type"`
	Comment           string `json:"comment,omitempty"`
	AllocatedAt       string `json:"allocated_at"`
}

// StatisticsResponse 抽签统计
type StatisticsResponse struct {
	TotalParticipants               int            `json:"total_participants"`
	ParticipantsWithZeroAllocations int            `json:"participants_with_zero_allocations"`
	ParticipantsWithOneAllocation   int            `json:"participants_with_one_allocation"`
	ParticipantsWithTwoAllocations  int            `json:"participants_with_two_allocations"`
	ParticipantsByAllocationCount   map[int]int    `json:"participants_by_allocation_count"`
	TotalAllocations                int            `json:"total_allocations"`
	AllocationsPerPeriod            map[string]int `json:"allocations_per_period"`
}

// CompareExecutionsResponse 两次执行的差异
type CompareExecutionsResponse struct {
	ExecutionA string               `json:"execution_a"`
	ExecutionB string               `json:"execution_b"`
	Common     []AllocationResponse `json:"common"`
	OnlyInA    []AllocationResponse `json:"only_in_a"`
	OnlyInB    []AllocationResponse `json:"only_in_b"`
}

// ReviseExecutionRequest 人工调整请求
type ReviseExecutionRequest struct {
	Changes []AllocationChange `json:"changes" binding:"required,min=1,dive"`
}

// AllocationChange 单条人工调整
type AllocationChange struct {
	Action      string `json:"action"       binding:"required,oneof=assign remove"`
	PeriodID    string `json:"period_id"    binding:"required,uuid"`
	ApartmentID string `json:"apartment_id" binding:"required,uuid"`
	UserID      string `json:"user_id"      binding:"omitempty,uuid"` // assign 时必填
	Comment     string `json:"comment"      binding:"omitempty,max=500"`
}

// PublishedAllocationsResponse 已发布的分配结果
type PublishedAllocationsResponse struct {
	DrawingID   string               `json:"drawing_id"`
	ExecutionID string               `json:"execution_id"`
	PublishedAt string               `json:"published_at"`
	Allocations []AllocationResponse `json:"allocations"`
}
