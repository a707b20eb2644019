package model

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// 分配来源
const (
	AllocationTypeDrawn  = "drawn"
	AllocationTypeManual = "manual"
)

// Allocation 单条分配结果（以 JSONB 数组形式存放在 executions.allocations）
type Allocation struct {
	AllocationID string    `json:"allocation_id"`
	PeriodID     string    `json:"period_id"`
	ApartmentID  string    `json:"apartment_id"`
	UserID       string    `json:"user_id"`
	Type         string    `json:"allocation_type"` // drawn | manual
	Comment      string    `json:"comment,omitempty"`
	AllocatedAt  time.Time `json:"allocated_at"`
	WishID       string    `json:"wish_id,omitempty"`
	Priority     int       `json:"priority,omitempty"`
	Round        int       `json:"round,omitempty"`
}

// ExecutionStatistics 单次执行的统计快照
type ExecutionStatistics struct {
	TotalParticipants               int            `json:"total_participants"`
	ParticipantsWithZeroAllocations int            `json:"participants_with_zero_allocations"`
	ParticipantsWithOneAllocation   int            `json:"participants_with_one_allocation"`
	ParticipantsWithTwoAllocations  int            `json:"participants_with_two_allocations"`
	ParticipantsByAllocationCount   map[int]int    `json:"participants_by_allocation_count"`
	TotalAllocations                int            `json:"total_allocations"`
	AllocationsPerPeriod            map[string]int `json:"allocations_per_period"`
}

// Execution 抽签执行记录，对应 executions（只追加，不修改）
type Execution struct {
	ExecutionID     string                                  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"execution_id"`
	DrawingID       string                                  `gorm:"type:uuid;not null"                             json:"drawing_id"`
	BaseExecutionID *string                                 `gorm:"type:uuid"                                      json:"base_execution_id,omitempty"`
	ExecutedAt      time.Time                               `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"executed_at"`
	ExecutedBy      string                                  `gorm:"type:uuid;not null"                             json:"executed_by"`
	RandomSeed      *int64                                  `json:"random_seed,omitempty"` // 管理员指定的种子；自动生成时为空
	EffectiveSeed   int64                                   `gorm:"not null"                                       json:"effective_seed"`
	AuditLog        string                                  `gorm:"type:text;not null;default:''"                  json:"-"`
	Allocations     datatypes.JSONSlice[Allocation]         `gorm:"type:jsonb;not null;default:'[]'"               json:"allocations"`
	AllocationCount int                                     `gorm:"not null;default:0"                             json:"allocation_count"`
	Statistics      datatypes.JSONType[ExecutionStatistics] `gorm:"type:jsonb;not null;default:'{}'"               json:"statistics"`
}

func (Execution) TableName() string { return "executions" }

// AuditLines 返回按行切分的审计日志
func (e *Execution) AuditLines() []string {
	if e.AuditLog == "" {
		return []string{}
	}
	return strings.Split(e.AuditLog, "\n")
}

// SetAuditLines 以换行拼接写入审计日志
func (e *Execution) SetAuditLines(lines []string) {
	e.AuditLog = strings.Join(lines, "\n")
}
