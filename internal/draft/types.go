// Package draft 实现小屋公寓的蛇形抽签分配。
//
// 分配器是纯函数：给定相同的时段、公寓、愿望和随机种子，输出的分配结果、
// 抽签步骤与审计日志逐字节一致。包内不读时钟、不做 I/O、不持有共享状态。
package draft

import "time"

// 未分配原因
const (
	SkipNoWish      = "no_wish"
	SkipCapReached  = "cap_reached"
	SkipUnavailable = "no_apartment_available"
)

// 抽签步骤结果
const (
	OutcomeAllocated = "allocated"
	OutcomeSkipped   = "skipped"
)

// Period 可分配的时段，[StartDate, EndDate) 半开区间
type Period struct {
	ID                   string
	Description          string
	StartDate            time.Time
	EndDate              time.Time
	ExcludedApartmentIDs []string
}

// Apartment 公寓
type Apartment struct {
	ID        string
	Name      string
	SortOrder int
}

// Participant 参与者的展示信息，仅用于审计日志
type Participant struct {
	UserID string
	Name   string
	Email  string
}

// Wish 某参与者在某优先级上的愿望
type Wish struct {
	ID                  string
	UserID              string
	PeriodID            string
	Priority            int
	DesiredApartmentIDs []string
}

// Input 一次抽签的全部输入
// Seed 为空时自动生成并在结果中记录
type Input struct {
	Periods      []Period
	Apartments   []Apartment
	Wishes       []Wish
	Participants []Participant
	Seed         *int64
}

// Options 业务规则参数
type Options struct {
	MaxAllocationsPerUser int
	MaxPriority           int
}

// DefaultOptions 默认规则：每人最多 2 个分配，2 个优先级
func DefaultOptions() Options {
	return Options{MaxAllocationsPerUser: 2, MaxPriority: 2}
}

// Allocation 一条分配
type Allocation struct {
	PeriodID    string `json:"period_id"`
	ApartmentID string `json:"apartment_id"`
	UserID      string `json:"user_id"`
	WishID      string `json:"wish_id"`
	Priority    int    `json:"priority"`
	Round       int    `json:"round"`
}

// Pick 抽签过程中的一步（分配或跳过）
type Pick struct {
	Round       int    `json:"round"`
	Position    int    `json:"position"` // 本轮内的出场顺序，从 1 开始
	UserID      string `json:"user_id"`
	PeriodID    string `json:"period_id,omitempty"`
	ApartmentID string `json:"apartment_id,omitempty"`
	Outcome     string `json:"outcome"`
	Reason      string `json:"reason,omitempty"`
}

// Statistics 抽签统计
// 每人上限不超过 2 时，Zero + One + Two == TotalParticipants；
// ParticipantsByAllocationCount 覆盖任意上限
type Statistics struct {
	TotalParticipants               int            `json:"total_participants"`
	ParticipantsWithZeroAllocations int            `json:"participants_with_zero_allocations"`
	ParticipantsWithOneAllocation   int            `json:"participants_with_one_allocation"`
	ParticipantsWithTwoAllocations  int            `json:"participants_with_two_allocations"`
	ParticipantsByAllocationCount   map[int]int    `json:"participants_by_allocation_count"`
	TotalAllocations                int            `json:"total_allocations"`
	AllocationsPerPeriod            map[string]int `json:"allocations_per_period"`
}

// Result 抽签输出
type Result struct {
	Seed          int64        `json:"seed"`
	SeedGenerated bool         `json:"seed_generated"`
	Order         []string     `json:"order"` // 奇数轮的出场顺序（userID）
	Allocations   []Allocation `json:"allocations"`
	Picks         []Pick       `json:"picks"`
	Statistics    Statistics   `json:"statistics"`
	AuditLog      []string     `json:"audit_log"`
}
