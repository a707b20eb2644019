package draft

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// Allocator 蛇形抽签分配器，无状态，可并发复用
type Allocator struct {
	opts Options
}

// New 创建分配器
func New(opts Options) *Allocator {
	return &Allocator{opts: opts}
}

// Options 返回分配器使用的规则参数
func (a *Allocator) Options() Options {
	return a.opts
}

type slot struct {
	periodID    string
	apartmentID string
}

// run 单次抽签的工作集
type run struct {
	opts        Options
	periods     map[string]Period
	apartments  map[string]Apartment
	people      map[string]Participant
	wishes      map[string]map[int]Wish // userID -> priority -> wish
	taken       map[slot]string         // (period, apartment) -> userID
	counts      map[string]int          // userID -> 已分配数
	allocations []Allocation
	picks       []Pick
	log         []string
}

// Run 执行一次抽签
// 输入结构不合法时直接返回错误，不产生任何分配；容量不足只体现在统计和审计日志中
func (a *Allocator) Run(in Input) (*Result, error) {
	if err := Validate(in, a.opts); err != nil {
		return nil, err
	}

	seed, generated, err := resolveSeed(in.Seed)
	if err != nil {
		return nil, err
	}

	r := newRun(in, a.opts)

	userIDs := make([]string, 0, len(r.wishes))
	for id := range r.wishes {
		userIDs = append(userIDs, id)
	}
	order := ShuffleOrder(userIDs, seed)

	r.logf("抽签开始：%d 名参与者，%d 个时段，%d 套公寓，共 %d 轮，每人最多 %d 个分配",
		len(order), len(in.Periods), len(in.Apartments), a.opts.MaxPriority, a.opts.MaxAllocationsPerUser)
	if generated {
		r.logf("随机种子：%d（自动生成）", seed)
	} else {
		r.logf("随机种子：%d（指定）", seed)
	}
	r.logf("抽签顺序：")
	for i, id := range order {
		r.logf("  %d. %s", i+1, r.who(id))
	}

	for round := 1; round <= a.opts.MaxPriority; round++ {
		direction := "正序"
		if round%2 == 0 {
			direction = "倒序"
		}
		r.logf("第 %d 轮（%s）", round, direction)
		for pos, userID := range roundOrder(order, round) {
			r.pick(round, pos+1, userID)
		}
	}

	stats := r.statistics(in.Periods, order)
	r.logStatistics(stats, in.Periods)

	return &Result{
		Seed:          seed,
		SeedGenerated: generated,
		Order:         order,
		Allocations:   r.allocations,
		Picks:         r.picks,
		Statistics:    stats,
		AuditLog:      r.log,
	}, nil
}

func resolveSeed(seed *int64) (int64, bool, error) {
	if seed != nil {
		return *seed, false, nil
	}
	s, err := NewSeed()
	if err != nil {
		return 0, false, err
	}
	return s, true, nil
}

func newRun(in Input, opts Options) *run {
	r := &run{
		opts:        opts,
		periods:     make(map[string]Period, len(in.Periods)),
		apartments:  make(map[string]Apartment, len(in.Apartments)),
		people:      make(map[string]Participant, len(in.Participants)),
		wishes:      make(map[string]map[int]Wish),
		taken:       make(map[slot]string),
		counts:      make(map[string]int),
		allocations: []Allocation{},
		picks:       []Pick{},
		log:         []string{},
	}
	for _, p := range in.Periods {
		r.periods[p.ID] = p
	}
	for _, ap := range in.Apartments {
		r.apartments[ap.ID] = ap
	}
	for _, p := range in.Participants {
		r.people[p.UserID] = p
	}
	for _, w := range in.Wishes {
		if r.wishes[w.UserID] == nil {
			r.wishes[w.UserID] = make(map[int]Wish)
		}
		r.wishes[w.UserID][w.Priority] = w
	}
	return r
}

// pick 处理某参与者在某轮的一次选择
func (r *run) pick(round, position int, userID string) {
	w, ok := r.wishes[userID][round]
	if !ok {
		r.skip(round, position, userID, "", SkipNoWish,
			fmt.Sprintf("未提交优先级 %d 的愿望", round))
		return
	}

	if r.counts[userID] >= r.opts.MaxAllocationsPerUser {
		r.skip(round, position, userID, w.PeriodID, SkipCapReached,
			fmt.Sprintf("已达每人上限 %d，放弃时段「%s」", r.opts.MaxAllocationsPerUser, r.periodName(w.PeriodID)))
		return
	}

	period := r.periods[w.PeriodID]
	for rank, aid := range w.DesiredApartmentIDs {
		if contains(period.ExcludedApartmentIDs, aid) {
			continue
		}
		key := slot{periodID: w.PeriodID, apartmentID: aid}
		if _, taken := r.taken[key]; taken {
			continue
		}
		r.taken[key] = userID
		r.counts[userID]++
		r.allocations = append(r.allocations, Allocation{
			PeriodID:    w.PeriodID,
			ApartmentID: aid,
			UserID:      userID,
			WishID:      w.ID,
			Priority:    w.Priority,
			Round:       round,
		})
		r.picks = append(r.picks, Pick{
			Round:       round,
			Position:    position,
			UserID:      userID,
			PeriodID:    w.PeriodID,
			ApartmentID: aid,
			Outcome:     OutcomeAllocated,
		})
		r.logf("  %d. %s 时段「%s」-> 公寓 %s（第 %d 志愿）",
			position, r.who(userID), r.periodName(w.PeriodID), r.apartmentName(aid), rank+1)
		return
	}

	names := make([]string, 0, len(w.DesiredApartmentIDs))
	for _, aid := range w.DesiredApartmentIDs {
		names = append(names, r.apartmentName(aid))
	}
	r.skip(round, position, userID, w.PeriodID, SkipUnavailable,
		fmt.Sprintf("时段「%s」无可用公寓（期望: %s）", r.periodName(w.PeriodID), strings.Join(names, ", ")))
}

func (r *run) skip(round, position int, userID, periodID, reason, detail string) {
	r.picks = append(r.picks, Pick{
		Round:    round,
		Position: position,
		UserID:   userID,
		PeriodID: periodID,
		Outcome:  OutcomeSkipped,
		Reason:   reason,
	})
	r.logf("  %d. %s 未分配 [%s] %s", position, r.who(userID), reason, detail)
}

func (r *run) statistics(periods []Period, order []string) Statistics {
	ids := make([]string, 0, len(periods))
	for _, p := range periods {
		ids = append(ids, p.ID)
	}
	return ComputeStatistics(ids, order, r.allocations)
}

// ComputeStatistics 按分配结果重新统计
// 所有时段与参与者都会出现在结果中，未分配的计为 0
func ComputeStatistics(periodIDs, participantIDs []string, allocations []Allocation) Statistics {
	stats := Statistics{
		TotalParticipants:             len(participantIDs),
		ParticipantsByAllocationCount: make(map[int]int),
		TotalAllocations:              len(allocations),
		AllocationsPerPeriod:          make(map[string]int, len(periodIDs)),
	}
	for _, id := range periodIDs {
		stats.AllocationsPerPeriod[id] = 0
	}
	counts := make(map[string]int, len(participantIDs))
	for _, a := range allocations {
		stats.AllocationsPerPeriod[a.PeriodID]++
		counts[a.UserID]++
	}
	for _, id := range participantIDs {
		n := counts[id]
		stats.ParticipantsByAllocationCount[n]++
		switch n {
		case 0:
			stats.ParticipantsWithZeroAllocations++
		case 1:
			stats.ParticipantsWithOneAllocation++
		case 2:
			stats.ParticipantsWithTwoAllocations++
		}
	}
	return stats
}

func (r *run) logStatistics(stats Statistics, periods []Period) {
	r.logf("统计：参与者 %d，分配 %d", stats.TotalParticipants, stats.TotalAllocations)

	counts := make([]int, 0, len(stats.ParticipantsByAllocationCount))
	for n := range stats.ParticipantsByAllocationCount {
		counts = append(counts, n)
	}
	sort.Ints(counts)
	for _, n := range counts {
		r.logf("  获得 %d 个分配：%d 人", n, stats.ParticipantsByAllocationCount[n])
	}
	for _, p := range periods {
		r.logf("  时段「%s」：%d", r.periodName(p.ID), stats.AllocationsPerPeriod[p.ID])
	}
}

// logf 追加一行审计日志，参数中的控制字符替换为空格，每条记录始终占一行
func (r *run) logf(format string, args ...interface{}) {
	r.log = append(r.log, strings.Map(flattenControl, fmt.Sprintf(format, args...)))
}

func flattenControl(c rune) rune {
	if unicode.IsControl(c) {
		return ' '
	}
	return c
}

// who 参与者展示名：Name <email>，缺失时回退为 userID
func (r *run) who(userID string) string {
	p, ok := r.people[userID]
	if !ok || p.Name == "" {
		return userID
	}
	if p.Email == "" {
		return p.Name
	}
	return fmt.Sprintf("%s <%s>", p.Name, p.Email)
}

func (r *run) periodName(id string) string {
	if p, ok := r.periods[id]; ok && p.Description != "" {
		return p.Description
	}
	return id
}

func (r *run) apartmentName(id string) string {
	if a, ok := r.apartments[id]; ok && a.Name != "" {
		return a.Name
	}
	return id
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
