package draft

import (
	pkgerrors "my-page/backend/pkg/errors"
)

// Validate 检查输入的结构完整性
// 引用不存在的时段/公寓返回 ReferenceError，其余不合法输入返回 ValidationError
func Validate(in Input, opts Options) error {
	if opts.MaxAllocationsPerUser < 1 {
		return pkgerrors.Validation("max_allocations_per_user", "必须大于 0，当前为 %d", opts.MaxAllocationsPerUser)
	}
	if opts.MaxPriority < 1 {
		return pkgerrors.Validation("max_priority", "必须大于 0，当前为 %d", opts.MaxPriority)
	}

	apartments := make(map[string]struct{}, len(in.Apartments))
	for _, a := range in.Apartments {
		if a.ID == "" {
			return pkgerrors.Validation("apartment_id", "公寓 ID 不能为空")
		}
		if _, dup := apartments[a.ID]; dup {
			return pkgerrors.Validation("apartment_id", "公寓 %s 重复", a.ID)
		}
		apartments[a.ID] = struct{}{}
	}

	periods := make(map[string]struct{}, len(in.Periods))
	for _, p := range in.Periods {
		if p.ID == "" {
			return pkgerrors.Validation("period_id", "时段 ID 不能为空")
		}
		if _, dup := periods[p.ID]; dup {
			return pkgerrors.Validation("period_id", "时段 %s 重复", p.ID)
		}
		if !p.StartDate.Before(p.EndDate) {
			return pkgerrors.Validation("period", "时段 %s 的开始日期必须早于结束日期", p.ID)
		}
		for _, aid := range p.ExcludedApartmentIDs {
			if _, ok := apartments[aid]; !ok {
				return pkgerrors.Reference("apartment", aid, "period "+p.ID)
			}
		}
		periods[p.ID] = struct{}{}
	}

	type userPriority struct {
		userID   string
		priority int
	}
	seen := make(map[userPriority]string, len(in.Wishes))
	for _, w := range in.Wishes {
		referrer := "wish " + w.ID
		if w.UserID == "" {
			return pkgerrors.Validation("user_id", "愿望 %s 缺少用户", w.ID)
		}
		if _, ok := periods[w.PeriodID]; !ok {
			return pkgerrors.Reference("period", w.PeriodID, referrer)
		}
		if w.Priority < 1 || w.Priority > opts.MaxPriority {
			return pkgerrors.Validation("priority", "愿望 %s 的优先级 %d 超出范围 1..%d", w.ID, w.Priority, opts.MaxPriority)
		}
		if len(w.DesiredApartmentIDs) == 0 {
			return pkgerrors.Validation("desired_apartment_ids", "愿望 %s 未选择任何公寓", w.ID)
		}
		desired := make(map[string]struct{}, len(w.DesiredApartmentIDs))
		for _, aid := range w.DesiredApartmentIDs {
			if _, ok := apartments[aid]; !ok {
				return pkgerrors.Reference("apartment", aid, referrer)
			}
			if _, dup := desired[aid]; dup {
				return pkgerrors.Validation("desired_apartment_ids", "愿望 %s 重复选择公寓 %s", w.ID, aid)
			}
			desired[aid] = struct{}{}
		}
		key := userPriority{userID: w.UserID, priority: w.Priority}
		if other, dup := seen[key]; dup {
			return pkgerrors.Validation("priority", "用户 %s 的优先级 %d 重复（愿望 %s 与 %s）", w.UserID, w.Priority, other, w.ID)
		}
		seen[key] = w.ID
	}

	return nil
}
