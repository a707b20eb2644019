package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"my-page/backend/internal/draft"
	"my-page/backend/internal/dto"
	"my-page/backend/internal/model"
	pkgerrors "my-page/backend/pkg/errors"
)

const (
	changeAssign = "assign"
	changeRemove = "remove"
)

// ────────────────────── Revise ──────────────────────
//
// 在基准执行记录的快照上逐条应用 assign / remove，
// 结果仍须满足：同一 (时段, 公寓) 至多一条分配、每人分配数不超过上限

func (s *executionService) Revise(ctx context.Context, drawingID, baseExecutionID string, req *dto.ReviseExecutionRequest, callerID string) (*dto.ExecutionDetail, error) {
	var snap *ExecutionSnapshot
	err := withDrawingLock(ctx, s.locker, drawingID, func() error {
		drawing, err := loadDrawing(ctx, s.repo, s.logger, drawingID)
		if err != nil {
			return err
		}
		if err := requireStatus(drawing, opRevise, model.DrawingStatusDrawn); err != nil {
			return err
		}
		base, err := s.loadExecution(ctx, drawingID, baseExecutionID)
		if err != nil {
			return err
		}

		baseSnap, err := s.buildSnapshot(ctx, drawing, base)
		if err != nil {
			return err
		}

		executedAt := s.now().UTC()
		allocs := append([]model.Allocation{}, base.Allocations...)
		audit := append(base.AuditLines(), fmt.Sprintf("人工调整（基于执行 %s）：", base.ExecutionID))

		for i, change := range req.Changes {
			line, err := s.applyChange(ctx, baseSnap, &allocs, change, executedAt)
			if err != nil {
				return fmt.Errorf("第 %d 条调整: %w", i+1, err)
			}
			audit = append(audit, fmt.Sprintf("  %d. [%s] %s", i+1, model.AllocationTypeManual, line))
		}

		participants, err := s.participantIDs(ctx, drawingID, allocs)
		if err != nil {
			return err
		}
		periodIDs := make([]string, 0, len(baseSnap.Periods))
		for id := range baseSnap.Periods {
			periodIDs = append(periodIDs, id)
		}
		sort.Strings(periodIDs)

		stats := draft.ComputeStatistics(periodIDs, participants, toDraftAllocations(allocs))
		baseID := base.ExecutionID
		exec := &model.Execution{
			ExecutionID:     uuid.New().String(),
			DrawingID:       drawingID,
			BaseExecutionID: &baseID,
			ExecutedAt:      executedAt,
			ExecutedBy:      callerID,
			RandomSeed:      base.RandomSeed,
			EffectiveSeed:   base.EffectiveSeed,
			Allocations:     datatypes.JSONSlice[model.Allocation](allocs),
			AllocationCount: len(allocs),
			Statistics:      datatypes.NewJSONType(toModelStatistics(stats)),
		}
		exec.SetAuditLines(audit)

		if err := s.repo.Execution.Create(ctx, exec); err != nil {
			s.logger.Error("保存人工调整失败", zap.String("drawing_id", drawingID), zap.Error(err))
			return err
		}

		s.logger.Info("人工调整已记录",
			zap.String("drawing_id", drawingID),
			zap.String("base_execution_id", baseID),
			zap.String("execution_id", exec.ExecutionID),
			zap.Int("changes", len(req.Changes)))

		snap, err = s.buildSnapshot(ctx, drawing, exec)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap.detail(), nil
}

// applyChange 应用一条调整并返回审计描述
func (s *executionService) applyChange(ctx context.Context, snap *ExecutionSnapshot, allocs *[]model.Allocation, change dto.AllocationChange, at time.Time) (string, error) {
	period, ok := snap.Periods[change.PeriodID]
	if !ok {
		return "", pkgerrors.Reference("period", change.PeriodID, "revision")
	}
	apt, ok := snap.Apartments[change.ApartmentID]
	if !ok {
		return "", pkgerrors.Reference("apartment", change.ApartmentID, "revision")
	}

	slot := -1
	for i, a := range *allocs {
		if a.PeriodID == change.PeriodID && a.ApartmentID == change.ApartmentID {
			slot = i
			break
		}
	}

	switch change.Action {
	case changeRemove:
		if slot < 0 {
			return "", pkgerrors.Validation("apartment_id", "时段「%s」公寓 %s 没有分配", period.Description, apt.Name)
		}
		removed := (*allocs)[slot]
		if change.UserID != "" && removed.UserID != change.UserID {
			return "", pkgerrors.Validation("user_id", "时段「%s」公寓 %s 不属于该用户", period.Description, apt.Name)
		}
		*allocs = append((*allocs)[:slot], (*allocs)[slot+1:]...)
		return fmt.Sprintf("移除 时段「%s」公寓 %s（原分配给 %s）%s",
			period.Description, apt.Name, snap.who(removed.UserID), commentSuffix(change.Comment)), nil

	case changeAssign:
		if change.UserID == "" {
			return "", pkgerrors.Validation("user_id", "assign 必须指定用户")
		}
		if slot >= 0 {
			return "", pkgerrors.Validation("apartment_id", "时段「%s」公寓 %s 已分配给 %s",
				period.Description, apt.Name, snap.who((*allocs)[slot].UserID))
		}
		if period.ExcludedApartmentIDs.Contains(apt.ApartmentID) || !apt.IsActive {
			return "", pkgerrors.Validation("apartment_id", "公寓 %s 在时段「%s」不可用", apt.Name, period.Description)
		}

		user, err := s.userFor(ctx, snap, change.UserID)
		if err != nil {
			return "", err
		}
		count := 0
		for _, a := range *allocs {
			if a.UserID == user.UserID {
				count++
			}
		}
		if limit := s.allocator.Options().MaxAllocationsPerUser; count >= limit {
			return "", pkgerrors.Validation("user_id", "%s 已达每人上限 %d", snap.who(user.UserID), limit)
		}

		*allocs = append(*allocs, model.Allocation{
			AllocationID: uuid.New().String(),
			PeriodID:     period.PeriodID,
			ApartmentID:  apt.ApartmentID,
			UserID:       user.UserID,
			Type:         model.AllocationTypeManual,
			Comment:      change.Comment,
			AllocatedAt:  at,
		})
		return fmt.Sprintf("分配 时段「%s」公寓 %s -> %s%s",
			period.Description, apt.Name, snap.who(user.UserID), commentSuffix(change.Comment)), nil

	default:
		return "", pkgerrors.Validation("action", "未知的调整类型: %s", change.Action)
	}
}

// userFor 查询被分配的用户并加入快照
func (s *executionService) userFor(ctx context.Context, snap *ExecutionSnapshot, userID string) (*model.User, error) {
	if u, ok := snap.Users[userID]; ok {
		return &u, nil
	}
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Reference("user", userID, "revision")
		}
		s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	snap.Users[user.UserID] = *user
	return user, nil
}

// participantIDs 参与者 = 提交过愿望的用户 ∪ 调整后持有分配的用户
func (s *executionService) participantIDs(ctx context.Context, drawingID string, allocs []model.Allocation) ([]string, error) {
	wishes, err := s.repo.Wish.ListByDrawing(ctx, drawingID)
	if err != nil {
		s.logger.Error("查询愿望列表失败", zap.String("drawing_id", drawingID), zap.Error(err))
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, id := range wishUserIDs(wishes) {
		seen[id] = struct{}{}
	}
	for _, a := range allocs {
		seen[a.UserID] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func toDraftAllocations(allocs []model.Allocation) []draft.Allocation {
	out := make([]draft.Allocation, 0, len(allocs))
	for _, a := range allocs {
		out = append(out, draft.Allocation{
			PeriodID:    a.PeriodID,
			ApartmentID: a.ApartmentID,
			UserID:      a.UserID,
			WishID:      a.WishID,
			Priority:    a.Priority,
			Round:       a.Round,
		})
	}
	return out
}

// who 参与者展示名：Name <email>
func (s *ExecutionSnapshot) who(userID string) string {
	u, ok := s.Users[userID]
	if !ok || u.Name == "" {
		return userID
	}
	return fmt.Sprintf("%s <%s>", u.Name, u.Email)
}

func commentSuffix(comment string) string {
	if comment == "" {
		return ""
	}
	return "，备注：" + comment
}
