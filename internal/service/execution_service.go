package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"my-page/backend/internal/draft"
	"my-page/backend/internal/dto"
	"my-page/backend/internal/lock"
	"my-page/backend/internal/metrics"
	"my-page/backend/internal/model"
	"my-page/backend/internal/repository"
	pkgerrors "my-page/backend/pkg/errors"
)

// ExecutionService 抽签执行与发布业务接口
//
// 执行记录只追加：重新抽签、人工调整都会生成新的执行记录，
// 发布只是把抽签的 published_execution_id 指向其中一条
type ExecutionService interface {
	// Draw 运行抽签并记录执行结果；首次执行时抽签从 locked 进入 drawn
	Draw(ctx context.Context, drawingID string, req *dto.DrawRequest, callerID string) (*dto.ExecutionDetail, error)
	Publish(ctx context.Context, drawingID, executionID, callerID string) (*dto.DrawingResponse, error)
	Unpublish(ctx context.Context, drawingID, callerID string) (*dto.DrawingResponse, error)
	List(ctx context.Context, drawingID string) ([]dto.ExecutionSummary, error)
	Get(ctx context.Context, drawingID, executionID string) (*dto.ExecutionDetail, error)
	Compare(ctx context.Context, drawingID, executionA, executionB string) (*dto.CompareExecutionsResponse, error)
	// Revise 基于已有执行记录做人工调整，生成新的执行记录
	Revise(ctx context.Context, drawingID, baseExecutionID string, req *dto.ReviseExecutionRequest, callerID string) (*dto.ExecutionDetail, error)
	GetPublishedAllocations(ctx context.Context, drawingID string) (*dto.PublishedAllocationsResponse, error)
	GetMyAllocations(ctx context.Context, drawingID, userID string) (*dto.PublishedAllocationsResponse, error)

	// Snapshot / PublishedSnapshot 供导出使用
	Snapshot(ctx context.Context, drawingID, executionID string) (*ExecutionSnapshot, error)
	PublishedSnapshot(ctx context.Context, drawingID string) (*ExecutionSnapshot, error)
}

type executionService struct {
	repo      *repository.Repository
	locker    lock.Locker
	allocator *draft.Allocator
	metrics   metrics.Collector
	logger    *zap.Logger
	now       func() time.Time
}

// NewExecutionService 创建 ExecutionService 实例
func NewExecutionService(repo *repository.Repository, locker lock.Locker, allocator *draft.Allocator, collector metrics.Collector, logger *zap.Logger) ExecutionService {
	return &executionService{
		repo:      repo,
		locker:    locker,
		allocator: allocator,
		metrics:   collector,
		logger:    logger,
		now:       time.Now,
	}
}

// ExecutionSnapshot 执行记录及展示所需的时段、公寓、参与者
type ExecutionSnapshot struct {
	Drawing    *model.Drawing
	Execution  *model.Execution
	Periods    map[string]model.Period
	Apartments map[string]model.Apartment
	Users      map[string]model.User
}

// ────────────────────── Draw ──────────────────────

func (s *executionService) Draw(ctx context.Context, drawingID string, req *dto.DrawRequest, callerID string) (*dto.ExecutionDetail, error) {
	var snap *ExecutionSnapshot
	err := withDrawingLock(ctx, s.locker, drawingID, func() error {
		drawing, err := loadDrawing(ctx, s.repo, s.logger, drawingID)
		if err != nil {
			return err
		}
		if err := requireStatus(drawing, opDraw, model.DrawingStatusLocked, model.DrawingStatusDrawn); err != nil {
			return err
		}

		// 1. 加载抽签状态
		periods, err := s.repo.Period.ListByDrawing(ctx, drawingID)
		if err != nil {
			s.logger.Error("查询时段列表失败", zap.String("drawing_id", drawingID), zap.Error(err))
			return err
		}
		apartments, err := s.repo.Apartment.List(ctx, false)
		if err != nil {
			s.logger.Error("查询公寓列表失败", zap.Error(err))
			return err
		}
		wishes, err := s.repo.Wish.ListByDrawing(ctx, drawingID)
		if err != nil {
			s.logger.Error("查询愿望列表失败", zap.String("drawing_id", drawingID), zap.Error(err))
			return err
		}
		users, err := s.loadUsers(ctx, wishUserIDs(wishes))
		if err != nil {
			return err
		}

		// 2. 运行抽签
		var seed *int64
		if req != nil {
			seed = req.Seed
		}
		input := buildDraftInput(periods, apartments, wishes, users, seed)
		started := time.Now()
		res, err := s.allocator.Run(input)
		if err != nil {
			s.logger.Warn("抽签输入校验失败", zap.String("drawing_id", drawingID), zap.Error(err))
			return err
		}
		s.metrics.ObserveDraw(time.Since(started), len(res.Allocations), len(res.Order))

		// 3. 记录执行结果
		executedAt := s.now().UTC()
		exec := &model.Execution{
			ExecutionID:     uuid.New().String(),
			DrawingID:       drawingID,
			ExecutedAt:      executedAt,
			ExecutedBy:      callerID,
			RandomSeed:      seed,
			EffectiveSeed:   res.Seed,
			Allocations:     datatypes.JSONSlice[model.Allocation](toModelAllocations(res.Allocations, executedAt)),
			AllocationCount: len(res.Allocations),
			Statistics:      datatypes.NewJSONType(toModelStatistics(res.Statistics)),
		}
		exec.SetAuditLines(res.AuditLog)

		updated, err := s.recordExecution(ctx, drawing, exec, callerID)
		if err != nil {
			return err
		}

		s.logger.Info("抽签已执行",
			zap.String("drawing_id", drawingID),
			zap.String("execution_id", exec.ExecutionID),
			zap.Int64("seed", res.Seed),
			zap.Bool("seed_generated", res.SeedGenerated),
			zap.Int("allocations", len(res.Allocations)))

		snap = newSnapshot(updated, exec, periods, apartments, users)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap.detail(), nil
}

// recordExecution 单事务写入执行记录；首次执行时同时把抽签置为 drawn
func (s *executionService) recordExecution(ctx context.Context, drawing *model.Drawing, exec *model.Execution, callerID string) (*model.Drawing, error) {
	updated := *drawing
	firstRun := drawing.Status == model.DrawingStatusLocked
	if firstRun {
		next, err := transitionDrawing(opDraw, *drawing, model.DrawingStatusDrawn, s.now)
		if err != nil {
			return nil, err
		}
		next.UpdatedBy = &callerID
		updated = next
	}

	err := runInTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
		if err := txRepo.Execution.Create(ctx, exec); err != nil {
			return err
		}
		if firstRun {
			return txRepo.Drawing.Update(ctx, &updated)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("记录执行结果失败", zap.String("drawing_id", drawing.DrawingID), zap.Error(err))
		return nil, err
	}
	if firstRun {
		s.metrics.RecordTransition(drawing.Status, updated.Status)
	}
	return &updated, nil
}

// ────────────────────── Publish / Unpublish ──────────────────────

func (s *executionService) Publish(ctx context.Context, drawingID, executionID, callerID string) (*dto.DrawingResponse, error) {
	var result *model.Drawing
	err := withDrawingLock(ctx, s.locker, drawingID, func() error {
		drawing, err := loadDrawing(ctx, s.repo, s.logger, drawingID)
		if err != nil {
			return err
		}
		exec, err := s.loadExecution(ctx, drawingID, executionID)
		if err != nil {
			return err
		}

		if drawing.Status == model.DrawingStatusPublished {
			published := ""
			if drawing.PublishedExecutionID != nil {
				published = *drawing.PublishedExecutionID
			}
			return &pkgerrors.PublicationConflictError{
				DrawingID:   drawingID,
				PublishedID: published,
				RequestedID: exec.ExecutionID,
			}
		}

		updated, err := transitionDrawing(opPublish, *drawing, model.DrawingStatusPublished, s.now)
		if err != nil {
			return err
		}
		updated.PublishedExecutionID = &exec.ExecutionID
		updated.UpdatedBy = &callerID
		if err := s.repo.Drawing.Update(ctx, &updated); err != nil {
			s.logger.Error("发布执行记录失败", zap.String("drawing_id", drawingID), zap.Error(err))
			return err
		}

		s.metrics.RecordTransition(drawing.Status, updated.Status)
		s.metrics.RecordPublish("publish")
		s.logger.Info("执行记录已发布", zap.String("drawing_id", drawingID), zap.String("execution_id", executionID))
		result = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toDrawingResponse(result), nil
}

func (s *executionService) Unpublish(ctx context.Context, drawingID, callerID string) (*dto.DrawingResponse, error) {
	var result *model.Drawing
	err := withDrawingLock(ctx, s.locker, drawingID, func() error {
		drawing, err := loadDrawing(ctx, s.repo, s.logger, drawingID)
		if err != nil {
			return err
		}
		if drawing.Status != model.DrawingStatusPublished {
			return &pkgerrors.StateTransitionError{Op: opUnpublish, From: drawing.Status, To: model.DrawingStatusDrawn}
		}

		updated, err := transitionDrawing(opUnpublish, *drawing, model.DrawingStatusDrawn, s.now)
		if err != nil {
			return err
		}
		updated.UpdatedBy = &callerID
		if err := s.repo.Drawing.Update(ctx, &updated); err != nil {
			s.logger.Error("撤销发布失败", zap.String("drawing_id", drawingID), zap.Error(err))
			return err
		}

		s.metrics.RecordTransition(drawing.Status, updated.Status)
		s.metrics.RecordPublish("unpublish")
		s.logger.Info("已撤销发布", zap.String("drawing_id", drawingID))
		result = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toDrawingResponse(result), nil
}

// ────────────────────── Query ──────────────────────

func (s *executionService) List(ctx context.Context, drawingID string) ([]dto.ExecutionSummary, error) {
	drawing, err := loadDrawing(ctx, s.repo, s.logger, drawingID)
	if err != nil {
		return nil, err
	}
	executions, err := s.repo.Execution.ListByDrawing(ctx, drawingID)
	if err != nil {
		s.logger.Error("查询执行记录失败", zap.String("drawing_id", drawingID), zap.Error(err))
		return nil, err
	}

	list := make([]dto.ExecutionSummary, 0, len(executions))
	for i := range executions {
		list = append(list, toExecutionSummary(drawing, &executions[i]))
	}
	return list, nil
}

func (s *executionService) Get(ctx context.Context, drawingID, executionID string) (*dto.ExecutionDetail, error) {
	snap, err := s.Snapshot(ctx, drawingID, executionID)
	if err != nil {
		return nil, err
	}
	return snap.detail(), nil
}

func (s *executionService) Snapshot(ctx context.Context, drawingID, executionID string) (*ExecutionSnapshot, error) {
	drawing, err := loadDrawing(ctx, s.repo, s.logger, drawingID)
	if err != nil {
		return nil, err
	}
	exec, err := s.loadExecution(ctx, drawingID, executionID)
	if err != nil {
		return nil, err
	}
	return s.buildSnapshot(ctx, drawing, exec)
}

// ────────────────────── Compare ──────────────────────

func (s *executionService) Compare(ctx context.Context, drawingID, executionA, executionB string) (*dto.CompareExecutionsResponse, error) {
	a, err := s.Snapshot(ctx, drawingID, executionA)
	if err != nil {
		return nil, err
	}
	b, err := s.Snapshot(ctx, drawingID, executionB)
	if err != nil {
		return nil, err
	}

	inB := make(map[allocationKey]struct{}, len(b.Execution.Allocations))
	for _, alloc := range b.Execution.Allocations {
		inB[keyOf(alloc)] = struct{}{}
	}
	inA := make(map[allocationKey]struct{}, len(a.Execution.Allocations))

	resp := &dto.CompareExecutionsResponse{
		ExecutionA: executionA,
		ExecutionB: executionB,
		Common:     []dto.AllocationResponse{},
		OnlyInA:    []dto.AllocationResponse{},
		OnlyInB:    []dto.AllocationResponse{},
	}
	for _, alloc := range a.sortedAllocations() {
		inA[keyOf(alloc)] = struct{}{}
		if _, ok := inB[keyOf(alloc)]; ok {
			resp.Common = append(resp.Common, a.allocationResponse(alloc))
		} else {
			resp.OnlyInA = append(resp.OnlyInA, a.allocationResponse(alloc))
		}
	}
	for _, alloc := range b.sortedAllocations() {
		if _, ok := inA[keyOf(alloc)]; !ok {
			resp.OnlyInB = append(resp.OnlyInB, b.allocationResponse(alloc))
		}
	}
	return resp, nil
}

// ────────────────────── 已发布结果 ──────────────────────

func (s *executionService) PublishedSnapshot(ctx context.Context, drawingID string) (*ExecutionSnapshot, error) {
	drawing, err := loadDrawing(ctx, s.repo, s.logger, drawingID)
	if err != nil {
		return nil, err
	}
	if drawing.Status != model.DrawingStatusPublished || drawing.PublishedExecutionID == nil {
		return nil, ErrNotPublished
	}
	exec, err := s.loadExecution(ctx, drawingID, *drawing.PublishedExecutionID)
	if err != nil {
		return nil, err
	}
	return s.buildSnapshot(ctx, drawing, exec)
}

func (s *executionService) GetPublishedAllocations(ctx context.Context, drawingID string) (*dto.PublishedAllocationsResponse, error) {
	snap, err := s.PublishedSnapshot(ctx, drawingID)
	if err != nil {
		return nil, err
	}
	return snap.published(""), nil
}

func (s *executionService) GetMyAllocations(ctx context.Context, drawingID, userID string) (*dto.PublishedAllocationsResponse, error) {
	snap, err := s.PublishedSnapshot(ctx, drawingID)
	if err != nil {
		return nil, err
	}
	return snap.published(userID), nil
}

// ── 内部辅助方法 ──

// loadExecution 查询执行记录并校验其属于该抽签
func (s *executionService) loadExecution(ctx context.Context, drawingID, executionID string) (*model.Execution, error) {
	exec, err := s.repo.Execution.GetByID(ctx, executionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExecutionNotFound
		}
		s.logger.Error("查询执行记录失败", zap.String("execution_id", executionID), zap.Error(err))
		return nil, err
	}
	if exec.DrawingID != drawingID {
		return nil, pkgerrors.Reference("execution", executionID, "drawing "+drawingID)
	}
	return exec, nil
}

func (s *executionService) loadUsers(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	users, err := s.repo.User.ListByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询参与者失败", zap.Error(err))
		return nil, err
	}
	return users, nil
}

func (s *executionService) buildSnapshot(ctx context.Context, drawing *model.Drawing, exec *model.Execution) (*ExecutionSnapshot, error) {
	periods, err := s.repo.Period.ListByDrawing(ctx, drawing.DrawingID)
	if err != nil {
		s.logger.Error("查询时段列表失败", zap.String("drawing_id", drawing.DrawingID), zap.Error(err))
		return nil, err
	}
	apartments, err := s.repo.Apartment.List(ctx, false)
	if err != nil {
		s.logger.Error("查询公寓列表失败", zap.Error(err))
		return nil, err
	}
	ids := make([]string, 0, len(exec.Allocations))
	seen := make(map[string]struct{})
	for _, a := range exec.Allocations {
		if _, ok := seen[a.UserID]; !ok {
			seen[a.UserID] = struct{}{}
			ids = append(ids, a.UserID)
		}
	}
	users, err := s.loadUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	return newSnapshot(drawing, exec, periods, apartments, users), nil
}

func wishUserIDs(wishes []model.Wish) []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, w := range wishes {
		if _, ok := seen[w.UserID]; ok {
			continue
		}
		seen[w.UserID] = struct{}{}
		ids = append(ids, w.UserID)
	}
	sort.Strings(ids)
	return ids
}

// buildDraftInput 把持久化模型转换为抽签输入；停用的公寓视为在所有时段排除
func buildDraftInput(periods []model.Period, apartments []model.Apartment, wishes []model.Wish, users []model.User, seed *int64) draft.Input {
	var inactive []string
	in := draft.Input{Seed: seed}
	for _, a := range apartments {
		in.Apartments = append(in.Apartments, draft.Apartment{ID: a.ApartmentID, Name: a.Name, SortOrder: a.SortOrder})
		if !a.IsActive {
			inactive = append(inactive, a.ApartmentID)
		}
	}
	for _, p := range periods {
		excluded := append([]string{}, p.ExcludedApartmentIDs...)
		for _, id := range inactive {
			if !p.ExcludedApartmentIDs.Contains(id) {
				excluded = append(excluded, id)
			}
		}
		in.Periods = append(in.Periods, draft.Period{
			ID:                   p.PeriodID,
			Description:          p.Description,
			StartDate:            p.StartDate,
			EndDate:              p.EndDate,
			ExcludedApartmentIDs: excluded,
		})
	}
	for _, w := range wishes {
		in.Wishes = append(in.Wishes, draft.Wish{
			ID:                  w.WishID,
			UserID:              w.UserID,
			PeriodID:            w.PeriodID,
			Priority:            w.Priority,
			DesiredApartmentIDs: append([]string{}, w.DesiredApartmentIDs...),
		})
	}
	for _, u := range users {
		in.Participants = append(in.Participants, draft.Participant{UserID: u.UserID, Name: u.Name, Email: u.Email})
	}
	return in
}

func toModelAllocations(allocs []draft.Allocation, at time.Time) []model.Allocation {
	out := make([]model.Allocation, 0, len(allocs))
	for _, a := range allocs {
		out = append(out, model.Allocation{
			AllocationID: uuid.New().String(),
			PeriodID:     a.PeriodID,
			ApartmentID:  a.ApartmentID,
			UserID:       a.UserID,
			Type:         model.AllocationTypeDrawn,
			AllocatedAt:  at,
			WishID:       a.WishID,
			Priority:     a.Priority,
			Round:        a.Round,
		})
	}
	return out
}

func toModelStatistics(st draft.Statistics) model.ExecutionStatistics {
	return model.ExecutionStatistics{
		TotalParticipants:               st.TotalParticipants,
		ParticipantsWithZeroAllocations: st.ParticipantsWithZeroAllocations,
		ParticipantsWithOneAllocation:   st.ParticipantsWithOneAllocation,
		ParticipantsWithTwoAllocations:  st.ParticipantsWithTwoAllocations,
		ParticipantsByAllocationCount:   st.ParticipantsByAllocationCount,
		TotalAllocations:                st.TotalAllocations,
		AllocationsPerPeriod:            st.AllocationsPerPeriod,
	}
}

func toExecutionSummary(drawing *model.Drawing, e *model.Execution) dto.ExecutionSummary {
	return dto.ExecutionSummary{
		ID:              e.ExecutionID,
		DrawingID:       e.DrawingID,
		BaseExecutionID: e.BaseExecutionID,
		ExecutedAt:      e.ExecutedAt.UTC().Format(timeLayout),
		ExecutedBy:      e.ExecutedBy,
		RandomSeed:      e.RandomSeed,
		EffectiveSeed:   e.EffectiveSeed,
		AllocationCount: e.AllocationCount,
		Published: drawing.PublishedExecutionID != nil &&
			*drawing.PublishedExecutionID == e.ExecutionID,
	}
}

// allocationKey 比较两次执行时的分配标识
type allocationKey struct {
	periodID, apartmentID, userID string
}

func keyOf(a model.Allocation) allocationKey {
	return allocationKey{periodID: a.PeriodID, apartmentID: a.ApartmentID, userID: a.UserID}
}

// ── ExecutionSnapshot ──

func newSnapshot(drawing *model.Drawing, exec *model.Execution, periods []model.Period, apartments []model.Apartment, users []model.User) *ExecutionSnapshot {
	snap := &ExecutionSnapshot{
		Drawing:    drawing,
		Execution:  exec,
		Periods:    make(map[string]model.Period, len(periods)),
		Apartments: make(map[string]model.Apartment, len(apartments)),
		Users:      make(map[string]model.User, len(users)),
	}
	for _, p := range periods {
		snap.Periods[p.PeriodID] = p
	}
	for _, a := range apartments {
		snap.Apartments[a.ApartmentID] = a
	}
	for _, u := range users {
		snap.Users[u.UserID] = u
	}
	return snap
}

// sortedAllocations 按时段开始日期、公寓排序
func (s *ExecutionSnapshot) sortedAllocations() []model.Allocation {
	allocs := append([]model.Allocation{}, s.Execution.Allocations...)
	sort.SliceStable(allocs, func(i, j int) bool {
		pi, pj := s.Periods[allocs[i].PeriodID], s.Periods[allocs[j].PeriodID]
		if !pi.StartDate.Equal(pj.StartDate) {
			return pi.StartDate.Before(pj.StartDate)
		}
		return s.Apartments[allocs[i].ApartmentID].SortOrder < s.Apartments[allocs[j].ApartmentID].SortOrder
	})
	return allocs
}

func (s *ExecutionSnapshot) allocationResponse(a model.Allocation) dto.AllocationResponse {
	resp := dto.AllocationResponse{
		ID:          a.AllocationID,
		PeriodID:    a.PeriodID,
		ApartmentID: a.ApartmentID,
		UserID:      a.UserID,
		Type:        a.Type,
		Comment:     a.Comment,
		AllocatedAt: a.AllocatedAt.UTC().Format(timeLayout),
	}
	if p, ok := s.Periods[a.PeriodID]; ok {
		resp.PeriodDescription = p.Description
		resp.StartDate = p.StartDate.Format(dateLayout)
		resp.EndDate = p.EndDate.Format(dateLayout)
	}
	if apt, ok := s.Apartments[a.ApartmentID]; ok {
		resp.ApartmentName = apt.Name
	}
	if u, ok := s.Users[a.UserID]; ok {
		resp.UserName = u.Name
	}
	return resp
}

func (s *ExecutionSnapshot) detail() *dto.ExecutionDetail {
	allocs := s.sortedAllocations()
	list := make([]dto.AllocationResponse, 0, len(allocs))
	for _, a := range allocs {
		list = append(list, s.allocationResponse(a))
	}
	st := s.Execution.Statistics.Data()
	return &dto.ExecutionDetail{
		ExecutionSummary: toExecutionSummary(s.Drawing, s.Execution),
		Allocations:      list,
		Statistics: dto.StatisticsResponse{
			TotalParticipants:               st.TotalParticipants,
			ParticipantsWithZeroAllocations: st.ParticipantsWithZeroAllocations,
			ParticipantsWithOneAllocation:   st.ParticipantsWithOneAllocation,
			ParticipantsWithTwoAllocations:  st.ParticipantsWithTwoAllocations,
			ParticipantsByAllocationCount:   st.ParticipantsByAllocationCount,
			TotalAllocations:                st.TotalAllocations,
			AllocationsPerPeriod:            st.AllocationsPerPeriod,
		},
		AuditLog: s.Execution.AuditLines(),
	}
}

// published userID 为空时返回全部分配
func (s *ExecutionSnapshot) published(userID string) *dto.PublishedAllocationsResponse {
	resp := &dto.PublishedAllocationsResponse{
		DrawingID:   s.Drawing.DrawingID,
		ExecutionID: s.Execution.ExecutionID,
		Allocations: []dto.AllocationResponse{},
	}
	if at := formatTimePtr(s.Drawing.PublishedAt); at != nil {
		resp.PublishedAt = *at
	}
	for _, a := range s.sortedAllocations() {
		if userID != "" && a.UserID != userID {
			continue
		}
		resp.Allocations = append(resp.Allocations, s.allocationResponse(a))
	}
	return resp
}
