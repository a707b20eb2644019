package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"my-page/backend/internal/dto"
	"my-page/backend/internal/lock"
	"my-page/backend/internal/metrics"
	"my-page/backend/internal/model"
	"my-page/backend/internal/repository"
	pkgerrors "my-page/backend/pkg/errors"
)

// DrawingService 抽签生命周期业务接口
type DrawingService interface {
	Create(ctx context.Context, req *dto.CreateDrawingRequest, callerID string) (*dto.DrawingResponse, error)
	GetByID(ctx context.Context, id string) (*dto.DrawingResponse, error)
	List(ctx context.Context, req *dto.DrawingListRequest) ([]dto.DrawingResponse, int64, error)
	// Transition 管理员请求的显式跳转（open / locked / 回退）
	Transition(ctx context.Context, id string, target string, callerID string) (*dto.DrawingResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
}

type drawingService struct {
	repo    *repository.Repository
	locker  lock.Locker
	metrics metrics.Collector
	logger  *zap.Logger
	now     func() time.Time
}

// NewDrawingService 创建 DrawingService 实例
func NewDrawingService(repo *repository.Repository, locker lock.Locker, collector metrics.Collector, logger *zap.Logger) DrawingService {
	return &drawingService{repo: repo, locker: locker, metrics: collector, logger: logger, now: time.Now}
}

// ────────────────────── Create ──────────────────────

func (s *drawingService) Create(ctx context.Context, req *dto.CreateDrawingRequest, callerID string) (*dto.DrawingResponse, error) {
	season := strings.TrimSpace(req.Season)
	if season == "" {
		return nil, pkgerrors.Validation("season", "季度名称不能为空")
	}

	drawing := &model.Drawing{
		Season: season,
		Status: model.DrawingStatusDraft,
	}
	drawing.Version = 1
	drawing.CreatedBy = &callerID
	drawing.UpdatedBy = &callerID

	if err := s.repo.Drawing.Create(ctx, drawing); err != nil {
		s.logger.Error("创建抽签失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("抽签已创建", zap.String("drawing_id", drawing.DrawingID), zap.String("season", season))
	return toDrawingResponse(drawing), nil
}

// ────────────────────── Query ──────────────────────

func (s *drawingService) GetByID(ctx context.Context, id string) (*dto.DrawingResponse, error) {
	drawing, err := loadDrawing(ctx, s.repo, s.logger, id)
	if err != nil {
		return nil, err
	}
	return toDrawingResponse(drawing), nil
}

func (s *drawingService) List(ctx context.Context, req *dto.DrawingListRequest) ([]dto.DrawingResponse, int64, error) {
	page, pageSize := req.GetPage(), req.GetPageSize()
	drawings, total, err := s.repo.Drawing.List(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		s.logger.Error("查询抽签列表失败", zap.Error(err))
		return nil, 0, err
	}

	list := make([]dto.DrawingResponse, 0, len(drawings))
	for i := range drawings {
		list = append(list, *toDrawingResponse(&drawings[i]))
	}
	return list, total, nil
}

// ────────────────────── Transition ──────────────────────

func (s *drawingService) Transition(ctx context.Context, id string, target string, callerID string) (*dto.DrawingResponse, error) {
	var result *model.Drawing
	err := withDrawingLock(ctx, s.locker, id, func() error {
		drawing, err := loadDrawing(ctx, s.repo, s.logger, id)
		if err != nil {
			return err
		}

		from := drawing.Status
		if !isManualTransition(from, target) {
			return &pkgerrors.StateTransitionError{Op: opTransition, From: from, To: target}
		}

		if isRevert(from, target) {
			count, err := s.repo.Execution.CountByDrawing(ctx, id)
			if err != nil {
				s.logger.Error("统计执行记录失败", zap.String("drawing_id", id), zap.Error(err))
				return err
			}
			if count > 0 {
				return &pkgerrors.StateTransitionError{Op: opTransition, From: from, To: target}
			}
		} else {
			count, err := s.repo.Period.CountByDrawing(ctx, id)
			if err != nil {
				s.logger.Error("统计时段失败", zap.String("drawing_id", id), zap.Error(err))
				return err
			}
			if count == 0 {
				return pkgerrors.Validation("periods", "抽签至少需要一个时段才能进入 %s", target)
			}
		}

		updated, err := transitionDrawing(opTransition, *drawing, target, s.now)
		if err != nil {
			return err
		}
		updated.UpdatedBy = &callerID
		if err := s.repo.Drawing.Update(ctx, &updated); err != nil {
			s.logger.Error("更新抽签状态失败", zap.String("drawing_id", id), zap.Error(err))
			return err
		}

		s.metrics.RecordTransition(from, target)
		s.logger.Info("抽签状态已变更",
			zap.String("drawing_id", id), zap.String("from", from), zap.String("to", target))
		result = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toDrawingResponse(result), nil
}

// ────────────────────── Delete ──────────────────────

// Delete 仅 draft / open / locked 可删除，抽签后的数据保留作审计
func (s *drawingService) Delete(ctx context.Context, id string, callerID string) error {
	return withDrawingLock(ctx, s.locker, id, func() error {
		drawing, err := loadDrawing(ctx, s.repo, s.logger, id)
		if err != nil {
			return err
		}
		if err := requireStatus(drawing, opDelete,
			model.DrawingStatusDraft, model.DrawingStatusOpen, model.DrawingStatusLocked); err != nil {
			return err
		}

		err = runInTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
			if err := txRepo.Wish.DeleteByDrawing(ctx, id); err != nil {
				return err
			}
			if err := txRepo.Period.DeleteByDrawing(ctx, id); err != nil {
				return err
			}
			return txRepo.Drawing.Delete(ctx, id, callerID)
		})
		if err != nil {
			s.logger.Error("删除抽签失败", zap.String("drawing_id", id), zap.Error(err))
			return err
		}

		s.logger.Info("抽签已删除", zap.String("drawing_id", id))
		return nil
	})
}

// ── 内部辅助方法 ──

func toDrawingResponse(d *model.Drawing) *dto.DrawingResponse {
	return &dto.DrawingResponse{
		ID:                   d.DrawingID,
		Season:               d.Season,
		Status:               d.Status,
		OpenedAt:             formatTimePtr(d.OpenedAt),
		LockedAt:             formatTimePtr(d.LockedAt),
		DrawnAt:              formatTimePtr(d.DrawnAt),
		PublishedAt:          formatTimePtr(d.PublishedAt),
		PublishedExecutionID: d.PublishedExecutionID,
		Version:              d.Version,
		CreatedAt:            d.CreatedAt.UTC().Format(timeLayout),
	}
}
