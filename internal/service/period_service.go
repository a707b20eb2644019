package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"my-page/backend/internal/dto"
	"my-page/backend/internal/lock"
	"my-page/backend/internal/model"
	"my-page/backend/internal/repository"
	pkgerrors "my-page/backend/pkg/errors"
)

// maxBulkWeeks 单次批量生成的周数上限
// 连续 52 周内 ISO 周号不会重复，默认模板生成的描述保持唯一
const maxBulkWeeks = 52

// PeriodService 时段业务接口
type PeriodService interface {
	List(ctx context.Context, drawingID string) ([]dto.PeriodResponse, error)
	Add(ctx context.Context, drawingID string, req *dto.CreatePeriodRequest, callerID string) (*dto.PeriodResponse, error)
	Update(ctx context.Context, drawingID, periodID string, req *dto.UpdatePeriodRequest, callerID string) (*dto.PeriodResponse, error)
	// Delete 同时删除该时段下的愿望；已被执行记录引用的时段不可删除
	Delete(ctx context.Context, drawingID, periodID string) error
	BulkCreateWeekly(ctx context.Context, drawingID string, req *dto.BulkCreatePeriodsRequest, callerID string) ([]dto.PeriodResponse, error)
}

type periodService struct {
	repo   *repository.Repository
	locker lock.Locker
	logger *zap.Logger
}

// NewPeriodService 创建 PeriodService 实例
func NewPeriodService(repo *repository.Repository, locker lock.Locker, logger *zap.Logger) PeriodService {
	return &periodService{repo: repo, locker: locker, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *periodService) List(ctx context.Context, drawingID string) ([]dto.PeriodResponse, error) {
	if _, err := loadDrawing(ctx, s.repo, s.logger, drawingID); err != nil {
		return nil, err
	}
	periods, err := s.repo.Period.ListByDrawing(ctx, drawingID)
	if err != nil {
		s.logger.Error("查询时段列表失败", zap.String("drawing_id", drawingID), zap.Error(err))
		return nil, err
	}
	return toPeriodResponses(periods), nil
}

// ────────────────────── Add ──────────────────────

func (s *periodService) Add(ctx context.Context, drawingID string, req *dto.CreatePeriodRequest, callerID string) (*dto.PeriodResponse, error) {
	var created *model.Period
	err := withDrawingLock(ctx, s.locker, drawingID, func() error {
		existing, err := s.editablePeriods(ctx, drawingID)
		if err != nil {
			return err
		}

		start, end, err := parsePeriodDates(req.StartDate, req.EndDate)
		if err != nil {
			return err
		}
		if err := s.checkExcluded(ctx, req.ExcludedApartmentIDs, req.Description); err != nil {
			return err
		}

		sortOrder := 0
		if req.SortOrder != nil {
			sortOrder = *req.SortOrder
		} else {
			maxOrder, err := s.repo.Period.MaxSortOrder(ctx, drawingID)
			if err != nil {
				s.logger.Error("查询时段排序失败", zap.Error(err))
				return err
			}
			sortOrder = maxOrder + 1
		}

		period := model.Period{
			DrawingID:            drawingID,
			StartDate:            start,
			EndDate:              end,
			Description:          strings.TrimSpace(req.Description),
			Comment:              req.Comment,
			SortOrder:            sortOrder,
			ExcludedApartmentIDs: model.StringArray(req.ExcludedApartmentIDs),
		}
		period.CreatedBy = &callerID
		period.UpdatedBy = &callerID

		if err := validatePeriodBatch(existing, []model.Period{period}); err != nil {
			return err
		}
		if err := s.repo.Period.Create(ctx, &period); err != nil {
			s.logger.Error("创建时段失败", zap.String("drawing_id", drawingID), zap.Error(err))
			return err
		}
		created = &period
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("时段已创建", zap.String("drawing_id", drawingID), zap.String("period_id", created.PeriodID))
	resp := toPeriodResponse(created)
	return &resp, nil
}

// ────────────────────── Update ──────────────────────

func (s *periodService) Update(ctx context.Context, drawingID, periodID string, req *dto.UpdatePeriodRequest, callerID string) (*dto.PeriodResponse, error) {
	var updated *model.Period
	err := withDrawingLock(ctx, s.locker, drawingID, func() error {
		existing, err := s.editablePeriods(ctx, drawingID)
		if err != nil {
			return err
		}

		var period *model.Period
		others := make([]model.Period, 0, len(existing))
		for i := range existing {
			if existing[i].PeriodID == periodID {
				p := existing[i]
				period = &p
				continue
			}
			others = append(others, existing[i])
		}
		if period == nil {
			return ErrPeriodNotFound
		}

		startStr, endStr := period.StartDate.Format(dateLayout), period.EndDate.Format(dateLayout)
		if req.StartDate != nil {
			startStr = *req.StartDate
		}
		if req.EndDate != nil {
			endStr = *req.EndDate
		}
		start, end, err := parsePeriodDates(startStr, endStr)
		if err != nil {
			return err
		}
		period.StartDate, period.EndDate = start, end

		if req.Description != nil {
			period.Description = strings.TrimSpace(*req.Description)
		}
		if req.Comment != nil {
			period.Comment = *req.Comment
		}
		if req.SortOrder != nil {
			period.SortOrder = *req.SortOrder
		}
		if req.ExcludedApartmentIDs != nil {
			if err := s.checkExcluded(ctx, *req.ExcludedApartmentIDs, period.Description); err != nil {
				return err
			}
			period.ExcludedApartmentIDs = model.StringArray(*req.ExcludedApartmentIDs)
		}
		period.UpdatedBy = &callerID

		if err := validatePeriodBatch(others, []model.Period{*period}); err != nil {
			return err
		}
		if err := s.repo.Period.Update(ctx, period); err != nil {
			s.logger.Error("更新时段失败", zap.String("period_id", periodID), zap.Error(err))
			return err
		}
		updated = period
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := toPeriodResponse(updated)
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *periodService) Delete(ctx context.Context, drawingID, periodID string) error {
	return withDrawingLock(ctx, s.locker, drawingID, func() error {
		if _, err := s.editablePeriods(ctx, drawingID); err != nil {
			return err
		}

		period, err := s.repo.Period.GetByID(ctx, periodID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPeriodNotFound
			}
			s.logger.Error("查询时段失败", zap.String("period_id", periodID), zap.Error(err))
			return err
		}
		if period.DrawingID != drawingID {
			return ErrPeriodNotFound
		}

		referenced, err := s.repo.Execution.ExistsForPeriod(ctx, drawingID, periodID)
		if err != nil {
			s.logger.Error("检查时段引用失败", zap.String("period_id", periodID), zap.Error(err))
			return err
		}
		if referenced {
			return pkgerrors.Validation("period_id", "时段「%s」已被执行记录引用，不能删除", period.Description)
		}

		err = runInTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
			if err := txRepo.Wish.DeleteByPeriod(ctx, periodID); err != nil {
				return err
			}
			return txRepo.Period.Delete(ctx, periodID)
		})
		if err != nil {
			s.logger.Error("删除时段失败", zap.String("period_id", periodID), zap.Error(err))
			return err
		}

		s.logger.Info("时段已删除", zap.String("drawing_id", drawingID), zap.String("period_id", periodID))
		return nil
	})
}

// ────────────────────── BulkCreateWeekly ──────────────────────
//
// 起止日期须为同一星期几（通常为周三换房），每 7 天生成一个时段，
// 全部校验通过后在同一事务中写入

func (s *periodService) BulkCreateWeekly(ctx context.Context, drawingID string, req *dto.BulkCreatePeriodsRequest, callerID string) ([]dto.PeriodResponse, error) {
	var created []model.Period
	err := withDrawingLock(ctx, s.locker, drawingID, func() error {
		existing, err := s.editablePeriods(ctx, drawingID)
		if err != nil {
			return err
		}

		start, end, err := parsePeriodDates(req.StartDate, req.EndDate)
		if err != nil {
			return err
		}
		if start.Weekday() != end.Weekday() {
			return pkgerrors.Validation("end_date", "开始日期（%s）与结束日期（%s）必须是同一星期几",
				start.Weekday(), end.Weekday())
		}
		weeks := int(end.Sub(start).Hours() / 24 / 7)
		if weeks > maxBulkWeeks {
			return pkgerrors.Validation("end_date", "一次最多生成 %d 周", maxBulkWeeks)
		}

		maxOrder, err := s.repo.Period.MaxSortOrder(ctx, drawingID)
		if err != nil {
			s.logger.Error("查询时段排序失败", zap.Error(err))
			return err
		}

		batch := make([]model.Period, 0, weeks)
		for i := 0; i < weeks; i++ {
			ps := start.AddDate(0, 0, 7*i)
			pe := ps.AddDate(0, 0, 7)
			p := model.Period{
				DrawingID:            drawingID,
				StartDate:            ps,
				EndDate:              pe,
				Description:          weeklyLabel(req.LabelTemplate, i+1, ps, pe),
				Comment:              req.Comment,
				SortOrder:            maxOrder + 1 + i,
				ExcludedApartmentIDs: model.StringArray{},
			}
			p.CreatedBy = &callerID
			p.UpdatedBy = &callerID
			batch = append(batch, p)
		}

		if err := validatePeriodBatch(existing, batch); err != nil {
			return err
		}

		err = runInTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
			return txRepo.Period.BatchCreate(ctx, batch)
		})
		if err != nil {
			s.logger.Error("批量创建时段失败", zap.String("drawing_id", drawingID), zap.Error(err))
			return err
		}
		created = batch
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("批量创建时段完成", zap.String("drawing_id", drawingID), zap.Int("count", len(created)))
	return toPeriodResponses(created), nil
}

// ── 内部辅助方法 ──

// editablePeriods 校验抽签处于可编辑状态并返回现有时段
func (s *periodService) editablePeriods(ctx context.Context, drawingID string) ([]model.Period, error) {
	drawing, err := loadDrawing(ctx, s.repo, s.logger, drawingID)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(drawing, opEditPeriod, model.DrawingStatusDraft, model.DrawingStatusOpen); err != nil {
		return nil, err
	}
	periods, err := s.repo.Period.ListByDrawing(ctx, drawingID)
	if err != nil {
		s.logger.Error("查询时段列表失败", zap.String("drawing_id", drawingID), zap.Error(err))
		return nil, err
	}
	return periods, nil
}

// checkExcluded 排除列表中的公寓必须存在
func (s *periodService) checkExcluded(ctx context.Context, ids []string, description string) error {
	for _, id := range ids {
		if _, err := s.repo.Apartment.GetByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Reference("apartment", id, "period "+description)
			}
			s.logger.Error("查询公寓失败", zap.String("apartment_id", id), zap.Error(err))
			return err
		}
	}
	return nil
}

func parsePeriodDates(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, pkgerrors.Validation("start_date", "日期格式应为 YYYY-MM-DD: %s", startStr)
	}
	end, err := time.Parse(dateLayout, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, pkgerrors.Validation("end_date", "日期格式应为 YYYY-MM-DD: %s", endStr)
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, pkgerrors.Validation("end_date", "结束日期必须晚于开始日期")
	}
	return start, end, nil
}

// validatePeriodBatch 校验新时段之间及与现有时段之间不重叠、描述不重复
func validatePeriodBatch(existing, batch []model.Period) error {
	for _, p := range batch {
		if err := requireSingleLine("description", p.Description); err != nil {
			return err
		}
	}

	all := make([]model.Period, 0, len(existing)+len(batch))
	all = append(all, existing...)
	all = append(all, batch...)

	descriptions := make(map[string]struct{}, len(all))
	for _, p := range all {
		if p.Description == "" {
			return pkgerrors.Validation("description", "时段描述不能为空")
		}
		if _, dup := descriptions[p.Description]; dup {
			return pkgerrors.Validation("description", "时段描述「%s」已存在", p.Description)
		}
		descriptions[p.Description] = struct{}{}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].StartDate.Before(all[j].StartDate) })
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		if cur.StartDate.Before(prev.EndDate) {
			return pkgerrors.Validation("start_date", "时段「%s」与「%s」日期重叠",
				cur.Description, prev.Description)
		}
	}
	return nil
}

// labelPlaceholders 描述模板支持的占位符
var labelPlaceholders = []string{"{n}", "{week}", "{start}", "{end}"}

// weeklyLabel 按模板生成时段描述
// 模板不含任何已知占位符时追加序号，保证同批描述不重复
func weeklyLabel(template string, n int, start, end time.Time) string {
	template = strings.TrimSpace(template)
	if template == "" {
		template = "Week {week}"
	} else if !hasLabelPlaceholder(template) {
		template += " {n}"
	}
	_, week := start.ISOWeek()
	r := strings.NewReplacer(
		"{n}", strconv.Itoa(n),
		"{week}", strconv.Itoa(week),
		"{start}", start.Format(dateLayout),
		"{end}", end.Format(dateLayout),
	)
	return r.Replace(template)
}

func hasLabelPlaceholder(template string) bool {
	for _, ph := range labelPlaceholders {
		if strings.Contains(template, ph) {
			return true
		}
	}
	return false
}

func toPeriodResponse(p *model.Period) dto.PeriodResponse {
	excluded := []string(p.ExcludedApartmentIDs)
	if excluded == nil {
		excluded = []string{}
	}
	return dto.PeriodResponse{
		ID:                   p.PeriodID,
		DrawingID:            p.DrawingID,
		StartDate:            p.StartDate.Format(dateLayout),
		EndDate:              p.EndDate.Format(dateLayout),
		Description:          p.Description,
		Comment:              p.Comment,
		SortOrder:            p.SortOrder,
		ExcludedApartmentIDs: excluded,
	}
}

func toPeriodResponses(periods []model.Period) []dto.PeriodResponse {
	list := make([]dto.PeriodResponse, 0, len(periods))
	for i := range periods {
		list = append(list, toPeriodResponse(&periods[i]))
	}
	return list
}

// periodLabel 时段展示名，用于导出与日历
func periodLabel(p model.Period) string {
	return fmt.Sprintf("%s (%s ~ %s)", p.Description, p.StartDate.Format(dateLayout), p.EndDate.Format(dateLayout))
}
