package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"my-page/backend/internal/draft"
	"my-page/backend/internal/dto"
	"my-page/backend/internal/lock"
	"my-page/backend/internal/metrics"
	"my-page/backend/internal/model"
	"my-page/backend/internal/repository"
	pkgerrors "my-page/backend/pkg/errors"
)

// WishService 愿望业务接口
type WishService interface {
	// Submit 提交或覆盖 (user, priority) 愿望；管理员可代他人提交
	Submit(ctx context.Context, drawingID string, req *dto.SubmitWishRequest, caller Caller) (*dto.WishResponse, error)
	Delete(ctx context.Context, drawingID, wishID string, caller Caller) error
	List(ctx context.Context, drawingID string) ([]dto.WishResponse, error)
	ListMine(ctx context.Context, drawingID, userID string) ([]dto.WishResponse, error)
	ParseImportFile(reader io.Reader, filename string) ([]dto.ImportWishRow, error)
	// BulkImport 逐行独立处理，单行失败不影响其他行
	BulkImport(ctx context.Context, drawingID string, rows []dto.ImportWishRow, callerID string) (*dto.ImportWishResponse, error)
}

type wishService struct {
	repo          *repository.Repository
	locker        lock.Locker
	rules         draft.Options
	importMaxRows int
	metrics       metrics.Collector
	logger        *zap.Logger
}

// NewWishService 创建 WishService 实例
func NewWishService(repo *repository.Repository, locker lock.Locker, rules draft.Options, importMaxRows int, collector metrics.Collector, logger *zap.Logger) WishService {
	return &wishService{
		repo:          repo,
		locker:        locker,
		rules:         rules,
		importMaxRows: importMaxRows,
		metrics:       collector,
		logger:        logger,
	}
}

// wishCatalog 一次校验所需的时段与公寓
type wishCatalog struct {
	periods          map[string]*model.Period
	periodsByDesc    map[string]*model.Period
	apartments       map[string]*model.Apartment
	apartmentsByName map[string]*model.Apartment
}

// ────────────────────── Submit ──────────────────────

func (s *wishService) Submit(ctx context.Context, drawingID string, req *dto.SubmitWishRequest, caller Caller) (*dto.WishResponse, error) {
	userID := caller.UserID
	if req.UserID != "" && req.UserID != caller.UserID {
		if !caller.IsAdmin() {
			return nil, ErrForbidden
		}
		userID = req.UserID
	}

	var saved *model.Wish
	err := withDrawingLock(ctx, s.locker, drawingID, func() error {
		catalog, err := s.openCatalog(ctx, drawingID, opSubmitWish)
		if err != nil {
			return err
		}

		user, err := s.repo.User.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Reference("user", userID, "wish")
			}
			s.logger.Error("查询用户失败", zap.String("user_id", userID), zap.Error(err))
			return err
		}

		wish := &model.Wish{
			DrawingID:           drawingID,
			UserID:              user.UserID,
			PeriodID:            req.PeriodID,
			Priority:            req.Priority,
			DesiredApartmentIDs: model.StringArray(req.DesiredApartmentIDs),
			Comment:             req.Comment,
		}
		wish.CreatedBy = &caller.UserID
		wish.UpdatedBy = &caller.UserID

		if err := s.validateWish(catalog, wish); err != nil {
			return err
		}
		if err := s.repo.Wish.Upsert(ctx, wish); err != nil {
			s.logger.Error("保存愿望失败", zap.String("drawing_id", drawingID), zap.Error(err))
			return err
		}
		wish.User = user
		saved = wish
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("愿望已提交",
		zap.String("drawing_id", drawingID), zap.String("user_id", userID), zap.Int("priority", req.Priority))
	resp := toWishResponse(saved)
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *wishService) Delete(ctx context.Context, drawingID, wishID string, caller Caller) error {
	return withDrawingLock(ctx, s.locker, drawingID, func() error {
		drawing, err := loadDrawing(ctx, s.repo, s.logger, drawingID)
		if err != nil {
			return err
		}
		if err := requireStatus(drawing, opDeleteWish, model.DrawingStatusDraft, model.DrawingStatusOpen); err != nil {
			return err
		}

		wish, err := s.repo.Wish.GetByID(ctx, wishID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWishNotFound
			}
			s.logger.Error("查询愿望失败", zap.String("wish_id", wishID), zap.Error(err))
			return err
		}
		if wish.DrawingID != drawingID {
			return ErrWishNotFound
		}
		if wish.UserID != caller.UserID && !caller.IsAdmin() {
			return ErrForbidden
		}

		if err := s.repo.Wish.Delete(ctx, wishID); err != nil {
			s.logger.Error("删除愿望失败", zap.String("wish_id", wishID), zap.Error(err))
			return err
		}
		return nil
	})
}

// ────────────────────── Query ──────────────────────

func (s *wishService) List(ctx context.Context, drawingID string) ([]dto.WishResponse, error) {
	if _, err := loadDrawing(ctx, s.repo, s.logger, drawingID); err != nil {
		return nil, err
	}
	wishes, err := s.repo.Wish.ListByDrawing(ctx, drawingID)
	if err != nil {
		s.logger.Error("查询愿望列表失败", zap.String("drawing_id", drawingID), zap.Error(err))
		return nil, err
	}
	return toWishResponses(wishes), nil
}

func (s *wishService) ListMine(ctx context.Context, drawingID, userID string) ([]dto.WishResponse, error) {
	if _, err := loadDrawing(ctx, s.repo, s.logger, drawingID); err != nil {
		return nil, err
	}
	wishes, err := s.repo.Wish.ListByDrawingAndUser(ctx, drawingID, userID)
	if err != nil {
		s.logger.Error("查询我的愿望失败", zap.String("drawing_id", drawingID), zap.Error(err))
		return nil, err
	}
	return toWishResponses(wishes), nil
}

// ────────────────────── BulkImport ──────────────────────

func (s *wishService) BulkImport(ctx context.Context, drawingID string, rows []dto.ImportWishRow, callerID string) (*dto.ImportWishResponse, error) {
	resp := &dto.ImportWishResponse{
		TotalLines: len(rows),
		Errors:     []dto.ImportWishError{},
	}

	err := withDrawingLock(ctx, s.locker, drawingID, func() error {
		catalog, err := s.openCatalog(ctx, drawingID, opImportWish)
		if err != nil {
			return err
		}

		users := make(map[string]*model.User)
		for _, row := range rows {
			if err := s.importRow(ctx, drawingID, catalog, users, row, callerID); err != nil {
				resp.ErrorCount++
				resp.Errors = append(resp.Errors, dto.ImportWishError{Line: row.Line, Reason: err.Error()})
				continue
			}
			resp.SuccessCount++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordImport(resp.SuccessCount, resp.ErrorCount)
	s.logger.Info("愿望导入完成",
		zap.String("drawing_id", drawingID),
		zap.Int("total", resp.TotalLines),
		zap.Int("success", resp.SuccessCount),
		zap.Int("failed", resp.ErrorCount))
	return resp, nil
}

// importRow 解析名称并写入一行，返回的错误作为该行的失败原因
func (s *wishService) importRow(ctx context.Context, drawingID string, catalog *wishCatalog, users map[string]*model.User, row dto.ImportWishRow, callerID string) error {
	if row.ParseError != "" {
		return errors.New(row.ParseError)
	}
	if row.Email == "" {
		return errors.New("邮箱为空")
	}

	email := strings.ToLower(row.Email)
	user, ok := users[email]
	if !ok {
		u, err := s.repo.User.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("用户不存在: %s", row.Email)
			}
			s.logger.Error("查询用户失败", zap.String("email", row.Email), zap.Error(err))
			return errors.New("查询用户失败")
		}
		users[email] = u
		user = u
	}

	period, ok := catalog.periodsByDesc[row.PeriodDescription]
	if !ok {
		return fmt.Errorf("时段不存在: %s", row.PeriodDescription)
	}

	desired := make([]string, 0, len(row.DesiredApartmentNames))
	for _, name := range row.DesiredApartmentNames {
		apt, ok := catalog.apartmentsByName[strings.ToLower(name)]
		if !ok {
			return fmt.Errorf("公寓不存在: %s", name)
		}
		desired = append(desired, apt.ApartmentID)
	}

	wish := &model.Wish{
		DrawingID:           drawingID,
		UserID:              user.UserID,
		PeriodID:            period.PeriodID,
		Priority:            row.Priority,
		DesiredApartmentIDs: model.StringArray(desired),
		Comment:             row.Comment,
	}
	wish.CreatedBy = &callerID
	wish.UpdatedBy = &callerID

	if err := s.validateWish(catalog, wish); err != nil {
		return err
	}
	if err := s.repo.Wish.Upsert(ctx, wish); err != nil {
		s.logger.Error("导入愿望失败", zap.Int("line", row.Line), zap.Error(err))
		return errors.New("保存愿望失败")
	}
	return nil
}

// ── 内部辅助方法 ──

// openCatalog 校验抽签处于可提交愿望的状态，并加载时段与公寓
func (s *wishService) openCatalog(ctx context.Context, drawingID, op string) (*wishCatalog, error) {
	drawing, err := loadDrawing(ctx, s.repo, s.logger, drawingID)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(drawing, op, model.DrawingStatusDraft, model.DrawingStatusOpen); err != nil {
		return nil, err
	}

	periods, err := s.repo.Period.ListByDrawing(ctx, drawingID)
	if err != nil {
		s.logger.Error("查询时段列表失败", zap.String("drawing_id", drawingID), zap.Error(err))
		return nil, err
	}
	apartments, err := s.repo.Apartment.List(ctx, false)
	if err != nil {
		s.logger.Error("查询公寓列表失败", zap.Error(err))
		return nil, err
	}

	catalog := &wishCatalog{
		periods:          make(map[string]*model.Period, len(periods)),
		periodsByDesc:    make(map[string]*model.Period, len(periods)),
		apartments:       make(map[string]*model.Apartment, len(apartments)),
		apartmentsByName: make(map[string]*model.Apartment, len(apartments)),
	}
	for i := range periods {
		catalog.periods[periods[i].PeriodID] = &periods[i]
		catalog.periodsByDesc[periods[i].Description] = &periods[i]
	}
	for i := range apartments {
		catalog.apartments[apartments[i].ApartmentID] = &apartments[i]
		catalog.apartmentsByName[strings.ToLower(apartments[i].Name)] = &apartments[i]
	}
	return catalog, nil
}

func (s *wishService) validateWish(catalog *wishCatalog, wish *model.Wish) error {
	referrer := fmt.Sprintf("wish %s#%d", wish.UserID, wish.Priority)

	period, ok := catalog.periods[wish.PeriodID]
	if !ok {
		return pkgerrors.Reference("period", wish.PeriodID, referrer)
	}
	if wish.Priority < 1 || wish.Priority > s.rules.MaxPriority {
		return pkgerrors.Validation("priority", "优先级必须在 1 到 %d 之间", s.rules.MaxPriority)
	}
	if len(wish.DesiredApartmentIDs) == 0 {
		return pkgerrors.Validation("desired_apartment_ids", "至少选择一个公寓")
	}

	seen := make(map[string]struct{}, len(wish.DesiredApartmentIDs))
	for _, id := range wish.DesiredApartmentIDs {
		if _, dup := seen[id]; dup {
			return pkgerrors.Validation("desired_apartment_ids", "公寓重复: %s", id)
		}
		seen[id] = struct{}{}

		apt, ok := catalog.apartments[id]
		if !ok {
			return pkgerrors.Reference("apartment", id, referrer)
		}
		if !apt.IsActive {
			return pkgerrors.Validation("desired_apartment_ids", "公寓「%s」已停用", apt.Name)
		}
		if period.ExcludedApartmentIDs.Contains(id) {
			return pkgerrors.Validation("desired_apartment_ids", "公寓「%s」在时段「%s」不可用", apt.Name, period.Description)
		}
	}
	return nil
}

func toWishResponse(w *model.Wish) dto.WishResponse {
	resp := dto.WishResponse{
		ID:                  w.WishID,
		DrawingID:           w.DrawingID,
		UserID:              w.UserID,
		PeriodID:            w.PeriodID,
		Priority:            w.Priority,
		DesiredApartmentIDs: []string(w.DesiredApartmentIDs),
		Comment:             w.Comment,
		UpdatedAt:           w.UpdatedAt.UTC().Format(timeLayout),
	}
	if w.User != nil {
		resp.User = &dto.UserBrief{ID: w.User.UserID, Name: w.User.Name, Email: w.User.Email}
	}
	return resp
}

func toWishResponses(wishes []model.Wish) []dto.WishResponse {
	list := make([]dto.WishResponse, 0, len(wishes))
	for i := range wishes {
		list = append(list, toWishResponse(&wishes[i]))
	}
	return list
}
