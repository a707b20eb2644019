package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"my-page/backend/internal/dto"
	"my-page/backend/internal/model"
	"my-page/backend/internal/repository"
	pkgerrors "my-page/backend/pkg/errors"
)

// ApartmentService 公寓业务接口
type ApartmentService interface {
	List(ctx context.Context, includeInactive bool) ([]dto.ApartmentResponse, error)
	Create(ctx context.Context, req *dto.CreateApartmentRequest, callerID string) (*dto.ApartmentResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateApartmentRequest, callerID string) (*dto.ApartmentResponse, error)
}

type apartmentService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewApartmentService 创建 ApartmentService 实例
func NewApartmentService(repo *repository.Repository, logger *zap.Logger) ApartmentService {
	return &apartmentService{repo: repo, logger: logger}
}

func (s *apartmentService) List(ctx context.Context, includeInactive bool) ([]dto.ApartmentResponse, error) {
	apartments, err := s.repo.Apartment.List(ctx, !includeInactive)
	if err != nil {
		s.logger.Error("查询公寓列表失败", zap.Error(err))
		return nil, err
	}
	list := make([]dto.ApartmentResponse, 0, len(apartments))
	for i := range apartments {
		list = append(list, toApartmentResponse(&apartments[i]))
	}
	return list, nil
}

func (s *apartmentService) Create(ctx context.Context, req *dto.CreateApartmentRequest, callerID string) (*dto.ApartmentResponse, error) {
	name := strings.TrimSpace(req.Name)
	if err := s.checkNameUnique(ctx, name, ""); err != nil {
		return nil, err
	}

	apt := &model.Apartment{
		Name:      name,
		SortOrder: req.SortOrder,
		IsActive:  true,
	}
	apt.CreatedBy = &callerID
	apt.UpdatedBy = &callerID

	if err := s.repo.Apartment.Create(ctx, apt); err != nil {
		s.logger.Error("创建公寓失败", zap.Error(err))
		return nil, err
	}

	resp := toApartmentResponse(apt)
	return &resp, nil
}

func (s *apartmentService) Update(ctx context.Context, id string, req *dto.UpdateApartmentRequest, callerID string) (*dto.ApartmentResponse, error) {
	apt, err := s.repo.Apartment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApartmentNotFound
		}
		s.logger.Error("查询公寓失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name != apt.Name {
			if err := s.checkNameUnique(ctx, name, id); err != nil {
				return nil, err
			}
			apt.Name = name
		}
	}
	if req.SortOrder != nil {
		apt.SortOrder = *req.SortOrder
	}
	if req.IsActive != nil {
		apt.IsActive = *req.IsActive
	}
	apt.UpdatedBy = &callerID

	if err := s.repo.Apartment.Update(ctx, apt); err != nil {
		s.logger.Error("更新公寓失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	resp := toApartmentResponse(apt)
	return &resp, nil
}

// checkNameUnique 名称重复时返回 ValidationError；excludeID 为当前正在修改的公寓
func (s *apartmentService) checkNameUnique(ctx context.Context, name, excludeID string) error {
	if name == "" {
		return pkgerrors.Validation("name", "公寓名称不能为空")
	}
	if err := requireSingleLine("name", name); err != nil {
		return err
	}
	existing, err := s.repo.Apartment.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		s.logger.Error("查询公寓失败", zap.String("name", name), zap.Error(err))
		return err
	}
	if existing.ApartmentID != excludeID {
		return pkgerrors.Validation("name", "公寓名称「%s」已存在", name)
	}
	return nil
}

func toApartmentResponse(a *model.Apartment) dto.ApartmentResponse {
	return dto.ApartmentResponse{
		ID:        a.ApartmentID,
		Name:      a.Name,
		SortOrder: a.SortOrder,
		IsActive:  a.IsActive,
	}
}
