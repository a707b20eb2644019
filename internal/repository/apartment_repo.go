package repository

import (
	"context"

	"gorm.io/gorm"

	"my-page/backend/internal/model"
)

// ApartmentRepository 公寓数据访问接口
type ApartmentRepository interface {
	Create(ctx context.Context, apartment *model.Apartment) error
	GetByID(ctx context.Context, id string) (*model.Apartment, error)
	GetByName(ctx context.Context, name string) (*model.Apartment, error)
	List(ctx context.Context, activeOnly bool) ([]model.Apartment, error)
	Update(ctx context.Context, apartment *model.Apartment) error
}

type apartmentRepo struct {
	db *gorm.DB
}

func NewApartmentRepo(db *gorm.DB) ApartmentRepository {
	return &apartmentRepo{db: db}
}

func (r *apartmentRepo) Create(ctx context.Context, apartment *model.Apartment) error {
	return r.db.WithContext(ctx).Create(apartment).Error
}

func (r *apartmentRepo) GetByID(ctx context.Context, id string) (*model.Apartment, error) {
	var apartment model.Apartment
	err := r.db.WithContext(ctx).
		Where("apartment_id = ?", id).
		First(&apartment).Error
	if err != nil {
		return nil, err
	}
	return &apartment, nil
}

func (r *apartmentRepo) GetByName(ctx context.Context, name string) (*model.Apartment, error) {
	var apartment model.Apartment
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&apartment).Error
	if err != nil {
		return nil, err
	}
	return &apartment, nil
}

func (r *apartmentRepo) List(ctx context.Context, activeOnly bool) ([]model.Apartment, error) {
	var apartments []model.Apartment
	db := r.db.WithContext(ctx)
	if activeOnly {
		db = db.Where("is_active = ?", true)
	}
	err := db.Order("sort_order ASC, name ASC").Find(&apartments).Error
	return apartments, err
}

func (r *apartmentRepo) Update(ctx context.Context, apartment *model.Apartment) error {
	return r.db.WithContext(ctx).
		Model(apartment).
		Where("apartment_id = ?", apartment.ApartmentID).
		Updates(map[string]interface{}{
			"name":       apartment.Name,
			"sort_order": apartment.SortOrder,
			"is_active":  apartment.IsActive,
			"updated_by": apartment.UpdatedBy,
		}).Error
}
