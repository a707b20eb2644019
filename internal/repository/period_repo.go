package repository

import (
	"context"

	"gorm.io/gorm"

	"my-page/backend/internal/model"
)

// PeriodRepository 时段数据访问接口
type PeriodRepository interface {
	Create(ctx context.Context, period *model.Period) error
	BatchCreate(ctx context.Context, periods []model.Period) error
	GetByID(ctx context.Context, id string) (*model.Period, error)
	ListByDrawing(ctx context.Context, drawingID string) ([]model.Period, error)
	CountByDrawing(ctx context.Context, drawingID string) (int64, error)
	MaxSortOrder(ctx context.Context, drawingID string) (int, error)
	Update(ctx context.Context, period *model.Period) error
	Delete(ctx context.Context, id string) error
	DeleteByDrawing(ctx context.Context, drawingID string) error
}

type periodRepo struct {
	db *gorm.DB
}

func NewPeriodRepo(db *gorm.DB) PeriodRepository {
	return &periodRepo{db: db}
}

func (r *periodRepo) Create(ctx context.Context, period *model.Period) error {
	return r.db.WithContext(ctx).Create(period).Error
}

func (r *periodRepo) BatchCreate(ctx context.Context, periods []model.Period) error {
	if len(periods) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&periods).Error
}

func (r *periodRepo) GetByID(ctx context.Context, id string) (*model.Period, error) {
	var period model.Period
	err := r.db.WithContext(ctx).
		Where("period_id = ?", id).
		First(&period).Error
	if err != nil {
		return nil, err
	}
	return &period, nil
}

func (r *periodRepo) ListByDrawing(ctx context.Context, drawingID string) ([]model.Period, error) {
	var periods []model.Period
	err := r.db.WithContext(ctx).
		Where("drawing_id = ?", drawingID).
		Order("start_date ASC, sort_order ASC").
		Find(&periods).Error
	return periods, err
}

func (r *periodRepo) CountByDrawing(ctx context.Context, drawingID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Period{}).
		Where("drawing_id = ?", drawingID).
		Count(&count).Error
	return count, err
}

func (r *periodRepo) MaxSortOrder(ctx context.Context, drawingID string) (int, error) {
	var max int
	err := r.db.WithContext(ctx).
		Model(&model.Period{}).
		Where("drawing_id = ?", drawingID).
		Select("COALESCE(MAX(sort_order), 0)").
		Scan(&max).Error
	return max, err
}

func (r *periodRepo) Update(ctx context.Context, period *model.Period) error {
	return r.db.WithContext(ctx).
		Model(period).
		Where("period_id = ?", period.PeriodID).
		Updates(map[string]interface{}{
			"start_date":             period.StartDate,
			"end_date":               period.EndDate,
			"description":            period.Description,
			"comment":                period.Comment,
			"sort_order":             period.SortOrder,
			"excluded_apartment_ids": period.ExcludedApartmentIDs,
			"updated_by":             period.UpdatedBy,
		}).Error
}

func (r *periodRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("period_id = ?", id).
		Delete(&model.Period{}).Error
}

func (r *periodRepo) DeleteByDrawing(ctx context.Context, drawingID string) error {
	return r.db.WithContext(ctx).
		Where("drawing_id = ?", drawingID).
		Delete(&model.Period{}).Error
}
