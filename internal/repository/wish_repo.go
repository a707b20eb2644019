package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"my-page/backend/internal/model"
)

// WishRepository 愿望数据访问接口
type WishRepository interface {
	// Upsert 按 (drawing_id, user_id, priority) 覆盖写入
	Upsert(ctx context.Context, wish *model.Wish) error
	GetByID(ctx context.Context, id string) (*model.Wish, error)
	ListByDrawing(ctx context.Context, drawingID string) ([]model.Wish, error)
	ListByDrawingAndUser(ctx context.Context, drawingID, userID string) ([]model.Wish, error)
	Delete(ctx context.Context, id string) error
	DeleteByPeriod(ctx context.Context, periodID string) error
	DeleteByDrawing(ctx context.Context, drawingID string) error
}

type wishRepo struct {
	db *gorm.DB
}

func NewWishRepo(db *gorm.DB) WishRepository {
	return &wishRepo{db: db}
}

func (r *wishRepo) Upsert(ctx context.Context, wish *model.Wish) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "drawing_id"}, {Name: "user_id"}, {Name: "priority"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"period_id", "desired_apartment_ids", "comment", "updated_at", "updated_by",
			}),
		}).
		Create(wish).Error
}

func (r *wishRepo) GetByID(ctx context.Context, id string) (*model.Wish, error) {
	var wish model.Wish
	err := r.db.WithContext(ctx).
		Where("wish_id = ?", id).
		First(&wish).Error
	if err != nil {
		return nil, err
	}
	return &wish, nil
}

func (r *wishRepo) ListByDrawing(ctx context.Context, drawingID string) ([]model.Wish, error) {
	var wishes []model.Wish
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("drawing_id = ?", drawingID).
		Order("user_id ASC, priority ASC").
		Find(&wishes).Error
	return wishes, err
}

func (r *wishRepo) ListByDrawingAndUser(ctx context.Context, drawingID, userID string) ([]model.Wish, error) {
	var wishes []model.Wish
	err := r.db.WithContext(ctx).
		Where("drawing_id = ? AND user_id = ?", drawingID, userID).
		Order("priority ASC").
		Find(&wishes).Error
	return wishes, err
}

func (r *wishRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("wish_id = ?", id).
		Delete(&model.Wish{}).Error
}

func (r *wishRepo) DeleteByPeriod(ctx context.Context, periodID string) error {
	return r.db.WithContext(ctx).
		Where("period_id = ?", periodID).
		Delete(&model.Wish{}).Error
}

func (r *wishRepo) DeleteByDrawing(ctx context.Context, drawingID string) error {
	return r.db.WithContext(ctx).
		Where("drawing_id = ?", drawingID).
		Delete(&model.Wish{}).Error
}
