package repository

import (
	"context"

	"gorm.io/gorm"

	"my-page/backend/internal/model"
	pkgerrors "my-page/backend/pkg/errors"
)

// DrawingRepository 抽签数据访问接口
type DrawingRepository interface {
	Create(ctx context.Context, drawing *model.Drawing) error
	GetByID(ctx context.Context, id string) (*model.Drawing, error)
	List(ctx context.Context, offset, limit int) ([]model.Drawing, int64, error)
	Update(ctx context.Context, drawing *model.Drawing) error
	Delete(ctx context.Context, id string, deletedBy string) error
}

type drawingRepo struct {
	db *gorm.DB
}

func NewDrawingRepo(db *gorm.DB) DrawingRepository {
	return &drawingRepo{db: db}
}

func (r *drawingRepo) Create(ctx context.Context, drawing *model.Drawing) error {
	return r.db.WithContext(ctx).Create(drawing).Error
}

func (r *drawingRepo) GetByID(ctx context.Context, id string) (*model.Drawing, error) {
	var drawing model.Drawing
	err := r.db.WithContext(ctx).
		Where("drawing_id = ?", id).
		First(&drawing).Error
	if err != nil {
		return nil, err
	}
	return &drawing, nil
}

func (r *drawingRepo) List(ctx context.Context, offset, limit int) ([]model.Drawing, int64, error) {
	var drawings []model.Drawing
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Drawing{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&drawings).Error
	return drawings, total, err
}

// Update 乐观锁更新状态与时间戳
func (r *drawingRepo) Update(ctx context.Context, drawing *model.Drawing) error {
	oldVersion := drawing.Version
	result := r.db.WithContext(ctx).
		Model(drawing).
		Where("drawing_id = ? AND version = ?", drawing.DrawingID, oldVersion).
		Updates(map[string]interface{}{
			"season":                 drawing.Season,
			"status":                 drawing.Status,
			"opened_at":              drawing.OpenedAt,
			"locked_at":              drawing.LockedAt,
			"drawn_at":               drawing.DrawnAt,
			"published_at":           drawing.PublishedAt,
			"published_execution_id": drawing.PublishedExecutionID,
			"updated_by":             drawing.UpdatedBy,
			"version":                oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	drawing.Version = oldVersion + 1
	return nil
}

func (r *drawingRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Drawing{}).
		Where("drawing_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}
