package repository

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"my-page/backend/internal/model"
)

// ExecutionRepository 执行记录数据访问接口（只追加）
type ExecutionRepository interface {
	Create(ctx context.Context, execution *model.Execution) error
	GetByID(ctx context.Context, id string) (*model.Execution, error)
	ListByDrawing(ctx context.Context, drawingID string) ([]model.Execution, error)
	CountByDrawing(ctx context.Context, drawingID string) (int64, error)
	// ExistsForPeriod 是否有执行记录的分配引用了该时段
	ExistsForPeriod(ctx context.Context, drawingID, periodID string) (bool, error)
}

type executionRepo struct {
	db *gorm.DB
}

func NewExecutionRepo(db *gorm.DB) ExecutionRepository {
	return &executionRepo{db: db}
}

func (r *executionRepo) Create(ctx context.Context, execution *model.Execution) error {
	return r.db.WithContext(ctx).Create(execution).Error
}

func (r *executionRepo) GetByID(ctx context.Context, id string) (*model.Execution, error) {
	var execution model.Execution
	err := r.db.WithContext(ctx).
		Where("execution_id = ?", id).
		First(&execution).Error
	if err != nil {
		return nil, err
	}
	return &execution, nil
}

func (r *executionRepo) ListByDrawing(ctx context.Context, drawingID string) ([]model.Execution, error) {
	var executions []model.Execution
	err := r.db.WithContext(ctx).
		Where("drawing_id = ?", drawingID).
		Order("executed_at ASC").
		Find(&executions).Error
	return executions, err
}

func (r *executionRepo) CountByDrawing(ctx context.Context, drawingID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Execution{}).
		Where("drawing_id = ?", drawingID).
		Count(&count).Error
	return count, err
}

func (r *executionRepo) ExistsForPeriod(ctx context.Context, drawingID, periodID string) (bool, error) {
	probe, err := json.Marshal([]map[string]string{{"period_id": periodID}})
	if err != nil {
		return false, err
	}
	var count int64
	err = r.db.WithContext(ctx).
		Model(&model.Execution{}).
		Where("drawing_id = ? AND allocations @> ?::jsonb", drawingID, string(probe)).
		Count(&count).Error
	return count > 0, err
}
