package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"my-page/backend/config"
	"my-page/backend/internal/draft"
	"my-page/backend/internal/lock"
	"my-page/backend/internal/metrics"
	"my-page/backend/internal/model"
	"my-page/backend/internal/repository"
	pkgerrors "my-page/backend/pkg/errors"
)

// ── 通用业务错误 ──

var (
	ErrDrawingNotFound   = errors.New("抽签不存在")
	ErrPeriodNotFound    = errors.New("时段不存在")
	ErrWishNotFound      = errors.New("愿望不存在")
	ErrExecutionNotFound = errors.New("执行记录不存在")
	ErrApartmentNotFound = errors.New("公寓不存在")
	ErrNotPublished      = errors.New("抽签结果尚未发布")
	ErrForbidden         = errors.New("无权操作该资源")
)

const (
	timeLayout = "2006-01-02T15:04:05Z"
	dateLayout = "2006-01-02"
)

// Caller 当前请求的调用者
type Caller struct {
	UserID string
	Role   string
}

// IsAdmin 是否管理员
func (c Caller) IsAdmin() bool { return c.Role == "admin" }

// Service 所有 Service 的聚合入口
type Service struct {
	Drawing   DrawingService
	Period    PeriodService
	Wish      WishService
	Execution ExecutionService
	Export    ExportService
	Apartment ApartmentService
}

// Deps Service 层共享依赖
type Deps struct {
	Config  *config.Config
	Repo    *repository.Repository
	Locker  lock.Locker
	Metrics metrics.Collector
	Logger  *zap.Logger
}

// NewService 创建 Service 聚合
func NewService(d Deps) *Service {
	if d.Metrics == nil {
		d.Metrics = metrics.NewNop()
	}
	if d.Locker == nil {
		d.Locker = lock.NewLocal(d.Config.Drawing.LockWait)
	}
	rules := draft.Options{
		MaxAllocationsPerUser: d.Config.Drawing.MaxAllocationsPerUser,
		MaxPriority:           d.Config.Drawing.MaxPriority,
	}

	execution := NewExecutionService(d.Repo, d.Locker, draft.New(rules), d.Metrics, d.Logger)
	return &Service{
		Drawing:   NewDrawingService(d.Repo, d.Locker, d.Metrics, d.Logger),
		Period:    NewPeriodService(d.Repo, d.Locker, d.Logger),
		Wish:      NewWishService(d.Repo, d.Locker, rules, d.Config.Drawing.ImportMaxRows, d.Metrics, d.Logger),
		Execution: execution,
		Export:    NewExportService(execution, d.Config.Server.BaseURL, d.Logger),
		Apartment: NewApartmentService(d.Repo, d.Logger),
	}
}

// ── 内部辅助方法 ──

// loadDrawing 查询抽签，记录不存在时返回 ErrDrawingNotFound
func loadDrawing(ctx context.Context, repo *repository.Repository, logger *zap.Logger, id string) (*model.Drawing, error) {
	drawing, err := repo.Drawing.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDrawingNotFound
		}
		logger.Error("查询抽签失败", zap.String("drawing_id", id), zap.Error(err))
		return nil, err
	}
	return drawing, nil
}

// withDrawingLock 在抽签锁内执行 fn
func withDrawingLock(ctx context.Context, locker lock.Locker, drawingID string, fn func() error) error {
	release, err := locker.Acquire(ctx, lock.DrawingKey(drawingID))
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// runInTx 在事务中执行 fn；mock 仓库没有 db 时直接在原仓库上执行
func runInTx(ctx context.Context, repo *repository.Repository, logger *zap.Logger, fn func(txRepo *repository.Repository) error) error {
	tx, err := repo.BeginTx(ctx)
	if err != nil {
		logger.Error("开启事务失败", zap.Error(err))
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	if err := fn(repo.WithTx(tx)); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			logger.Error("提交事务失败", zap.Error(err))
			return err
		}
	}
	return nil
}

// requireSingleLine 名称类字段会逐行写入抽签审计日志，不允许换行等控制字符
func requireSingleLine(field, value string) error {
	if strings.IndexFunc(value, unicode.IsControl) >= 0 {
		return pkgerrors.Validation(field, "%s 不能包含换行或其他控制字符", field)
	}
	return nil
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(timeLayout)
	return &s
}
