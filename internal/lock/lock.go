// Package lock 提供按抽签串行化状态变更的互斥锁。
//
// Local 适用于单实例部署；Redis 适用于多实例部署，基于 SET NX PX 与
// 比较后删除的 Lua 脚本实现。两者对调用方暴露相同的 Locker 接口。
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
)

// ErrLockTimeout 在等待时间内未能获取锁
var ErrLockTimeout = errors.New("抽签正在被其他操作处理，请稍后重试")

// Locker 按 key 互斥
// Acquire 阻塞直到获得锁或 ctx 结束，返回的 release 必须调用且只调用一次
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// DrawingKey 抽签锁的 key
func DrawingKey(drawingID string) string {
	return "drawing:" + drawingID
}

// ── 进程内锁 ──

// Local 进程内锁，每个 key 对应一个容量为 1 的信号量
type Local struct {
	slots *xsync.Map[string, chan struct{}]
	wait  time.Duration
}

// NewLocal 创建进程内锁
// wait 为单次获取的最长等待时间，<=0 时仅受 ctx 约束
func NewLocal(wait time.Duration) *Local {
	return &Local{slots: xsync.NewMap[string, chan struct{}](), wait: wait}
}

// Acquire 获取 key 对应的锁，直到成功、超过 wait 或 ctx 结束
func (l *Local) Acquire(ctx context.Context, key string) (func(), error) {
	if l.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}
	ch, _ := l.slots.LoadOrStore(key, make(chan struct{}, 1))
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
	}
}

// ── Redis 分布式锁 ──

// RedisClient pkg/redis.Client 的锁相关子集
type RedisClient interface {
	TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, token string) error
}

// Redis 基于 Redis 的分布式锁
type Redis struct {
	client   RedisClient
	ttl      time.Duration
	wait     time.Duration
	interval time.Duration
	logger   *zap.Logger
}

// NewRedis 创建分布式锁
// ttl 为锁的过期时间，wait 为单次获取的最长等待时间
func NewRedis(client RedisClient, ttl, wait time.Duration, logger *zap.Logger) *Redis {
	return &Redis{
		client:   client,
		ttl:      ttl,
		wait:     wait,
		interval: 50 * time.Millisecond,
		logger:   logger,
	}
}

// Acquire 轮询获取锁，直到成功、超过 wait 或 ctx 结束
func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, r.wait)
	defer cancel()

	token := uuid.NewString()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		ok, err := r.client.TryLock(ctx, key, token, r.ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return r.releaseFunc(key, token), nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
	}
}

func (r *Redis) releaseFunc(key, token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := r.client.Unlock(ctx, key, token); err != nil {
			r.logger.Warn("释放抽签锁失败", zap.String("key", key), zap.Error(err))
		}
	}
}
