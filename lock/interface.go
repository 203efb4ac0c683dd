// Package lock 运行互斥锁
// 多实例部署时通过 Redis 保证同一时刻只有一个实盘流程在跑
package lock

import (
	"context"
	"time"
)

// DistributedLock 运行锁接口
type DistributedLock interface {
	// TryLock 尝试获取锁，不阻塞，返回是否成功
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Unlock 释放自己持有的锁
	Unlock(ctx context.Context, key string) error
	// Close 释放底层连接
	Close() error
}

// NopLock 单实例模式下的空实现，TryLock 永远成功
type NopLock struct{}

// NewNopLock 创建空锁
func NewNopLock() *NopLock { return &NopLock{} }

func (*NopLock) TryLock(context.Context, string, time.Duration) (bool, error) { return true, nil }

func (*NopLock) Unlock(context.Context, string) error { return nil }

func (*NopLock) Close() error { return nil }
