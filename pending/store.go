// Package pending 挂单存储
// 周度决策产生的限价买单要活过进程重启，留给下一次日度流程消费
package pending

import (
	"context"

	"swingtrader/config"
	"swingtrader/portfolio"
)

// Store 挂单存储接口
type Store interface {
	// Save 覆盖保存全部挂单
	Save(ctx context.Context, orders []portfolio.Order) error
	// Load 读取全部挂单
	Load(ctx context.Context) ([]portfolio.Order, error)
	// Clear 清空挂单
	Clear(ctx context.Context) error
	// Close 关闭存储
	Close() error
}

// New 根据配置创建挂单存储
// 启用 Redis 时用 Redis，否则退化为本地 JSON 文件
func New(cfg *config.RedisConfig, fallbackPath string) (Store, error) {
	if cfg.Enabled {
		return NewRedisStore(cfg), nil
	}
	return NewFileStore(fallbackPath), nil
}
