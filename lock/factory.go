package lock

import (
	"github.com/redis/go-redis/v9"

	"swingtrader/config"
)

// New 根据配置创建运行锁
// 未启用 Redis 时返回 NopLock（单实例模式，零开销）
func New(cfg *config.RedisConfig) (DistributedLock, error) {
	if !cfg.Enabled {
		return NewNopLock(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	return NewRedisLock(client, cfg.Prefix+"lock:"), nil
}
