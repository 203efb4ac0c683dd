package pending

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"swingtrader/config"
	"swingtrader/portfolio"
)

// RedisStore Redis 挂单存储
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore 创建 Redis 挂单存储
func NewRedisStore(cfg *config.RedisConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	return &RedisStore{
		client: client,
		key:    cfg.Prefix + "pending_orders",
	}
}

// Save 覆盖保存全部挂单
func (s *RedisStore) Save(ctx context.Context, orders []portfolio.Order) error {
	data, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("序列化挂单失败: %w", err)
	}

	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("保存挂单失败: %w", err)
	}
	return nil
}

// Load 读取全部挂单
func (s *RedisStore) Load(ctx context.Context) ([]portfolio.Order, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取挂单失败: %w", err)
	}

	var orders []portfolio.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("解析挂单失败: %w", err)
	}
	return orders, nil
}

// Clear 清空挂单
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("清空挂单失败: %w", err)
	}
	return nil
}

// Close 关闭连接
func (s *RedisStore) Close() error {
	return s.client.Close()
}
