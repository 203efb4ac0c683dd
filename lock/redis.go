package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// 只有持有者能删除自己的锁
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock 基于 SETNX + TTL 的运行锁
// 每次加锁生成随机令牌，解锁用 Lua 脚本比对令牌后删除
type RedisLock struct {
	client *redis.Client
	prefix string

	mu     sync.Mutex
	tokens map[string]string
}

// NewRedisLock 创建 Redis 运行锁
func NewRedisLock(client *redis.Client, prefix string) *RedisLock {
	return &RedisLock{
		client: client,
		prefix: prefix,
		tokens: make(map[string]string),
	}
}

// TryLock 尝试获取锁，锁已被占用时返回 false
func (l *RedisLock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token, err := newToken()
	if err != nil {
		return false, err
	}

	ok, err := l.client.SetNX(ctx, l.prefix+key, token, ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		l.mu.Lock()
		l.tokens[key] = token
		l.mu.Unlock()
	}
	return ok, nil
}

// Unlock 释放锁，不是自己持有的锁不会被误删
func (l *RedisLock) Unlock(ctx context.Context, key string) error {
	l.mu.Lock()
	token, held := l.tokens[key]
	delete(l.tokens, key)
	l.mu.Unlock()

	if !held {
		return nil
	}
	return unlockScript.Run(ctx, l.client, []string{l.prefix + key}, token).Err()
}

// Close 关闭 Redis 连接
func (l *RedisLock) Close() error {
	return l.client.Close()
}

// newToken 生成 16 字节随机令牌
func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
