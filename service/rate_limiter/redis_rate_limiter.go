/*
 * @module service/rate_limiter/redis_rate_limiter
 * @description 基于Redis的预测接口限流，按API Key做固定窗口计数
 * @architecture 工具层 - 提供分布式限流能力
 * @documentReference dev_docs/backend_requirements.md
 * @stateFlow 取API Key -> Redis INCR+EXPIRE窗口计数 -> 判断是否超限
 * @rules 限流不可用时放行（可用性优先于限流）；计数键不含明文密钥
 * @dependencies github.com/go-redis/redis/v8
 * @refs api/routes.go, api/middleware/apikey_auth.go
 */

package rate_limiter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateLimitResult 限流检查结果
type RateLimitResult struct {
	Allowed   bool  `json:"allowed"`   // 是否允许请求
	Limit     int   `json:"limit"`     // 限制数量
	Remaining int   `json:"remaining"` // 剩余数量
	ResetAt   int64 `json:"reset_at"`  // 重置时间（Unix时间戳）
}

// RedisRateLimiter Redis限流器
type RedisRateLimiter struct {
	client       *redis.Client
	maxPerMinute int
}

// NewRedisRateLimiter 创建Redis限流器
func NewRedisRateLimiter(maxPerMinute int) (*RedisRateLimiter, error) {
	// 从环境变量读取Redis配置
	host := getEnvWithDefault("REDIS_HOST", "localhost")
	port := getEnvWithDefault("REDIS_PORT", "6379")
	password := os.Getenv("REDIS_PASSWORD")
	db := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		fmt.Sscanf(dbStr, "%d", &db)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", host, port),
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis连接失败: %w", err)
	}

	slog.Info("Redis限流器初始化成功",
		"redis_host", host,
		"redis_port", port,
		"max_per_minute", maxPerMinute)

	return &RedisRateLimiter{
		client:       client,
		maxPerMinute: maxPerMinute,
	}, nil
}

// CheckRateLimit 检查指定API Key是否超过每分钟限额
// 使用Lua脚本保证计数与过期设置的原子性
func (r *RedisRateLimiter) CheckRateLimit(ctx context.Context, apiKey string) (*RateLimitResult, error) {
	key := r.buildRateLimitKey(apiKey)

	script := `
		local key = KEYS[1]
		local max_requests = tonumber(ARGV[1])
		local window = tonumber(ARGV[2])

		local current = redis.call('GET', key)
		if current == false then
			current = 0
		else
			current = tonumber(current)
		end

		if current >= max_requests then
			local ttl = redis.call('TTL', key)
			if ttl == -1 then
				ttl = window
			end
			return {0, current, ttl}
		end

		local new_count = redis.call('INCR', key)
		if new_count == 1 then
			redis.call('EXPIRE', key, window)
		end

		local ttl = redis.call('TTL', key)
		if ttl == -1 then
			ttl = window
		end

		return {1, new_count, ttl}
	`

	const window = 60 // 秒
	result, err := r.client.Eval(ctx, script, []string{key}, r.maxPerMinute, window).Result()
	if err != nil {
		return nil, fmt.Errorf("限流检查失败: %w", err)
	}

	results := result.([]interface{})
	allowed := results[0].(int64) == 1
	currentCount := int(results[1].(int64))
	ttl := int(results[2].(int64))

	remaining := r.maxPerMinute - currentCount
	if remaining < 0 {
		remaining = 0
	}

	return &RateLimitResult{
		Allowed:   allowed,
		Limit:     r.maxPerMinute,
		Remaining: remaining,
		ResetAt:   time.Now().Add(time.Duration(ttl) * time.Second).Unix(),
	}, nil
}

// buildRateLimitKey 构造计数键，对密钥取哈希避免明文入库
func (r *RedisRateLimiter) buildRateLimitKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return "rate_limit:predict:" + hex.EncodeToString(sum[:8])
}

// Close 关闭Redis连接
func (r *RedisRateLimiter) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
