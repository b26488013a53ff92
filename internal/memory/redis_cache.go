package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache Redis 缓存层,承载 embedding 与问答结果的跨进程缓存
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache 创建 Redis 缓存
func NewRedisCache(addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{
		client: client,
		ttl:    ttl,
	}, nil
}

// GetEmbedding 读取缓存的向量,未命中返回 nil
func (r *RedisCache) GetEmbedding(key string) ([]float32, error) {
	ctx := context.Background()

	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var vector []float32
	if err := json.Unmarshal(data, &vector); err != nil {
		return nil, err
	}
	return vector, nil
}

// SetEmbedding 缓存向量
func (r *RedisCache) SetEmbedding(key string, vector []float32) error {
	data, err := json.Marshal(vector)
	if err != nil {
		return err
	}
	return r.client.Set(context.Background(), key, data, r.ttl).Err()
}

// GetAnswer 读取缓存的问答结果
func (r *RedisCache) GetAnswer(questionHash string) (string, bool, error) {
	ctx := context.Background()

	answer, err := r.client.Get(ctx, "qa:"+questionHash).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return answer, true, nil
}

// SetAnswer 缓存问答结果
func (r *RedisCache) SetAnswer(questionHash, answer string) error {
	return r.client.Set(context.Background(), "qa:"+questionHash, answer, r.ttl).Err()
}

// Close 关闭连接
func (r *RedisCache) Close() error {
	return r.client.Close()
}
