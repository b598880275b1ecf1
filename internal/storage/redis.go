package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"materialhub/internal/config"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// NewRedisClient 创建并验证 Redis 连接
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

// RedisKV 每个命名空间对应一个不过期的字符串 key
type RedisKV struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisKV(rdb *redis.Client, prefix string) *RedisKV {
	return &RedisKV{rdb: rdb, prefix: prefix}
}

func (r *RedisKV) key(namespace string) string { return r.prefix + namespace }

func (r *RedisKV) Load(ctx context.Context, namespace string) ([]byte, bool, error) {
	ctx, span := tracer.Start(ctx, "kv.redis.Load", trace.WithAttributes(attribute.String("kv.namespace", namespace)))
	defer span.End()

	val, err := r.rdb.Get(ctx, r.key(namespace)).Bytes()
	if errors.Is(err, redis.Nil) {
		span.SetAttributes(attribute.Bool("kv.hit", false))
		return nil, false, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, false, err
	}
	span.SetAttributes(attribute.Bool("kv.hit", true))
	return val, true, nil
}

func (r *RedisKV) Save(ctx context.Context, namespace string, data []byte) error {
	ctx, span := tracer.Start(ctx, "kv.redis.Save", trace.WithAttributes(attribute.String("kv.namespace", namespace)))
	defer span.End()

	if err := r.rdb.Set(ctx, r.key(namespace), data, 0).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
