package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"lostfound-bot/internal/config"
)

// RedisCache keeps channel name -> ID pairs across cycles until their TTL runs out.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache(cfg config.RedisConfig) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ttl := time.Duration(cfg.ChannelTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{client: client, prefix: cfg.KeyPrefix, ttl: ttl}
}

func (s *RedisCache) Get(ctx context.Context, name string) (string, bool, error) {
	id, err := s.client.Get(ctx, s.key(name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (s *RedisCache) Set(ctx context.Context, name, id string) error {
	return s.client.Set(ctx, s.key(name), id, s.ttl).Err()
}

func (s *RedisCache) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisCache) Close() error {
	return s.client.Close()
}

func (s *RedisCache) key(name string) string {
	return s.prefix + "channel:" + name
}
