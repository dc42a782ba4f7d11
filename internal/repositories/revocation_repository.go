package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const revokedPrefix = "revoked:"

// RevocationRepository remembers logged-out tokens until they would have expired anyway.
type RevocationRepository interface {
	Revoke(ctx context.Context, tokenKey string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenKey string) (bool, error)
}

type redisRevocationRepository struct {
	client *redis.Client
}

func NewRedisRevocationRepository(client *redis.Client) RevocationRepository {
	return &redisRevocationRepository{client: client}
}

// OpenRedis parses a redis:// URL and pings the server.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (r *redisRevocationRepository) Revoke(ctx context.Context, tokenKey string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedPrefix+tokenKey, 1, ttl).Err()
}

func (r *redisRevocationRepository) IsRevoked(ctx context.Context, tokenKey string) (bool, error) {
	err := r.client.Get(ctx, revokedPrefix+tokenKey).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
