package db

import (
	"context"                         // Request-scoped cancellation
	"fmt"                             // Error wrapping
	"stroke_registry/internal/config" // Custom package for configuration

	"github.com/redis/go-redis/v9" // Redis client
)

// ConnectRedis returns nil when no Redis address is configured
func ConnectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})
	// Test Redis connection
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return redisClient, nil
}
