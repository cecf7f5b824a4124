package utils

import (
	"context"
	"fmt"
	"time"

	"installhub/config"

	"github.com/go-redis/redis/v8"
)

// CacheClient is the shared cache client; nil when Redis is not configured.
var CacheClient *redis.Client

// NewRedisClient connects to the configured Redis server on db and pings it.
func NewRedisClient(db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis db %d: %w", db, err)
	}
	return client, nil
}

// InitCache initializes CacheClient from AppConfig.
func InitCache() error {
	if config.AppConfig.RedisAddr == "" {
		return nil
	}
	client, err := NewRedisClient(config.AppConfig.RedisCacheDB)
	if err != nil {
		return err
	}
	CacheClient = client
	return nil
}
