package database

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"userhistory/api/logger"
)

type RedisClient struct {
	Client *goredis.Client
	log    *logger.Logger
}

func NewRedisDB(log *logger.Logger, addr, password string) (*RedisClient, error) {
	if addr == "" {
		return nil, fmt.Errorf("REDIS_ADDR environment variable is not set")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	log.Info("Connected to Redis", "addr", addr)
	return &RedisClient{Client: rdb, log: log}, nil
}

func (c *RedisClient) Close() {
	if c.Client == nil {
		return
	}
	if err := c.Client.Close(); err != nil {
		c.log.Warn("Error closing Redis connection", "error", err)
		return
	}
	c.log.Info("Redis connection closed")
}
