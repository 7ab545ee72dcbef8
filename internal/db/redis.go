package db

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"news-impact-engine/internal/logger"
	"news-impact-engine/internal/store"
)

// ConnectRedis opens and pings the reaction-cache client.
func ConnectRedis(cfg *store.Config) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL())
	if err != nil {
		return nil, err
	}

	if opt.ReadTimeout == 0 {
		opt.ReadTimeout = 5 * time.Second
	}
	if opt.WriteTimeout == 0 {
		opt.WriteTimeout = 5 * time.Second
	}
	if opt.DialTimeout == 0 {
		opt.DialTimeout = 5 * time.Second
	}
	if opt.MaxRetries == 0 {
		opt.MaxRetries = 2
	}

	client := redis.NewClient(opt)
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, err
	}

	logger.Info(context.Background(), "Connected to Redis")
	return client, nil
}
