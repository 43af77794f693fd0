package redis

import (
	"github.com/redis/go-redis/v9"

	"github.com/edulab/turnqueue/config"
)

// NewClient builds a client for the Redis record store backend. The
// connection is not verified here; infra pings before handing it out.
func NewClient(cfg config.RedisConfig) (*redis.Client, error) {
	cli := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	return cli, nil
}
