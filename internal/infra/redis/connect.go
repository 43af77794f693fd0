package redis

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/edulab/turnqueue/config"
	pkgRedis "github.com/edulab/turnqueue/pkg/redis"
)

// Connect builds a client from config and verifies it with a ping. An
// unreachable Redis fails startup: queues would otherwise load empty and a
// later SaveAll could clobber the stored records.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	cli, err := pkgRedis.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	log.Println("Record store connected to Redis.")

	return cli, nil
}

// Disconnect closes the client. Safe to call with nil, which is what the
// file backend leaves behind.
func Disconnect(cli *redis.Client) {
	if cli == nil {
		return
	}

	cli.Close()

	log.Println("Record store connection to Redis closed.")
}
