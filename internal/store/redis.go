package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/edulab/turnqueue/internal/domain"
	"github.com/edulab/turnqueue/pkg/logger"
)

const recordHashKey = "turnqueue:records"

// RedisStore keeps all queue records as fields of a single hash, one field
// per queue key. Same record schema as the file backend.
type RedisStore struct {
	cli *redis.Client
	l   logger.Logger
}

func NewRedisStore(cli *redis.Client, l logger.Logger) *RedisStore {
	return &RedisStore{
		cli: cli,
		l:   l,
	}
}

func (s *RedisStore) Load(ctx context.Context, key domain.QueueKey) (*Record, error) {
	raw, err := s.cli.HGet(ctx, recordHashKey, key.String()).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNoSavedState
		}
		return nil, fmt.Errorf("failed to read queue record %s: %w", key, err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode queue record %s: %w", key, err)
	}

	return &rec, nil
}

func (s *RedisStore) Save(ctx context.Context, key domain.QueueKey, rec *Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode queue record %s: %w", key, err)
	}

	if err := s.cli.HSet(ctx, recordHashKey, key.String(), raw).Err(); err != nil {
		return fmt.Errorf("failed to write queue record %s: %w", key, err)
	}

	return nil
}

func (s *RedisStore) LoadAll(ctx context.Context) (map[domain.QueueKey]*Record, error) {
	fields, err := s.cli.HGetAll(ctx, recordHashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read queue records: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNoSavedState
	}

	recs := make(map[domain.QueueKey]*Record, len(fields))
	for field, raw := range fields {
		key, err := domain.ParseQueueKey(field)
		if err != nil {
			s.l.Warnf(ctx, "store.RedisStore.LoadAll: skipping %s: %v", field, err)
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			s.l.Warnf(ctx, "store.RedisStore.LoadAll: skipping %s: %v", field, err)
			continue
		}
		recs[key] = &rec
	}

	return recs, nil
}
