package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/edulab/turnqueue/internal/domain"
	"github.com/edulab/turnqueue/pkg/logger"
)

// FileStore keeps one <guild>-<channel>.json file per queue in a data
// directory.
type FileStore struct {
	dir string
	l   logger.Logger
}

func NewFileStore(dir string, l logger.Logger) *FileStore {
	return &FileStore{
		dir: dir,
		l:   l,
	}
}

func (s *FileStore) path(key domain.QueueKey) string {
	return filepath.Join(s.dir, key.String()+".json")
}

func (s *FileStore) Load(ctx context.Context, key domain.QueueKey) (*Record, error) {
	raw, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSavedState
		}
		return nil, fmt.Errorf("failed to read queue record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode queue record %s: %w", key, err)
	}

	return &rec, nil
}

func (s *FileStore) Save(ctx context.Context, key domain.QueueKey, rec *Record) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	raw, err := json.MarshalIndent(rec, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode queue record %s: %w", key, err)
	}

	// Write to a temp file first so a crash mid-write cannot truncate the
	// previous record.
	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write queue record %s: %w", key, err)
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		return fmt.Errorf("failed to replace queue record %s: %w", key, err)
	}

	return nil
}

func (s *FileStore) LoadAll(ctx context.Context) (map[domain.QueueKey]*Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSavedState
		}
		return nil, fmt.Errorf("failed to read data dir: %w", err)
	}

	recs := make(map[domain.QueueKey]*Record)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		key, err := domain.ParseQueueKey(strings.TrimSuffix(name, ".json"))
		if err != nil {
			s.l.Warnf(ctx, "store.FileStore.LoadAll: skipping %s: %v", name, err)
			continue
		}

		rec, err := s.Load(ctx, key)
		if err != nil {
			s.l.Warnf(ctx, "store.FileStore.LoadAll: skipping %s: %v", name, err)
			continue
		}
		recs[key] = rec
	}

	return recs, nil
}
