package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/edulab/turnqueue/internal/domain"
)

// ErrNoSavedState means no record exists (or none is reachable) for a key.
// It is never fatal: the engine keeps operating in memory only.
var ErrNoSavedState = errors.New("no saved queue state available")

// Record is the persisted form of one queue. Data holds the kind-specific
// payload: an ordered participant id list for review queues, an ordered
// list of question/follower pairs for question queues. Answered questions
// are not part of the record.
type Record struct {
	Kind        string          `json:"qtype"`
	GuildName   string          `json:"guildname"`
	ChannelName string          `json:"channame"`
	Data        json.RawMessage `json:"qdata"`
}

// Store persists one record per queue key.
type Store interface {
	Load(ctx context.Context, key domain.QueueKey) (*Record, error)
	Save(ctx context.Context, key domain.QueueKey, rec *Record) error
	LoadAll(ctx context.Context) (map[domain.QueueKey]*Record, error)
}
