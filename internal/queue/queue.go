package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/edulab/turnqueue/internal/domain"
	"github.com/edulab/turnqueue/internal/store"
	"github.com/edulab/turnqueue/pkg/logger"
)

const (
	KindReview   = "Review"
	KindQuestion = "Question"
)

// Queue is one channel's waiting line. Kind-specific operations live on the
// concrete types; callers type-assert after Resolve.
type Queue interface {
	Key() domain.QueueKey
	Kind() string
	GuildName() string
	ChannelName() string
	Size() int

	// MarshalData snapshots the kind-specific state for persistence. It
	// takes the queue's lock, so the snapshot is consistent even while
	// other operations run.
	MarshalData() (json.RawMessage, error)
	UnmarshalData(data json.RawMessage) error
}

// Locator is the platform capability the scheduling operations consume:
// readiness and current location of a participant. Lookups are synchronous
// reads of platform state, safe to call while the queue decision is being
// committed.
type Locator interface {
	IsReady(pid domain.ParticipantID) bool
	Location(pid domain.ParticipantID) (domain.LocationRef, bool)
}

// Factory builds an empty queue of one kind.
type Factory func(key domain.QueueKey, guildName, channelName string) Queue

var (
	kindsMu sync.RWMutex
	kinds   = make(map[string]Factory)
)

// RegisterKind adds a queue kind to the dispatch table. Kinds register
// themselves at startup; creating a queue never inspects concrete types.
func RegisterKind(kind string, f Factory) {
	kindsMu.Lock()
	defer kindsMu.Unlock()
	kinds[kind] = f
}

func kindFactory(kind string) (Factory, bool) {
	kindsMu.RLock()
	defer kindsMu.RUnlock()
	f, ok := kinds[kind]
	return f, ok
}

// Registry owns every live queue, exactly one per key. It is the only way
// queues are created, found, loaded and saved.
type Registry struct {
	mu     sync.RWMutex
	queues map[domain.QueueKey]Queue
	st     store.Store
	l      logger.Logger
}

func NewRegistry(st store.Store, l logger.Logger) *Registry {
	return &Registry{
		queues: make(map[domain.QueueKey]Queue),
		st:     st,
		l:      l,
	}
}

// Create registers a new, empty queue of the requested kind.
func (r *Registry) Create(key domain.QueueKey, kind, guildName, channelName string) (Queue, error) {
	f, ok := kindFactory(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.queues[key]; exists {
		return nil, ErrQueueExists
	}

	q := f(key, guildName, channelName)
	r.queues[key] = q
	return q, nil
}

// Resolve returns the live queue for a key.
func (r *Registry) Resolve(key domain.QueueKey) (Queue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q, ok := r.queues[key]
	if !ok {
		return nil, ErrQueueNotFound
	}
	return q, nil
}

// Keys returns the keys of all live queues.
func (r *Registry) Keys() []domain.QueueKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]domain.QueueKey, 0, len(r.queues))
	for key := range r.queues {
		keys = append(keys, key)
	}
	return keys
}

// Load reconstructs one queue from its stored record. A queue that is
// already live is left untouched.
func (r *Registry) Load(ctx context.Context, key domain.QueueKey) (Queue, error) {
	rec, err := r.st.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	return r.restore(key, rec)
}

func (r *Registry) restore(key domain.QueueKey, rec *store.Record) (Queue, error) {
	q, err := r.Create(key, rec.Kind, rec.GuildName, rec.ChannelName)
	if err != nil {
		return nil, err
	}
	if err := q.UnmarshalData(rec.Data); err != nil {
		// Deregister the half-initialized queue: leaving it live would let
		// Resolve hand out an empty queue for the key and a shutdown
		// SaveAll overwrite the stored record with that empty state.
		r.mu.Lock()
		delete(r.queues, key)
		r.mu.Unlock()
		return nil, fmt.Errorf("failed to restore queue %s: %w", key, err)
	}
	return q, nil
}

// LoadReport summarizes a LoadAll sweep.
type LoadReport struct {
	Loaded  []domain.QueueKey
	Skipped []domain.QueueKey
}

// LoadAll reconstructs every stored queue. Records whose key is already
// live are skipped with a warning; a missing store is reported, not fatal.
func (r *Registry) LoadAll(ctx context.Context) (*LoadReport, error) {
	recs, err := r.st.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &LoadReport{}
	for key, rec := range recs {
		q, err := r.restore(key, rec)
		if err != nil {
			r.l.Warnf(ctx, "queue.Registry.LoadAll: skipping %s: %v", key, err)
			report.Skipped = append(report.Skipped, key)
			continue
		}
		report.Loaded = append(report.Loaded, key)
		r.l.Infof(ctx, "loaded a %s queue for %s in %s with %d entries",
			q.Kind(), key, q.GuildName(), q.Size())
	}

	return report, nil
}

// Save writes one queue's record.
func (r *Registry) Save(ctx context.Context, key domain.QueueKey) error {
	q, err := r.Resolve(key)
	if err != nil {
		return err
	}
	return r.save(ctx, q)
}

func (r *Registry) save(ctx context.Context, q Queue) error {
	data, err := q.MarshalData()
	if err != nil {
		return fmt.Errorf("failed to snapshot queue %s: %w", q.Key(), err)
	}

	rec := &store.Record{
		Kind:        q.Kind(),
		GuildName:   q.GuildName(),
		ChannelName: q.ChannelName(),
		Data:        data,
	}
	return r.st.Save(ctx, q.Key(), rec)
}

// SaveAll writes every live queue. Saves of distinct keys run concurrently;
// each snapshot is taken under its queue's own lock, so a save never races
// a mutation of the same key.
func (r *Registry) SaveAll(ctx context.Context) error {
	r.mu.RLock()
	queues := make([]Queue, 0, len(r.queues))
	for _, q := range r.queues {
		queues = append(queues, q)
	}
	r.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, q := range queues {
		q := q
		g.Go(func() error {
			if err := r.save(ctx, q); err != nil {
				return fmt.Errorf("failed to save queue %s: %w", q.Key(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
