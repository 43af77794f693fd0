package queue

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/edulab/turnqueue/internal/domain"
	"github.com/edulab/turnqueue/internal/store"
	"github.com/edulab/turnqueue/pkg/logger"
)

// memStore keeps records in a map. SaveAll writes concurrently, so access is
// locked.
type memStore struct {
	mu   sync.Mutex
	recs map[domain.QueueKey]*store.Record
}

func newMemStore() *memStore {
	return &memStore{recs: make(map[domain.QueueKey]*store.Record)}
}

func (s *memStore) Load(_ context.Context, key domain.QueueKey) (*store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[key]
	if !ok {
		return nil, store.ErrNoSavedState
	}
	return rec, nil
}

func (s *memStore) Save(_ context.Context, key domain.QueueKey, rec *store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[key] = rec
	return nil
}

func (s *memStore) LoadAll(_ context.Context) (map[domain.QueueKey]*store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.recs) == 0 {
		return nil, store.ErrNoSavedState
	}
	out := make(map[domain.QueueKey]*store.Record, len(s.recs))
	for k, v := range s.recs {
		out[k] = v
	}
	return out, nil
}

func newTestRegistry() (*Registry, *memStore) {
	st := newMemStore()
	return NewRegistry(st, logger.InitializeTestZapLogger()), st
}

func TestRegistryCreateAndResolve(t *testing.T) {
	reg, _ := newTestRegistry()
	key := testKey()

	q, err := reg.Create(key, KindReview, "guild", "channel")
	if err != nil {
		t.Fatalf("Create = %v", err)
	}
	if _, ok := q.(*ReviewQueue); !ok {
		t.Fatalf("Create returned %T, want *ReviewQueue", q)
	}

	got, err := reg.Resolve(key)
	if err != nil || got != q {
		t.Fatalf("Resolve = %v, %v, want the created queue", got, err)
	}
}

func TestRegistryCreateRejectsDuplicateKey(t *testing.T) {
	reg, _ := newTestRegistry()
	key := testKey()

	if _, err := reg.Create(key, KindReview, "guild", "channel"); err != nil {
		t.Fatalf("Create = %v", err)
	}
	// Even a different kind cannot share the key.
	if _, err := reg.Create(key, KindQuestion, "guild", "channel"); !errors.Is(err, ErrQueueExists) {
		t.Fatalf("duplicate Create = %v, want ErrQueueExists", err)
	}
}

func TestRegistryCreateRejectsUnknownKind(t *testing.T) {
	reg, _ := newTestRegistry()

	if _, err := reg.Create(testKey(), "Karaoke", "guild", "channel"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("Create = %v, want ErrUnknownKind", err)
	}
}

func TestRegistryResolveMissing(t *testing.T) {
	reg, _ := newTestRegistry()

	if _, err := reg.Resolve(testKey()); !errors.Is(err, ErrQueueNotFound) {
		t.Fatalf("Resolve = %v, want ErrQueueNotFound", err)
	}
}

func TestRegistrySaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	reg, st := newTestRegistry()
	key := testKey()

	q, err := reg.Create(key, KindReview, "guild", "channel")
	if err != nil {
		t.Fatalf("Create = %v", err)
	}
	rq := q.(*ReviewQueue)
	for _, pid := range []domain.ParticipantID{5, 7, 2} {
		rq.Enqueue(pid)
	}

	if err := reg.Save(ctx, key); err != nil {
		t.Fatalf("Save = %v", err)
	}
	rec := st.recs[key]
	if rec == nil || rec.Kind != KindReview || rec.GuildName != "guild" || rec.ChannelName != "channel" {
		t.Fatalf("saved record = %+v", rec)
	}

	reg2 := NewRegistry(st, logger.InitializeTestZapLogger())
	q2, err := reg2.Load(ctx, key)
	if err != nil {
		t.Fatalf("Load = %v", err)
	}
	wantWaiting(t, q2.(*ReviewQueue), []domain.ParticipantID{5, 7, 2})
}

func TestRegistrySaveMissingQueue(t *testing.T) {
	reg, _ := newTestRegistry()

	if err := reg.Save(context.Background(), testKey()); !errors.Is(err, ErrQueueNotFound) {
		t.Fatalf("Save = %v, want ErrQueueNotFound", err)
	}
}

func TestRegistryLoadMissingRecord(t *testing.T) {
	reg, _ := newTestRegistry()

	if _, err := reg.Load(context.Background(), testKey()); !errors.Is(err, store.ErrNoSavedState) {
		t.Fatalf("Load = %v, want ErrNoSavedState", err)
	}
}

func TestRegistryLoadAllSkipsLiveQueues(t *testing.T) {
	ctx := context.Background()
	reg, st := newTestRegistry()

	liveKey := domain.QueueKey{GuildID: 1, ChannelID: 10}
	storedKey := domain.QueueKey{GuildID: 1, ChannelID: 11}

	st.recs[liveKey] = &store.Record{Kind: KindReview, GuildName: "g", ChannelName: "a", Data: []byte(`[1,2]`)}
	st.recs[storedKey] = &store.Record{Kind: KindQuestion, GuildName: "g", ChannelName: "b", Data: []byte(`[{"text":"q","followers":[3]}]`)}

	if _, err := reg.Create(liveKey, KindReview, "g", "a"); err != nil {
		t.Fatalf("Create = %v", err)
	}

	report, err := reg.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll = %v", err)
	}
	if len(report.Loaded) != 1 || report.Loaded[0] != storedKey {
		t.Fatalf("Loaded = %v, want [%v]", report.Loaded, storedKey)
	}
	if len(report.Skipped) != 1 || report.Skipped[0] != liveKey {
		t.Fatalf("Skipped = %v, want [%v]", report.Skipped, liveKey)
	}

	q, err := reg.Resolve(storedKey)
	if err != nil {
		t.Fatalf("Resolve = %v", err)
	}
	if q.Kind() != KindQuestion || q.Size() != 1 {
		t.Fatalf("restored queue kind=%s size=%d", q.Kind(), q.Size())
	}
}

func TestRegistryLoadAllSkipsCorruptRecords(t *testing.T) {
	ctx := context.Background()
	reg, st := newTestRegistry()

	goodKey := domain.QueueKey{GuildID: 1, ChannelID: 10}
	badKey := domain.QueueKey{GuildID: 1, ChannelID: 11}

	st.recs[goodKey] = &store.Record{Kind: KindReview, GuildName: "g", ChannelName: "a", Data: []byte(`[4]`)}
	st.recs[badKey] = &store.Record{Kind: KindReview, GuildName: "g", ChannelName: "b", Data: []byte(`{broken`)}

	report, err := reg.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll = %v", err)
	}
	if len(report.Loaded) != 1 || report.Loaded[0] != goodKey {
		t.Fatalf("Loaded = %v, want [%v]", report.Loaded, goodKey)
	}
	if len(report.Skipped) != 1 || report.Skipped[0] != badKey {
		t.Fatalf("Skipped = %v, want [%v]", report.Skipped, badKey)
	}

	// A skipped key must not be left behind as a live empty queue.
	if _, err := reg.Resolve(badKey); !errors.Is(err, ErrQueueNotFound) {
		t.Fatalf("Resolve(badKey) = %v, want ErrQueueNotFound", err)
	}

	// And shutdown must not overwrite the corrupt record with empty state.
	if err := reg.SaveAll(ctx); err != nil {
		t.Fatalf("SaveAll = %v", err)
	}
	if string(st.recs[badKey].Data) != `{broken` {
		t.Fatalf("corrupt record data = %s, want it left untouched", st.recs[badKey].Data)
	}
}

func TestRegistrySaveAll(t *testing.T) {
	ctx := context.Background()
	reg, st := newTestRegistry()

	k1 := domain.QueueKey{GuildID: 1, ChannelID: 10}
	k2 := domain.QueueKey{GuildID: 2, ChannelID: 20}

	q1, _ := reg.Create(k1, KindReview, "g1", "c1")
	q1.(*ReviewQueue).Enqueue(5)
	if _, err := reg.Create(k2, KindQuestion, "g2", "c2"); err != nil {
		t.Fatalf("Create = %v", err)
	}

	if err := reg.SaveAll(ctx); err != nil {
		t.Fatalf("SaveAll = %v", err)
	}
	if len(st.recs) != 2 {
		t.Fatalf("store holds %d records, want 2", len(st.recs))
	}
	if st.recs[k1].Kind != KindReview || st.recs[k2].Kind != KindQuestion {
		t.Fatalf("records = %+v", st.recs)
	}
}
