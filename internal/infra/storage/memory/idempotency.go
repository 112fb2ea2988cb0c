package memory

import (
	"context"
	"sync"
	"time"

	"hoteldesk/internal/app/middleware"
)

// DefaultIdempotencyTTL matches the retention of the mongo store.
const DefaultIdempotencyTTL = 7 * 24 * time.Hour

// IdempotencyStore keeps command outcomes until they are older than TTL.
// Expired keys are dropped lazily on lookup.
type IdempotencyStore struct {
	mu    sync.Mutex
	byKey map[string]middleware.IdempotencyRecord
	TTL   time.Duration
	Now   func() time.Time
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{byKey: make(map[string]middleware.IdempotencyRecord), TTL: DefaultIdempotencyTTL}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byKey[key]
	if !ok {
		return middleware.IdempotencyRecord{}, false, nil
	}
	if s.expired(rec) {
		delete(s.byKey, key)
		return middleware.IdempotencyRecord{}, false, nil
	}
	return rec, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = s.now()
	}
	s.mu.Lock()
	s.byKey[rec.Key] = rec
	s.mu.Unlock()
	return nil
}

func (s *IdempotencyStore) expired(rec middleware.IdempotencyRecord) bool {
	return s.TTL > 0 && s.now().Sub(rec.OccurredAt) > s.TTL
}

func (s *IdempotencyStore) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
