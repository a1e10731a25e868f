package throttle

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store for tests and dry runs.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]time.Time

	// Fail hooks let tests exercise the degraded read/write paths.
	FailLoad error
	FailSave error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]time.Time{}}
}

func (s *MemoryStore) Load(ctx context.Context) (map[string]time.Time, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailLoad != nil {
		return nil, s.FailLoad
	}
	out := make(map[string]time.Time, len(s.records))
	for k, v := range s.records {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) Save(ctx context.Context, records map[string]time.Time) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSave != nil {
		return s.FailSave
	}
	out := make(map[string]time.Time, len(records))
	for k, v := range records {
		out[k] = v
	}
	s.records = out
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// Len reports the persisted record count (test helper).
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
