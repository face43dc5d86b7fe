package history

import (
	"slices"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	limit   int
	now     func() time.Time
}

func NewMemory(limit int) *MemoryStore {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &MemoryStore{limit: limit, now: time.Now}
}

func (s *MemoryStore) Put(rec Record) (string, error) {
	prepare(&rec, s.now)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = slices.DeleteFunc(s.records, func(r Record) bool { return r.ID == rec.ID })
	s.records = slices.Insert(s.records, 0, rec)
	if len(s.records) > s.limit {
		s.records = s.records[:s.limit]
	}
	return rec.ID, nil
}

func (s *MemoryStore) Get(id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.records {
		if s.records[i].ID == id {
			rec := s.records[i]
			return &rec, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) List() ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records), nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
