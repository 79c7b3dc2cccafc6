package audit

import (
	"context"
	"sync"
)

// MemoryStore keeps records in process memory in insertion order.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Append(_ context.Context, rec *Record) error {
	if err := validateForAppend(rec); err != nil {
		return err
	}
	s.mu.Lock()
	s.records = append(s.records, *rec)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) List(_ context.Context, q Query) (*Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	page := &Page{Records: []Record{}, Page: q.Page, Limit: q.Limit}
	offset := q.Offset()
	for i := len(s.records) - 1; i >= 0; i-- {
		rec := &s.records[i]
		if !q.matches(rec) {
			continue
		}
		if page.Total >= offset && len(page.Records) < q.Limit {
			page.Records = append(page.Records, *rec)
		}
		page.Total++
	}
	return page, nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryStore) Close() error { return nil }
