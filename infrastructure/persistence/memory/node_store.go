// Package memory provides process-local stores used in development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/umeboshi2/kotti-jsonapi/domain/content"
)

// NodeStore keeps node records in a map.
type NodeStore struct {
	mu      sync.RWMutex
	records map[int64]content.Record
}

// NewNodeStore returns an empty store.
func NewNodeStore() *NodeStore {
	return &NodeStore{records: make(map[int64]content.Record)}
}

// LoadAll returns every record ordered by id.
func (s *NodeStore) LoadAll(_ context.Context) ([]content.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]content.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Save upserts records.
func (s *NodeStore) Save(_ context.Context, records []content.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.records[r.ID] = r
	}
	return nil
}

// Delete removes records by id. Unknown ids are ignored.
func (s *NodeStore) Delete(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.records, id)
	}
	return nil
}

// Len reports how many records are stored.
func (s *NodeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
