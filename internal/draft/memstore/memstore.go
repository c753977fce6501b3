// Package memstore provides an in-memory implementation of draft.Store.
package memstore

import (
	"context"
	"sync"

	"github.com/linnemanlabs/scribe/internal/draft"
)

// Store holds decision records in memory. Suitable for dev/testing.
type Store struct {
	mu   sync.RWMutex
	recs map[string]*draft.Record // decision ID -> record
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{recs: make(map[string]*draft.Record)}
}

// Get retrieves a decision record by its ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*draft.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recs[id]
	if !ok {
		return nil, false, nil
	}
	cp := *r
	return &cp, true, nil
}

// Put stores a copy of the decision record.
func (s *Store) Put(_ context.Context, r *draft.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.recs[r.ID] = &cp
	return nil
}

// GovernanceRollup aggregates governance verdicts across all stored records.
// Row order is unspecified.
func (s *Store) GovernanceRollup(_ context.Context) ([]draft.RollupRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type key struct {
		bucket  string
		risk    string
		allowed bool
	}
	counts := make(map[key]int64)
	for _, r := range s.recs {
		counts[key{string(r.ConfidenceBucket), string(r.RiskCategory), r.GovernanceAllowed}]++
	}

	rows := make([]draft.RollupRow, 0, len(counts))
	for k, n := range counts {
		rows = append(rows, draft.RollupRow{
			ConfidenceBucket: k.bucket,
			RiskCategory:     k.risk,
			Allowed:          k.allowed,
			Count:            n,
		})
	}
	return rows, nil
}
