// README: In-memory repository adapter (tests and the memory storage driver).
package request

import (
	"context"
	"sync"
	"time"

	"medride/internal/types"
)

type MemoryStore struct {
	mu      sync.RWMutex
	records map[types.ID]*Request
	order   []types.ID
	history []HistoryItem
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[types.ID]*Request)}
}

func (s *MemoryStore) Put(ctx context.Context, r *Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[r.ID]; !ok {
		s.order = append(s.order, r.ID)
	}
	s.records[r.ID] = r.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id types.ID) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Request, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.records[s.order[i]].Clone())
	}
	return out, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, t Transition) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[t.ID]
	if !ok {
		return false, ErrNotFound
	}
	if r.Status != t.From || r.StatusVersion != t.Version {
		return false, nil
	}
	applyTransition(r, t)
	if t.History != nil {
		s.history = append(s.history, *t.History)
	}
	return true, nil
}

func (s *MemoryStore) ListHistory(_ context.Context) ([]HistoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]HistoryItem, len(s.history))
	copy(out, s.history)
	return out, nil
}

func (s *MemoryStore) ListStale(_ context.Context, cutoff time.Time) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Request
	for _, id := range s.order {
		r := s.records[id]
		if r.Status == StatusPending && r.CreatedAt.Before(cutoff) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}
