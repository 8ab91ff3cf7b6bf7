package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/matthewbaird/modeleditor/internal/types"
)

// MemoryStore implements Store using an in-memory map.
// Intended for demos and testing; nothing survives a restart.
type MemoryStore struct {
	mu          sync.RWMutex
	models      map[string]types.Model
	nextFieldID types.FieldID
}

// NewMemoryStore creates a new empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		models:      make(map[string]types.Model),
		nextFieldID: 1,
	}
}

func (s *MemoryStore) ListModels(_ context.Context) ([]types.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Model, 0, len(s.models))
	for _, m := range s.models {
		out = append(out, m.Clone())
	}
	sortModels(out)
	return out, nil
}

func (s *MemoryStore) GetModel(_ context.Context, id string) (types.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.models[id]
	if !ok {
		return types.Model{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return m.Clone(), nil
}

func (s *MemoryStore) SaveModel(_ context.Context, m types.Model, nextFieldID types.FieldID) (types.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m = m.Clone()
	if m.IsNew() {
		m.ID = uuid.New().String()
	} else if _, ok := s.models[m.ID]; !ok {
		return types.Model{}, fmt.Errorf("%w: %s", ErrNotFound, m.ID)
	}
	s.models[m.ID] = m
	if nextFieldID > s.nextFieldID {
		s.nextFieldID = nextFieldID
	}
	return m.Clone(), nil
}

func (s *MemoryStore) DeleteModel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.models[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.models, id)
	return nil
}

func (s *MemoryStore) NextFieldID(_ context.Context) (types.FieldID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextFieldID, nil
}

func sortModels(ms []types.Model) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].Name != ms[j].Name {
			return ms[i].Name < ms[j].Name
		}
		return ms[i].ID < ms[j].ID
	})
}
