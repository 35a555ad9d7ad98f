package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

func newID() string {
	return uuid.New().String()
}

// MemoryStore keeps workspace records in memory. Records are copied on the way
// in and out so callers never share state with the store.
type MemoryStore struct {
	mu         sync.RWMutex
	workspaces map[string]*Workspace
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		workspaces: make(map[string]*Workspace),
	}
}

// Create inserts a new record
func (s *MemoryStore) Create(ctx context.Context, ws *Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := prepareNew(ws, time.Now()); err != nil {
		return err
	}
	if _, exists := s.workspaces[ws.ID]; exists {
		return fmt.Errorf("workspace %s already exists", ws.ID)
	}

	clone := *ws
	s.workspaces[ws.ID] = &clone
	return nil
}

// Get returns a copy of the record
func (s *MemoryStore) Get(ctx context.Context, id string) (*Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ws, ok := s.workspaces[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *ws
	return &clone, nil
}

// Update replaces a stored record
func (s *MemoryStore) Update(ctx context.Context, ws *Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workspaces[ws.ID]; !ok {
		return ErrNotFound
	}
	if !ws.Status.Valid() {
		return ErrInvalidStatus
	}

	ws.UpdatedAt = time.Now()
	clone := *ws
	s.workspaces[ws.ID] = &clone
	return nil
}

// Delete removes a record
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workspaces[id]; !ok {
		return ErrNotFound
	}
	delete(s.workspaces, id)
	return nil
}

// List returns copies of all records ordered by creation time
func (s *MemoryStore) List(ctx context.Context) ([]*Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Workspace, 0, len(s.workspaces))
	for _, ws := range s.workspaces {
		clone := *ws
		result = append(result, &clone)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}
