package store

import (
	"context"
	"sync"

	"feedlog/internal/namespace/models"
	"feedlog/pkg/platform/sentinel"
)

// InMemory keeps namespaces in a map; used for development and tests.
type InMemory struct {
	mu         sync.RWMutex
	namespaces map[string]models.Namespace
}

func NewInMemory() *InMemory {
	return &InMemory{namespaces: make(map[string]models.Namespace)}
}

// Upsert stores ns, preserving CreatedAt of an existing record and bumping
// its Version. A failed precondition returns sentinel.ErrConflict and writes
// nothing.
func (s *InMemory) Upsert(_ context.Context, ns *models.Namespace, pre *models.Precondition) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.namespaces[ns.Issuer]
	var stored *models.Namespace
	if ok {
		stored = &existing
	}
	if !pre.Holds(stored) {
		return false, sentinel.ErrConflict
	}
	ns.Version = 1
	if ok {
		ns.CreatedAt = existing.CreatedAt
		ns.Version = existing.Version + 1
	}
	s.namespaces[ns.Issuer] = *ns
	return !ok, nil
}

func (s *InMemory) FindByIssuer(_ context.Context, issuer string) (*models.Namespace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.namespaces[issuer]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &ns, nil
}
