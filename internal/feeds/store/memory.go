// Package store persists feed seqnos and items.
package store

import (
	"context"
	"sync"

	"feedlog/internal/feeds/models"
	"feedlog/pkg/platform/sentinel"
)

type itemKey struct {
	feed  string
	seqno uint64
}

// InMemory keeps feeds in process memory. Atomic allocation across the
// three writes of a submission is the caller's job (RunInTx); the mutex only
// protects the maps.
type InMemory struct {
	mu     sync.RWMutex
	seqnos map[string]uint64
	items  map[itemKey]*models.StoredItem
}

func NewInMemory() *InMemory {
	return &InMemory{
		seqnos: make(map[string]uint64),
		items:  make(map[itemKey]*models.StoredItem),
	}
}

func (s *InMemory) LastSeqno(_ context.Context, feed string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seqnos[feed], nil
}

func (s *InMemory) SetSeqno(_ context.Context, feed string, seqno uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seqnos[feed] = seqno
	return nil
}

// PutItem stores item once; a second write to the same (feed, seqno) fails
// with sentinel.ErrAlreadyUsed.
func (s *InMemory) PutItem(_ context.Context, item *models.StoredItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := itemKey{feed: item.Feed(), seqno: item.Seqno}
	if _, exists := s.items[key]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.items[key] = clone(item)
	return nil
}

func (s *InMemory) Latest(_ context.Context, feed string) (*models.StoredItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seqno, ok := s.seqnos[feed]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	item, ok := s.items[itemKey{feed: feed, seqno: seqno}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(item), nil
}

func (s *InMemory) Item(_ context.Context, feed string, seqno uint64) (*models.StoredItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[itemKey{feed: feed, seqno: seqno}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(item), nil
}

func clone(item *models.StoredItem) *models.StoredItem {
	c := *item
	if item.Envelope != nil {
		c.Envelope = append([]byte(nil), item.Envelope...)
	}
	return &c
}
