package keyregistry

import (
	"context"
	"sort"
	"sync"

	"feedlog/pkg/platform/sentinel"
)

// InMemory is a registry held in process memory.
type InMemory struct {
	mu   sync.RWMutex
	keys map[string]Key
}

func NewInMemory() *InMemory {
	return &InMemory{keys: make(map[string]Key)}
}

func (r *InMemory) PublicKey(_ context.Context, kid string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.keys[kid]
	if !ok || len(k.DER) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return append([]byte(nil), k.DER...), nil
}

func (r *InMemory) TrustedIssuer(_ context.Context, kid string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.keys[kid]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return k.Issuer, nil
}

func (r *InMemory) ReplaceIssuerKeys(_ context.Context, issuer string, keys []Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for kid, k := range r.keys {
		if k.Issuer == issuer {
			delete(r.keys, kid)
		}
	}
	for _, k := range keys {
		r.keys[k.KID] = k
	}
	return nil
}

// List returns all keys ordered by kid.
func (r *InMemory) List(_ context.Context) ([]Key, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Key, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].KID < out[j].KID })
	return out, nil
}
