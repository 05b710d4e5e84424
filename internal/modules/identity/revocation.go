package identity

import (
	"context"
	"sync"
	"time"
)

// RevocationList remembers signed-out token IDs until the tokens would have expired anyway.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type memoryRevocations struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// NewMemoryRevocationList is used when no Redis address is configured.
func NewMemoryRevocationList() RevocationList {
	return &memoryRevocations{entries: make(map[string]time.Time)}
}

func (m *memoryRevocations) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, exp := range m.entries {
		if now.After(exp) {
			delete(m.entries, id)
		}
	}
	m.entries[jti] = now.Add(ttl)
	return nil
}

func (m *memoryRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.entries[jti]
	return ok && time.Now().Before(exp), nil
}
