// pkg/memcache/revoked_tokens.go
package mem

import (
	"context"
	"sync"
	"time"
)

// RevokedTokenStore remembers session token ids (jti) that were logged out
// before their natural expiry.
type RevokedTokenStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type entry struct {
	expiresAt time.Time
}

// RevokedTokens is the single-process implementation used when no REDIS_URL
// is configured.
type RevokedTokens struct {
	mu   sync.RWMutex
	data map[string]entry
	now  func() time.Time
}

func NewRevokedTokens() *RevokedTokens {
	return &RevokedTokens{
		data: make(map[string]entry),
		now:  time.Now,
	}
}

func (s *RevokedTokens) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.purgeLocked(now)
	s.data[tokenID] = entry{expiresAt: now.Add(ttl)}
	return nil
}

func (s *RevokedTokens) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[tokenID]
	if !ok || !s.now().Before(e.expiresAt) {
		return false, nil
	}
	return true, nil
}

// purgeLocked drops entries whose tokens have expired anyway.
func (s *RevokedTokens) purgeLocked(now time.Time) {
	for id, e := range s.data {
		if !now.Before(e.expiresAt) {
			delete(s.data, id)
		}
	}
}
