package auth

import (
	"context"
	"sync"
	"time"
)

// RevocationList records token ids (jti) that must be rejected before their
// natural expiry.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, userID int64, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// revocationEntry stores metadata about a revoked token.
type revocationEntry struct {
	ExpiresAt time.Time
	UserID    int64
}

// RevocationInfo is a public representation of a revocation entry.
type RevocationInfo struct {
	JTI       string    `json:"jti"`
	UserID    int64     `json:"userId,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// MemoryRevocationStore keeps revoked token ids in process memory. Entries
// are dropped once the token would have expired anyway. Safe for concurrent
// use; not shared between instances.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	entries map[string]revocationEntry
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

// NewMemoryRevocationStore creates a store and starts a background goroutine
// that cleans up expired entries every 5 minutes.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	s := &MemoryRevocationStore{
		entries: make(map[string]revocationEntry),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go s.cleanupLoop(5 * time.Minute)
	return s
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, jti string, userID int64, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[jti] = revocationEntry{ExpiresAt: expiresAt, UserID: userID}
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.entries[jti]
	return ok, nil
}

// Count returns the number of currently revoked tokens.
func (s *MemoryRevocationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// Entries returns a snapshot of all current revocation entries.
func (s *MemoryRevocationStore) Entries() []RevocationInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]RevocationInfo, 0, len(s.entries))
	for jti, entry := range s.entries {
		result = append(result, RevocationInfo{
			JTI:       jti,
			UserID:    entry.UserID,
			ExpiresAt: entry.ExpiresAt,
		})
	}
	return result
}

// Close stops the background cleanup goroutine. Safe to call more than once.
func (s *MemoryRevocationStore) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *MemoryRevocationStore) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes revocation entries whose tokens have expired.
func (s *MemoryRevocationStore) cleanup() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for jti, entry := range s.entries {
		if now.After(entry.ExpiresAt) {
			delete(s.entries, jti)
		}
	}
}
