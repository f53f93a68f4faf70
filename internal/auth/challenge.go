package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// ChallengeStore hands out single-use login nonces that expire after a TTL.
type ChallengeStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewChallengeStore returns a store whose nonces expire after ttl.
func NewChallengeStore(ttl time.Duration) *ChallengeStore {
	return &ChallengeStore{
		cache: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// Issue returns a fresh nonce and the time it stops being accepted.
func (s *ChallengeStore) Issue() (string, time.Time) {
	nonce := uuid.NewString()
	s.cache.Set(nonce, 0, s.ttl)
	return nonce, time.Now().Add(s.ttl)
}

// Consume reports whether nonce was issued, is unexpired and unused. A nonce
// is accepted at most once.
func (s *ChallengeStore) Consume(nonce string) bool {
	// IncrementInt runs under the cache lock, so exactly one caller sees 1.
	n, err := s.cache.IncrementInt(nonce, 1)
	if err != nil {
		return false
	}
	s.cache.Delete(nonce)
	return n == 1
}
