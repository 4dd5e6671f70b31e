// pkg/memcache/plan_cache.go
package mem

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// PlanCacheStore keeps generated plans keyed by a request hash so identical
// prompts inside the TTL window skip the LLM round trip entirely.
type PlanCacheStore interface {
	Get(key string) (string, bool)
	Set(key string, content string, ttl time.Duration)
}

type planEntry struct {
	content   string
	expiresAt time.Time
}

type PlanCache struct {
	mu   sync.RWMutex
	data map[string]planEntry
}

func NewPlanCache() *PlanCache {
	return &PlanCache{
		data: make(map[string]planEntry),
	}
}

func (s *PlanCache) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok || time.Now().After(e.expiresAt) {
		return "", false
	}
	return e.content, true
}

func (s *PlanCache) Set(key string, content string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = planEntry{
		content:   content,
		expiresAt: time.Now().Add(ttl),
	}

	// Opportunistic cleanup so the map does not grow without bound.
	if len(s.data) > 1000 {
		now := time.Now()
		for k, e := range s.data {
			if now.After(e.expiresAt) {
				delete(s.data, k)
			}
		}
	}
}

// CacheKey hashes the request parameters that determine plan content.
func CacheKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}
