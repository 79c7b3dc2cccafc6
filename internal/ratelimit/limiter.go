// Package ratelimit keeps one token bucket per client key.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleThreshold is how long a bucket may go unused before cleanup drops it.
const idleThreshold = 5 * time.Minute

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Store manages rate limiters for multiple clients
type Store struct {
	limiters map[string]*entry
	limit    rate.Limit
	burst    int
	mu       sync.Mutex

	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

// NewStore creates a store granting requestsPerSec tokens per second per key
// with the given burst. A positive cleanupInterval starts a goroutine that
// evicts idle keys until Stop is called.
func NewStore(requestsPerSec float64, burst int, cleanupInterval time.Duration) *Store {
	s := &Store{
		limiters: make(map[string]*entry),
		limit:    rate.Limit(requestsPerSec),
		burst:    burst,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go s.cleanupLoop(cleanupInterval)
	}
	return s
}

// Allow consumes a token for key and reports whether one was available.
func (s *Store) Allow(key string) bool {
	return s.limiterFor(key).Allow()
}

// Retry reports how long key has to wait for its next token.
func (s *Store) Retry(key string) time.Duration {
	s.mu.Lock()
	e, ok := s.limiters[key]
	s.mu.Unlock()
	if !ok {
		return 0
	}
	r := e.limiter.Reserve()
	defer r.Cancel()
	return r.Delay()
}

func (s *Store) limiterFor(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[key] = e
	}
	e.lastSeen = s.now()
	return e.limiter
}

// Reset forgets the bucket for key.
func (s *Store) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.limiters, key)
}

// Count returns the number of tracked keys
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// Stop ends the cleanup goroutine.
func (s *Store) Stop() {
	s.once.Do(func() { close(s.stop) })
}

func (s *Store) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanupExpired()
		case <-s.stop:
			return
		}
	}
}

func (s *Store) cleanupExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.limiters {
		if now.Sub(e.lastSeen) > idleThreshold {
			delete(s.limiters, key)
		}
	}
}
