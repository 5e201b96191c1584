package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Per-key rate limiter pool.
type limiterEntry struct {
	l        *rate.Limiter
	lastSeen time.Time
}

type limiterPool struct {
	mu            sync.Mutex
	m             map[string]*limiterEntry
	rps           float64
	burst         int
	ttl           time.Duration
	cleanupPeriod time.Duration
	startCleanup  sync.Once
	stopOnce      sync.Once
	stopCh        chan struct{}
}

func newLimiterPool(rps float64, burst int) *limiterPool {
	return &limiterPool{
		m:             make(map[string]*limiterEntry),
		rps:           rps,
		burst:         burst,
		ttl:           10 * time.Minute,
		cleanupPeriod: time.Minute,
		stopCh:        make(chan struct{}),
	}
}

// get limiter for key, create if missing; start cleanup once
func (p *limiterPool) get(key string) *rate.Limiter {
	p.startCleanup.Do(func() { go p.cleanupLoop() })

	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.m[key]; ok {
		e.lastSeen = time.Now()
		return e.l
	}
	l := rate.NewLimiter(rate.Limit(p.rps), p.burst)
	p.m[key] = &limiterEntry{l: l, lastSeen: time.Now()}
	return l
}

// Allow returns true if the current request is allowed.
func (p *limiterPool) Allow(key string) bool {
	return p.get(key).Allow()
}

// Shutdown stops the cleanup goroutine.
func (p *limiterPool) Shutdown() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}

// removes limiters unused for longer than ttl
func (p *limiterPool) cleanupLoop() {
	ticker := time.NewTicker(p.cleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.evictBefore(time.Now().Add(-p.ttl))
		case <-p.stopCh:
			return
		}
	}
}

func (p *limiterPool) evictBefore(cutoff time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, e := range p.m {
		if e.lastSeen.Before(cutoff) {
			delete(p.m, k)
		}
	}
}
