package main

import (
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// uploadLimiters tracks one token bucket per remote address, bounding
// how fast any one client can create games. Entries idle for an hour are
// reaped periodically so the map cannot grow without bound.
type uploadLimiters struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	rps     rate.Limit
	burst   int
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func newUploadLimiters(cfg *Config) *uploadLimiters {
	ul := &uploadLimiters{
		entries: make(map[string]*limiterEntry),
		rps:     rate.Limit(cfg.rateLimit),
		burst:   cfg.rateLimitBurst,
	}

	go ul.reaperLoop()

	return ul
}

func (ul *uploadLimiters) allow(addr string) bool {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}

	ul.mu.Lock()
	defer ul.mu.Unlock()

	entry, ok := ul.entries[addr]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(ul.rps, ul.burst)}
		ul.entries[addr] = entry
	}
	entry.lastAccess = time.Now()

	return entry.limiter.Allow()
}

func (ul *uploadLimiters) reaperLoop() {
	ticker := time.NewTicker(30 * time.Minute)
	for range ticker.C {
		cutoff := time.Now().Add(-time.Hour)

		ul.mu.Lock()
		for addr, entry := range ul.entries {
			if entry.lastAccess.Before(cutoff) {
				delete(ul.entries, addr)
			}
		}
		ul.mu.Unlock()
	}
}
