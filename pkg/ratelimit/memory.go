package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// entry tracks attempts for one operation/key pair inside a window
type entry struct {
	count        int
	firstAttempt time.Time
	lastAttempt  time.Time
}

// MemoryLimiter is an in-process sliding-window limiter.
// Suitable for single-instance deployments; use RedisLimiter when
// multiple instances must share counters.
type MemoryLimiter struct {
	configs map[Operation]Config
	entries map[string]*entry
	mu      sync.Mutex
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

// NewMemoryLimiter creates an in-memory limiter with the given per-operation
// configs (nil means DefaultConfigs). A background sweep evicts entries whose
// window has fully elapsed.
func NewMemoryLimiter(configs map[Operation]Config) *MemoryLimiter {
	if configs == nil {
		configs = DefaultConfigs()
	}
	l := &MemoryLimiter{
		configs: configs,
		entries: make(map[string]*entry),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go l.sweep(5 * time.Minute)
	return l
}

// Allow implements Limiter.Allow
func (l *MemoryLimiter) Allow(_ context.Context, op Operation, key string) (Result, error) {
	cfg, ok := l.configs[op]
	if !ok {
		return Result{}, fmt.Errorf("no rate limit config for operation %q", op)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	k := entryKey(op, key)

	e, exists := l.entries[k]
	if !exists || now.Sub(e.firstAttempt) >= cfg.Window {
		// First attempt, or the previous window has elapsed
		l.entries[k] = &entry{count: 1, firstAttempt: now, lastAttempt: now}
		return Result{Allowed: true, Remaining: cfg.MaxAttempts - 1}, nil
	}

	if e.count >= cfg.MaxAttempts {
		retryAfter := e.firstAttempt.Add(cfg.Window).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return Result{Allowed: false, Remaining: 0, RetryAfter: retryAfter}, nil
	}

	e.count++
	e.lastAttempt = now
	return Result{Allowed: true, Remaining: cfg.MaxAttempts - e.count}, nil
}

// Reset implements Limiter.Reset
func (l *MemoryLimiter) Reset(_ context.Context, op Operation, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, entryKey(op, key))
	return nil
}

// Close stops the background sweep
func (l *MemoryLimiter) Close() error {
	l.once.Do(func() { close(l.done) })
	return nil
}

// Len returns the number of tracked entries
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// sweep periodically removes entries whose window has elapsed
func (l *MemoryLimiter) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.evictExpired()
		}
	}
}

func (l *MemoryLimiter) evictExpired() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, e := range l.entries {
		op := Operation(k[:opLen(k)])
		cfg, ok := l.configs[op]
		if !ok || now.Sub(e.firstAttempt) >= cfg.Window {
			delete(l.entries, k)
		}
	}
}

func entryKey(op Operation, key string) string {
	return string(op) + ":" + key
}

// opLen returns the length of the operation prefix in an entry key
func opLen(k string) int {
	for i := 0; i < len(k); i++ {
		if k[i] == ':' {
			return i
		}
	}
	return len(k)
}
