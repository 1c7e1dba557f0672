package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/innovinitylabs/onchain-rug-sub004/internal/metrics"
)

// MemoryLimiter keeps per-identity request timestamps in process memory.
// Suitable for a single replica; multi-replica deployments use RedisLimiter.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string][]time.Time
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewMemoryLimiter creates an in-memory sliding-window limiter.
func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		entries: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Check records the request and decides. The eleventh request inside the
// window is rejected without being recorded.
func (l *MemoryLimiter) Check(ctx context.Context, identity string) (Decision, error) {
	id, err := NormalizeIdentity(identity)
	if err != nil {
		return Decision{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := l.pruneLocked(id, now)

	if len(recent) >= l.limit {
		metrics.RateLimited.Inc()
		return l.decisionLocked(recent, now, false), nil
	}

	recent = append(recent, now)
	l.entries[id] = recent
	return l.decisionLocked(recent, now, true), nil
}

// Status reports the current window without consuming a slot.
func (l *MemoryLimiter) Status(ctx context.Context, identity string) (Decision, error) {
	id, err := NormalizeIdentity(identity)
	if err != nil {
		return Decision{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := l.pruneLocked(id, now)
	return l.decisionLocked(recent, now, len(recent) < l.limit), nil
}

// Prune drops identities whose whole window has expired. Run periodically by
// the background sweeper to bound memory on long-tail identities.
func (l *MemoryLimiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for id := range l.entries {
		if len(l.pruneLocked(id, now)) == 0 {
			delete(l.entries, id)
			removed++
		}
	}
	return removed
}

func (l *MemoryLimiter) pruneLocked(id string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	stamps := l.entries[id]
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		stamps = stamps[i:]
		l.entries[id] = stamps
	}
	return stamps
}

// decisionLocked computes remaining slots and the reset instant. ResetAt is
// when the oldest recorded request ages out; with an empty window it is now.
func (l *MemoryLimiter) decisionLocked(stamps []time.Time, now time.Time, allowed bool) Decision {
	remaining := l.limit - len(stamps)
	if remaining < 0 {
		remaining = 0
	}
	resetAt := now
	if len(stamps) > 0 {
		resetAt = stamps[0].Add(l.window)
	}
	return Decision{Allowed: allowed, Limit: l.limit, Remaining: remaining, ResetAt: resetAt}
}
