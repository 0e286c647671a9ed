package activity

import (
	"context"
	"sync"
	"time"
)

// MemoryGate is an in-process Gate for deployments without Redis and for
// tests. now is injectable to make window expiry testable.
type MemoryGate struct {
	mu       sync.Mutex
	last     map[int64]time.Time
	cooldown time.Duration
	now      func() time.Time
}

var _ Gate = (*MemoryGate)(nil)

// NewMemoryGate creates an in-memory Gate with the given cooldown window.
func NewMemoryGate(cooldown time.Duration) *MemoryGate {
	return &MemoryGate{
		last:     make(map[int64]time.Time),
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Mark refreshes the user's activity mark and reports whether the
// acknowledgement is due.
func (g *MemoryGate) Mark(_ context.Context, userID int64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	last, seen := g.last[userID]
	g.last[userID] = now

	return !seen || now.Sub(last) > g.cooldown, nil
}
