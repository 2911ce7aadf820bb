package locker

import (
	"context"
	"sync"

	"shopify-insights-core/internal/ports"
)

// MemoryLocker is an in-process single-flight guard. It is the default when
// no Redis address is configured and the instance runs alone.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemoryLocker creates a new in-memory locker.
func NewMemoryLocker() ports.SyncLocker {
	return &MemoryLocker{held: make(map[string]struct{})}
}

// TryLock acquires the key if it is free. ok=false means another run holds it.
func (l *MemoryLocker) TryLock(_ context.Context, key string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, taken := l.held[key]; taken {
		return nil, false, nil
	}
	l.held[key] = struct{}{}

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}
	return release, true, nil
}
