package testsupport

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"singleapp/internal/singleton"
)

// MemoryLocks is an in-process singleton.LockProvider. Handles for the same
// name exclude each other.
type MemoryLocks struct {
	mu       sync.Mutex
	sems     map[string]chan struct{}
	acquires atomic.Int64
}

var _ singleton.LockProvider = (*MemoryLocks)(nil)

// NewMemoryLocks returns an empty provider.
func NewMemoryLocks() *MemoryLocks {
	return &MemoryLocks{sems: make(map[string]chan struct{})}
}

// NamedLock returns a new handle for name.
func (m *MemoryLocks) NamedLock(name string) singleton.NamedLock {
	m.mu.Lock()
	sem, ok := m.sems[name]
	if !ok {
		sem = make(chan struct{}, 1)
		m.sems[name] = sem
	}
	m.mu.Unlock()
	return &memoryLock{owner: m, sem: sem}
}

// Acquires counts successful acquisitions across all names.
func (m *MemoryLocks) Acquires() int64 {
	return m.acquires.Load()
}

// Hold takes name until the returned function is called.
func (m *MemoryLocks) Hold(name string) (release func()) {
	lock := m.NamedLock(name)
	_, _ = lock.Acquire(context.Background(), time.Hour)
	return func() { _ = lock.Release() }
}

type memoryLock struct {
	owner *MemoryLocks
	sem   chan struct{}

	mu   sync.Mutex
	held bool
}

func (l *memoryLock) Acquire(ctx context.Context, timeout time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return true, nil
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case l.sem <- struct{}{}:
		l.held = true
		l.owner.acquires.Add(1)
		return true, nil
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (l *memoryLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return nil
	}
	l.held = false
	<-l.sem
	return nil
}
