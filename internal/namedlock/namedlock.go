// Package namedlock provides machine-wide named locks backed by flock(2).
//
// Each name maps to a file under one directory. Locks taken through separate
// handles exclude each other even within a single process, and the kernel
// drops them when the holder dies, so a crashed owner never wedges a claim.
package namedlock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"singleapp/internal/singleton"
)

const defaultRetryDelay = 20 * time.Millisecond

// Provider hands out file-backed NamedLocks rooted at one directory.
type Provider struct {
	dir        string
	retryDelay time.Duration
}

var _ singleton.LockProvider = (*Provider)(nil)

// NewProvider roots lock files at dir.
func NewProvider(dir string) *Provider {
	return &Provider{dir: dir, retryDelay: defaultRetryDelay}
}

// NamedLock returns a fresh handle for name.
func (p *Provider) NamedLock(name string) singleton.NamedLock {
	return &Lock{path: filepath.Join(p.dir, fileName(name)), retryDelay: p.retryDelay}
}

// Lock is one handle on a named lock file.
type Lock struct {
	path       string
	retryDelay time.Duration

	mu sync.Mutex
	fl *flock.Flock
}

// Path returns the backing lock file.
func (l *Lock) Path() string { return l.path }

// Acquire polls for the lock until timeout elapses or ctx is done. A timeout
// yields (false, nil); cancellation of ctx yields ctx's error.
func (l *Lock) Acquire(ctx context.Context, timeout time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fl != nil && l.fl.Locked() {
		return true, nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return false, fmt.Errorf("namedlock: create lock directory: %w", err)
	}
	l.fl = flock.New(l.path)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	locked, err := l.fl.TryLockContext(waitCtx, l.retryDelay)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return false, nil
		}
		return false, fmt.Errorf("namedlock: lock %s: %w", l.path, err)
	}
	return locked, nil
}

// Release unlocks the handle. Releasing an unlocked handle is a no-op.
func (l *Lock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fl == nil || !l.fl.Locked() {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("namedlock: unlock %s: %w", l.path, err)
	}
	return nil
}

func fileName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(name))
	if cleaned == "" || strings.Trim(cleaned, ".") == "" {
		cleaned = "default"
	}
	return cleaned + ".lock"
}
