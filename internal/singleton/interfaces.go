package singleton

import (
	"context"
	"time"
)

// ClaimLockName is the machine-wide lock serializing every claim, regardless
// of service name.
const ClaimLockName = "singleapp.claim"

// NamedLock is a cross-process mutual exclusion primitive.
type NamedLock interface {
	// Acquire waits up to timeout for the lock. It returns false without an
	// error when the timeout elapses.
	Acquire(ctx context.Context, timeout time.Duration) (bool, error)
	// Release is idempotent and safe after a failed Acquire.
	Release() error
}

// LockProvider hands out NamedLock handles. Two handles for the same name
// exclude each other even inside one process.
type LockProvider interface {
	NamedLock(name string) NamedLock
}

// Endpoint is the surface a claimed instance publishes for other processes.
type Endpoint interface {
	BringToFront(ctx context.Context) error
	Attach(ctx context.Context, clientID string) error
	Detach(ctx context.Context, clientID string) error
	ClientCount(ctx context.Context) (int, error)
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Remote is a handle to an Endpoint owned by another instance.
type Remote interface {
	Endpoint
	Close() error
}

// Registration unpublishes an Endpoint when closed.
type Registration interface {
	Close() error
}

// Directory maps service names to published endpoints.
type Directory interface {
	// Lookup returns nil, nil when no live instance publishes serviceName.
	Lookup(ctx context.Context, serviceName string) (Remote, error)
	Register(ctx context.Context, serviceName string, ep Endpoint) (Registration, error)
}

// UIStarter shows the UI and blocks until it closes. Implementations call
// Coordinator.SignalUIReady once the UI is interactive.
type UIStarter func(ctx context.Context) error

// Snapshot is a point-in-time view of a published instance.
type Snapshot struct {
	ServiceName string   `json:"service_name"`
	State       State    `json:"state"`
	Clients     []string `json:"clients"`
	PID         int      `json:"pid"`
	Process     string   `json:"process"`
}
