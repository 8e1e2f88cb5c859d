package singleton

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"singleapp/internal/logging"
)

// UIClosePolicy decides what the event loop does once the UI returns.
type UIClosePolicy string

const (
	// ClosePolicyExit ends the process lifecycle when the UI closes.
	ClosePolicyExit UIClosePolicy = "exit"
	// ClosePolicyReturnToServer drops back to headless server mode.
	ClosePolicyReturnToServer UIClosePolicy = "return_to_server"
)

// Options configures TryClaim.
type Options struct {
	ServiceName string
	// StartInServerMode starts headless; otherwise the loop starts the UI
	// right away and a discovered peer is asked to bring its UI to front.
	StartInServerMode bool
	Locks             LockProvider
	Directory         Directory
	Timing            Timing
	UIClosePolicy     UIClosePolicy
	// ProcessName appears in hand-off errors. Defaults to the executable name.
	ProcessName string
	Logger      *slog.Logger
}

// Coordinator owns a claimed service name until Close.
type Coordinator struct {
	serviceName string
	processName string
	timing      Timing
	closePolicy UIClosePolicy
	logger      *slog.Logger

	state           atomic.Int32
	requested       atomic.Int32
	hasEverAttached atomic.Bool
	disposed        atomic.Bool
	running         atomic.Bool

	connector    *Connector
	registration Registration

	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
	wake      chan struct{}

	subsMu  sync.Mutex
	subs    map[uint64]func()
	nextSub uint64
}

// TryClaim claims opts.ServiceName for this process. It returns a nil
// Coordinator and nil error when another live instance already owns the name;
// in that case the other instance has been asked to bring its UI to front
// unless opts.StartInServerMode is set.
func TryClaim(ctx context.Context, opts Options) (*Coordinator, error) {
	name := strings.TrimSpace(opts.ServiceName)
	if name == "" {
		return nil, fmt.Errorf("%w: service name is blank", ErrConfiguration)
	}
	if opts.Locks == nil {
		return nil, fmt.Errorf("%w: lock provider is required", ErrConfiguration)
	}
	if opts.Directory == nil {
		return nil, fmt.Errorf("%w: directory is required", ErrConfiguration)
	}
	policy, err := normalizeClosePolicy(opts.UIClosePolicy)
	if err != nil {
		return nil, err
	}
	timing := opts.Timing.withDefaults()
	logger := logging.NewComponentLogger(opts.Logger, "coordinator").With(
		logging.String(logging.FieldServiceName, name),
	)

	lock := opts.Locks.NamedLock(ClaimLockName)
	acquired, err := lock.Acquire(ctx, timing.LockTimeout)
	if err != nil {
		_ = lock.Release()
		return nil, fmt.Errorf("acquire %s: %w", ClaimLockName, err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: %s not acquired within %s", ErrLockTimeout, ClaimLockName, timing.LockTimeout)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logging.WarnWithContext(logger, "release claim lock failed", "claim_lock_release_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove a stale lock file from the runtime directory"),
			)
		}
	}()

	remote, err := opts.Directory.Lookup(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("lookup service %q: %w", name, err)
	}
	if remote != nil {
		handOff(ctx, remote, opts.StartInServerMode, timing, logger)
		return nil, nil
	}

	c := newCoordinator(name, opts, policy, timing, logger)
	registration, err := opts.Directory.Register(ctx, name, c.connector)
	if err != nil {
		return nil, fmt.Errorf("register service %q: %w", name, err)
	}
	c.registration = registration
	logger.Info("service claimed",
		logging.String(logging.FieldEventType, "claim_acquired"),
		logging.Bool("start_in_server_mode", opts.StartInServerMode),
	)
	return c, nil
}

// WithClaim runs fn with a freshly claimed Coordinator and closes it when fn
// returns. claimed is false when another instance owns the service name.
func WithClaim(ctx context.Context, opts Options, fn func(context.Context, *Coordinator) error) (claimed bool, err error) {
	c, err := TryClaim(ctx, opts)
	if err != nil || c == nil {
		return false, err
	}
	defer func() {
		if closeErr := c.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("release service %q: %w", c.serviceName, closeErr))
		}
	}()
	return true, fn(ctx, c)
}

func handOff(ctx context.Context, remote Remote, serverMode bool, timing Timing, logger *slog.Logger) {
	defer func() {
		if err := remote.Close(); err != nil {
			logger.Debug("close remote handle failed", logging.Error(err))
		}
	}()
	if serverMode {
		logger.Info("service already running; leaving it untouched",
			logging.String(logging.FieldEventType, "claim_handoff"),
		)
		return
	}
	callCtx, cancel := context.WithTimeout(ctx, timing.RemoteCallTimeout)
	defer cancel()
	if err := remote.BringToFront(callCtx); err != nil {
		logging.WarnWithContext(logger, "bring to front failed", "claim_handoff_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the running instance may stay hidden"),
		)
		return
	}
	logger.Info("service already running; asked it to come to front",
		logging.String(logging.FieldEventType, "claim_handoff"),
	)
}

func normalizeClosePolicy(policy UIClosePolicy) (UIClosePolicy, error) {
	switch UIClosePolicy(strings.ToLower(strings.TrimSpace(string(policy)))) {
	case "", ClosePolicyExit:
		return ClosePolicyExit, nil
	case ClosePolicyReturnToServer:
		return ClosePolicyReturnToServer, nil
	default:
		return "", fmt.Errorf("%w: unsupported ui close policy %q", ErrConfiguration, policy)
	}
}

func newCoordinator(name string, opts Options, policy UIClosePolicy, timing Timing, logger *slog.Logger) *Coordinator {
	processName := strings.TrimSpace(opts.ProcessName)
	if processName == "" {
		processName = filepath.Base(os.Args[0])
	}
	c := &Coordinator{
		serviceName: name,
		processName: processName,
		timing:      timing,
		closePolicy: policy,
		logger:      logger,
		closed:      make(chan struct{}),
		wake:        make(chan struct{}, 1),
		subs:        make(map[uint64]func()),
	}
	c.state.Store(int32(StateStarting))
	if opts.StartInServerMode {
		c.requested.Store(int32(StateServerMode))
	} else {
		c.requested.Store(int32(StateUIMode))
	}
	c.connector = newConnector(c)
	return c
}

// ServiceName returns the claimed name.
func (c *Coordinator) ServiceName() string { return c.serviceName }

// CurrentState returns the actual lifecycle state.
func (c *Coordinator) CurrentState() State { return State(c.state.Load()) }

// ClientCount returns the number of attached remote clients.
func (c *Coordinator) ClientCount() int { return c.connector.clients.count() }

// Connector returns the endpoint published for this coordinator.
func (c *Coordinator) Connector() *Connector { return c.connector }

// IsDisposed reports whether Close has been called.
func (c *Coordinator) IsDisposed() bool { return c.disposed.Load() }

// RequestExit asks the event loop to exit. It does not block.
func (c *Coordinator) RequestExit() {
	c.requestState(StateExiting)
}

// RequestExitAndWait requests exit and waits up to timeout for the loop to
// reach the exiting state. A non-positive timeout uses Timing.ExitWait.
func (c *Coordinator) RequestExitAndWait(timeout time.Duration) bool {
	if c.CurrentState() == StateExiting {
		return true
	}
	c.RequestExit()
	if timeout <= 0 {
		timeout = c.timing.ExitWait
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(exitPollInterval)
	defer ticker.Stop()
	for {
		if c.CurrentState() == StateExiting {
			return true
		}
		select {
		case <-deadline.C:
			return c.CurrentState() == StateExiting
		case <-ticker.C:
		}
	}
}

// Close unpublishes the Connector exactly once and requests exit. Further
// calls return the first result.
func (c *Coordinator) Close() error {
	c.closeOnce.Do(func() {
		c.disposed.Store(true)
		c.requestState(StateExiting)
		close(c.closed)
		if c.registration != nil {
			c.closeErr = c.registration.Close()
		}
		c.logger.Debug("coordinator closed",
			logging.String(logging.FieldState, c.CurrentState().String()),
		)
	})
	return c.closeErr
}

// setState moves to next unless the coordinator already reached exiting.
func (c *Coordinator) setState(next State) {
	for {
		current := c.state.Load()
		if State(current) == StateExiting || State(current) == next {
			return
		}
		if c.state.CompareAndSwap(current, int32(next)) {
			c.logger.Debug("state changed",
				logging.String("from", State(current).String()),
				logging.String(logging.FieldState, next.String()),
			)
			return
		}
	}
}

// requestState records the wanted state and wakes the loop. An exit request
// is never overridden.
func (c *Coordinator) requestState(next State) {
	for {
		current := c.requested.Load()
		if State(current) == StateExiting && next != StateExiting {
			return
		}
		if c.requested.CompareAndSwap(current, int32(next)) {
			break
		}
	}
	c.requestWake()
}

func (c *Coordinator) requestWake() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Coordinator) requestedState() State { return State(c.requested.Load()) }
