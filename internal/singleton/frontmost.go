package singleton

import (
	"context"
	"fmt"
	"time"

	"singleapp/internal/logging"
)

// SignalUIReady marks the UI as interactive and fires every bring-to-front
// subscriber once, synchronously.
func (c *Coordinator) SignalUIReady() error {
	if c.disposed.Load() {
		return fmt.Errorf("signal ui ready: %w", ErrDisposed)
	}
	c.setState(StateUIMode)
	c.notifyBringToFront()
	return nil
}

// OnBringToFront subscribes fn to bring-to-front notifications. The returned
// function removes the subscription.
func (c *Coordinator) OnBringToFront(fn func()) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	c.subsMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subsMu.Unlock()
	return func() {
		c.subsMu.Lock()
		delete(c.subs, id)
		c.subsMu.Unlock()
	}
}

// EnsureUIRunningAndInFront brings the UI to front, starting it first when
// the coordinator is not yet in UI mode. It fails with *HandoffTimeoutError
// when UI mode is not reached within Timing.HandoffWait. It always waits
// Timing.HandoffGrace after polling before reading the final state.
func (c *Coordinator) EnsureUIRunningAndInFront(ctx context.Context) error {
	if c.disposed.Load() {
		return fmt.Errorf("ensure ui running: %w", ErrDisposed)
	}
	if c.CurrentState() == StateUIMode {
		c.notifyBringToFront()
		return nil
	}

	c.requestState(StateUIMode)
	if err := c.awaitUIMode(ctx, c.timing.HandoffWait); err != nil {
		return err
	}
	// A UI that just reached UIMode may still be wiring its handlers.
	if err := sleepContext(ctx, c.closed, c.timing.HandoffGrace); err != nil {
		return err
	}

	state := c.CurrentState()
	if state == StateUIMode {
		return nil
	}
	err := &HandoffTimeoutError{State: state, Process: c.processName}
	logging.WarnWithContext(c.logger, "ui did not come up", "handoff_timeout",
		logging.String(logging.FieldState, state.String()),
		logging.Duration("waited", c.timing.HandoffWait+c.timing.HandoffGrace),
		logging.Error(err),
	)
	return err
}

// bringToFront serves remote requests: it never blocks for the UI to start.
func (c *Coordinator) bringToFront() {
	if c.CurrentState() == StateUIMode {
		c.notifyBringToFront()
		return
	}
	c.requestState(StateUIMode)
}

func (c *Coordinator) awaitUIMode(ctx context.Context, bound time.Duration) error {
	deadline := time.NewTimer(bound)
	defer deadline.Stop()
	ticker := time.NewTicker(c.timing.UIPollInterval)
	defer ticker.Stop()
	for {
		switch c.CurrentState() {
		case StateUIMode, StateExiting:
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.closed:
			return nil
		case <-deadline.C:
			return nil
		case <-ticker.C:
		}
	}
}

func (c *Coordinator) notifyBringToFront() {
	c.subsMu.Lock()
	handlers := make([]func(), 0, len(c.subs))
	for _, fn := range c.subs {
		handlers = append(handlers, fn)
	}
	c.subsMu.Unlock()
	for _, fn := range handlers {
		fn()
	}
}

func sleepContext(ctx context.Context, closed <-chan struct{}, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-closed:
		return nil
	case <-timer.C:
		return nil
	}
}
