package singleton

import (
	"context"
	"fmt"
	"time"

	"singleapp/internal/logging"
)

// RunUntilExit drives the coordinator until it exits. It moves to server mode,
// then polls every Timing.PollInterval: the loop exits once more than one
// client has been attached at some point and the registry is empty again, or
// when exit is requested. A UI request calls startUI, which blocks for the
// UI lifetime. Cancelling ctx counts as an exit request.
func (c *Coordinator) RunUntilExit(ctx context.Context, startUI UIStarter) error {
	if c.disposed.Load() {
		return fmt.Errorf("run event loop: %w", ErrDisposed)
	}
	if startUI == nil {
		return fmt.Errorf("%w: ui starter is required", ErrConfiguration)
	}
	if !c.running.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: event loop already started", ErrConfiguration)
	}

	c.setState(StateServerMode)
	c.logger.Info("event loop started",
		logging.String(logging.FieldEventType, "loop_started"),
		logging.String("requested", c.requestedState().String()),
	)

	for {
		if ctx.Err() != nil {
			c.RequestExit()
		}
		if c.connector.clients.highWater() > 1 {
			c.hasEverAttached.Store(true)
		}
		if c.hasEverAttached.Load() && c.connector.clients.count() == 0 {
			c.setState(StateExiting)
			c.logger.Info("last client detached; exiting",
				logging.String(logging.FieldEventType, "loop_exit"),
				logging.String("reason", "clients_detached"),
			)
			return nil
		}

		switch c.requestedState() {
		case StateUIMode:
			done, err := c.runUI(ctx, startUI)
			if done {
				return err
			}
			continue
		case StateExiting:
			c.setState(StateExiting)
			c.logger.Info("exit requested; exiting",
				logging.String(logging.FieldEventType, "loop_exit"),
				logging.String("reason", "requested"),
			)
			return nil
		}

		c.waitForChange(ctx, c.timing.PollInterval)
	}
}

// runUI runs one UI session and reports whether the loop is finished.
func (c *Coordinator) runUI(ctx context.Context, startUI UIStarter) (bool, error) {
	c.setState(StateUIModeStarting)
	c.logger.Info("starting ui", logging.String(logging.FieldEventType, "ui_starting"))

	if err := startUI(ctx); err != nil {
		c.setState(StateExiting)
		logging.ErrorWithContext(c.logger, "ui failed", "ui_failed", logging.Error(err))
		return true, fmt.Errorf("start ui: %w", err)
	}

	if c.closePolicy == ClosePolicyReturnToServer && c.requestedState() != StateExiting && ctx.Err() == nil {
		c.requested.CompareAndSwap(int32(StateUIMode), int32(StateServerMode))
		c.state.CompareAndSwap(int32(StateUIMode), int32(StateServerMode))
		c.state.CompareAndSwap(int32(StateUIModeStarting), int32(StateServerMode))
		c.logger.Info("ui closed; back in server mode",
			logging.String(logging.FieldEventType, "ui_closed"),
		)
		return false, nil
	}

	c.setState(StateExiting)
	c.logger.Info("ui closed; exiting",
		logging.String(logging.FieldEventType, "loop_exit"),
		logging.String("reason", "ui_closed"),
	)
	return true, nil
}

// waitForChange blocks for at most interval, returning early when the
// requested state changes or the coordinator closes.
func (c *Coordinator) waitForChange(ctx context.Context, interval time.Duration) {
	timer := time.NewTimer(interval)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-c.wake:
	case <-c.closed:
	case <-ctx.Done():
		c.RequestExit()
	}
}
