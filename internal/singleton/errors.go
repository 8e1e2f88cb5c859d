package singleton

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks invalid caller input such as a blank service name.
	ErrConfiguration = errors.New("singleton configuration error")
	// ErrLockTimeout is returned when the claim lock cannot be acquired in time.
	ErrLockTimeout = errors.New("timed out acquiring claim lock")
	// ErrHandoffTimeout matches *HandoffTimeoutError.
	ErrHandoffTimeout = errors.New("timed out waiting for ui mode")
	// ErrDisposed is returned by operations on a closed Coordinator.
	ErrDisposed = errors.New("coordinator closed")
)

// HandoffTimeoutError reports the state a Coordinator was stuck in when it
// failed to reach UI mode.
type HandoffTimeoutError struct {
	State   State
	Process string
}

func (e *HandoffTimeoutError) Error() string {
	process := e.Process
	if process == "" {
		process = "application"
	}
	if e.State == StateExiting {
		return fmt.Sprintf("%s is in the process of exiting", process)
	}
	var phase string
	switch e.State {
	case StateStarting:
		phase = "still starting app"
	case StateUIModeStarting:
		phase = "still starting UI"
	default:
		phase = "still in server mode"
	}
	return fmt.Sprintf("gave up trying to get %s to switch to UI mode (%s)", process, phase)
}

// Is lets errors.Is(err, ErrHandoffTimeout) match.
func (e *HandoffTimeoutError) Is(target error) bool {
	return target == ErrHandoffTimeout
}
