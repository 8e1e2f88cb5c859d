package singleton

import (
	"fmt"
	"strings"
)

// State is a Coordinator lifecycle phase.
type State int32

const (
	StateStarting State = iota
	StateServerMode
	StateUIModeStarting
	StateUIMode
	StateExiting
)

var stateNames = [...]string{
	StateStarting:       "starting",
	StateServerMode:     "server",
	StateUIModeStarting: "ui_starting",
	StateUIMode:         "ui",
	StateExiting:        "exiting",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int32(s))
	}
	return stateNames[s]
}

// ParseState converts a name produced by State.String back into a State.
func ParseState(value string) (State, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for idx, name := range stateNames {
		if name == normalized {
			return State(idx), nil
		}
	}
	return StateStarting, fmt.Errorf("unknown state %q", value)
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
