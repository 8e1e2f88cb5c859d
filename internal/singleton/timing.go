package singleton

import "time"

// Timing bounds every wait the coordinator performs. Zero fields take the
// matching DefaultTiming value.
type Timing struct {
	LockTimeout       time.Duration
	PollInterval      time.Duration
	UIPollInterval    time.Duration
	HandoffWait       time.Duration
	HandoffGrace      time.Duration
	ExitWait          time.Duration
	RemoteCallTimeout time.Duration
}

const exitPollInterval = 10 * time.Millisecond

// DefaultTiming returns the stock intervals.
func DefaultTiming() Timing {
	return Timing{
		LockTimeout:       10 * time.Second,
		PollInterval:      100 * time.Millisecond,
		UIPollInterval:    50 * time.Millisecond,
		HandoffWait:       5 * time.Second,
		HandoffGrace:      time.Second,
		ExitWait:          time.Second,
		RemoteCallTimeout: 5 * time.Second,
	}
}

func (t Timing) withDefaults() Timing {
	def := DefaultTiming()
	fill := func(value *time.Duration, fallback time.Duration) {
		if *value <= 0 {
			*value = fallback
		}
	}
	fill(&t.LockTimeout, def.LockTimeout)
	fill(&t.PollInterval, def.PollInterval)
	fill(&t.UIPollInterval, def.UIPollInterval)
	fill(&t.HandoffWait, def.HandoffWait)
	fill(&t.HandoffGrace, def.HandoffGrace)
	fill(&t.ExitWait, def.ExitWait)
	fill(&t.RemoteCallTimeout, def.RemoteCallTimeout)
	return t
}
