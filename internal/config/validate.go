package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. An empty service name is
// allowed here because commands such as `status` do not need one; callers that
// claim a service check it themselves.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateService(); err != nil {
		return err
	}
	if err := c.validateTiming(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.RuntimeDir == "" {
		return errors.New("paths.runtime_dir must be set")
	}
	return nil
}

func (c *Config) validateService() error {
	switch c.Service.UIClosePolicy {
	case UIClosePolicyExit, UIClosePolicyReturnToServer:
		return nil
	default:
		return fmt.Errorf("service.ui_close_policy: unsupported value %q (want %q or %q)",
			c.Service.UIClosePolicy, UIClosePolicyExit, UIClosePolicyReturnToServer)
	}
}

func (c *Config) validateTiming() error {
	positive := []struct {
		key   string
		value int
	}{
		{"timing.lock_timeout_ms", c.Timing.LockTimeoutMS},
		{"timing.poll_interval_ms", c.Timing.PollIntervalMS},
		{"timing.ui_poll_interval_ms", c.Timing.UIPollIntervalMS},
		{"timing.handoff_wait_ms", c.Timing.HandoffWaitMS},
		{"timing.exit_wait_ms", c.Timing.ExitWaitMS},
		{"timing.dial_timeout_ms", c.Timing.DialTimeoutMS},
		{"timing.remote_call_timeout_ms", c.Timing.RemoteCallTimeoutMS},
	}
	for _, entry := range positive {
		if entry.value <= 0 {
			return fmt.Errorf("%s must be positive", entry.key)
		}
	}
	if c.Timing.HandoffGraceMS < 0 {
		return errors.New("timing.handoff_grace_ms must be zero or positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
