package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeService()
	c.normalizeTiming()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.RuntimeDir) == "" {
		c.Paths.RuntimeDir = defaultRuntimeDir()
	}
	if c.Paths.RuntimeDir, err = expandPath(strings.TrimSpace(c.Paths.RuntimeDir)); err != nil {
		return fmt.Errorf("paths.runtime_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeService() {
	c.Service.Name = strings.TrimSpace(c.Service.Name)
	if c.Service.Name == "" {
		if value, ok := os.LookupEnv(serviceEnvVar); ok {
			c.Service.Name = strings.TrimSpace(value)
		}
	}
	c.Service.UIClosePolicy = strings.ToLower(strings.TrimSpace(c.Service.UIClosePolicy))
	if c.Service.UIClosePolicy == "" {
		c.Service.UIClosePolicy = defaultUIClosePolicy
	}
}

// normalizeTiming restores defaults for unset (zero) values. Negative values
// are left for Validate to reject.
func (c *Config) normalizeTiming() {
	fill := func(value *int, fallback int) {
		if *value == 0 {
			*value = fallback
		}
	}
	fill(&c.Timing.LockTimeoutMS, defaultLockTimeoutMS)
	fill(&c.Timing.PollIntervalMS, defaultPollIntervalMS)
	fill(&c.Timing.UIPollIntervalMS, defaultUIPollIntervalMS)
	fill(&c.Timing.HandoffWaitMS, defaultHandoffWaitMS)
	fill(&c.Timing.ExitWaitMS, defaultExitWaitMS)
	fill(&c.Timing.DialTimeoutMS, defaultDialTimeoutMS)
	fill(&c.Timing.RemoteCallTimeoutMS, defaultRemoteCallTimeoutMS)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
