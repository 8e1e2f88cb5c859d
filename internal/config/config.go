package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains runtime and log directory configuration.
type Paths struct {
	RuntimeDir string `toml:"runtime_dir"`
	LogDir     string `toml:"log_dir"`
}

// Service describes the singleton slot this process competes for.
type Service struct {
	Name              string `toml:"name"`
	StartInServerMode bool   `toml:"start_in_server_mode"`
	UIClosePolicy     string `toml:"ui_close_policy"`
}

// TimingSettings holds every polling interval and timeout in milliseconds.
type TimingSettings struct {
	LockTimeoutMS       int `toml:"lock_timeout_ms"`
	PollIntervalMS      int `toml:"poll_interval_ms"`
	UIPollIntervalMS    int `toml:"ui_poll_interval_ms"`
	HandoffWaitMS       int `toml:"handoff_wait_ms"`
	HandoffGraceMS      int `toml:"handoff_grace_ms"`
	ExitWaitMS          int `toml:"exit_wait_ms"`
	DialTimeoutMS       int `toml:"dial_timeout_ms"`
	RemoteCallTimeoutMS int `toml:"remote_call_timeout_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for singleapp.
//
// Configuration sections by subsystem:
//   - Paths: runtime directory (lock file, registry, sockets) and log directory
//   - Service: service name, start mode, UI close policy
//   - Timing: lock, polling, hand-off, and transport timeouts
//   - Logging: log format and level
type Config struct {
	Paths   Paths          `toml:"paths"`
	Service Service        `toml:"service"`
	Timing  TimingSettings `toml:"timing"`
	Logging Logging        `toml:"logging"`
}

// Durations is the resolved form of TimingSettings.
type Durations struct {
	LockTimeout       time.Duration
	PollInterval      time.Duration
	UIPollInterval    time.Duration
	HandoffWait       time.Duration
	HandoffGrace      time.Duration
	ExitWait          time.Duration
	DialTimeout       time.Duration
	RemoteCallTimeout time.Duration
}

// Durations converts the millisecond settings into time.Duration values.
func (c *Config) Durations() Durations {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	return Durations{
		LockTimeout:       ms(c.Timing.LockTimeoutMS),
		PollInterval:      ms(c.Timing.PollIntervalMS),
		UIPollInterval:    ms(c.Timing.UIPollIntervalMS),
		HandoffWait:       ms(c.Timing.HandoffWaitMS),
		HandoffGrace:      ms(c.Timing.HandoffGraceMS),
		ExitWait:          ms(c.Timing.ExitWaitMS),
		DialTimeout:       ms(c.Timing.DialTimeoutMS),
		RemoteCallTimeout: ms(c.Timing.RemoteCallTimeoutMS),
	}
}

// LockDir holds the files backing named locks.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.RuntimeDir, "locks")
}

// RegistryPath is the sqlite database holding published services.
func (c *Config) RegistryPath() string {
	return filepath.Join(c.Paths.RuntimeDir, "registry.db")
}

// SocketDir holds the unix sockets of published services.
func (c *Config) SocketDir() string {
	return filepath.Join(c.Paths.RuntimeDir, "sockets")
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/singleapp/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("singleapp.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the runtime directory tree and the log directory.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.RuntimeDir, c.SocketDir(), c.LockDir(), c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultRuntimeDir() string {
	if base, ok := os.LookupEnv("XDG_RUNTIME_DIR"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "singleapp")
	}
	return defaultFallbackRuntimeDir
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
