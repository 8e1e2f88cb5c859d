package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"singleapp/internal/config"
	"singleapp/internal/singleton"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The runtime directory lives under a short os temp path so socket paths stay
// within the Unix socket length limit.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := ShortTempDir(t)
	cfgVal := config.Default()
	cfgVal.Paths.RuntimeDir = filepath.Join(base, "run")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Service.Name = "test-service"
	cfgVal.Logging.Format = "json"
	applyTiming(&cfgVal, FastTiming())

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithServiceName overrides the service name on the test config.
func WithServiceName(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Service.Name = name
	}
}

// FastTiming keeps every coordinator wait in the low milliseconds.
func FastTiming() singleton.Timing {
	return singleton.Timing{
		LockTimeout:       2 * time.Second,
		PollInterval:      5 * time.Millisecond,
		UIPollInterval:    5 * time.Millisecond,
		HandoffWait:       100 * time.Millisecond,
		HandoffGrace:      10 * time.Millisecond,
		ExitWait:          time.Second,
		RemoteCallTimeout: time.Second,
	}
}

func applyTiming(cfg *config.Config, timing singleton.Timing) {
	cfg.Timing.LockTimeoutMS = int(timing.LockTimeout / time.Millisecond)
	cfg.Timing.PollIntervalMS = int(timing.PollInterval / time.Millisecond)
	cfg.Timing.UIPollIntervalMS = int(timing.UIPollInterval / time.Millisecond)
	cfg.Timing.HandoffWaitMS = int(timing.HandoffWait / time.Millisecond)
	cfg.Timing.HandoffGraceMS = int(timing.HandoffGrace / time.Millisecond)
	cfg.Timing.ExitWaitMS = int(timing.ExitWait / time.Millisecond)
	cfg.Timing.RemoteCallTimeoutMS = int(timing.RemoteCallTimeout / time.Millisecond)
}

// ShortTempDir creates a temp directory directly under the OS temp root and
// removes it when the test ends.
func ShortTempDir(t testing.TB) string {
	t.Helper()

	dir, err := os.MkdirTemp("", "sa")
	if err != nil {
		t.Fatalf("mkdir temp: %v", err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(dir)
	})
	return dir
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.RuntimeDir)
}
