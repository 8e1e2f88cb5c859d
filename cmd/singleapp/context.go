package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"singleapp/internal/config"
	"singleapp/internal/directory"
	"singleapp/internal/logging"
	"singleapp/internal/namedlock"
	"singleapp/internal/singleton"
)

type commandContext struct {
	configFlag  *string
	serviceFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, serviceFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		serviceFlag: serviceFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.serviceFlag != nil {
			if name := strings.TrimSpace(*c.serviceFlag); name != "" {
				cfg.Service.Name = name
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// serviceName returns the configured service, or an error naming both ways to
// set one.
func (c *commandContext) serviceName() (string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	if cfg.Service.Name == "" {
		return "", errors.New("no service name: pass --service or set service.name (or SINGLEAPP_SERVICE)")
	}
	return cfg.Service.Name, nil
}

func (c *commandContext) withDirectory(fn func(*config.Config, *directory.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	store, err := directory.Open(cfg, logger)
	if err != nil {
		return fmt.Errorf("open service registry: %w", err)
	}
	defer store.Close()
	return fn(cfg, store)
}

func claimOptions(cfg *config.Config, dir singleton.Directory, serverMode bool, logger *slog.Logger) singleton.Options {
	return singleton.Options{
		ServiceName:       cfg.Service.Name,
		StartInServerMode: serverMode,
		Locks:             namedlock.NewProvider(cfg.LockDir()),
		Directory:         dir,
		Timing:            timingFromConfig(cfg),
		UIClosePolicy:     singleton.UIClosePolicy(cfg.Service.UIClosePolicy),
		Logger:            logger,
	}
}

func timingFromConfig(cfg *config.Config) singleton.Timing {
	d := cfg.Durations()
	return singleton.Timing{
		LockTimeout:       d.LockTimeout,
		PollInterval:      d.PollInterval,
		UIPollInterval:    d.UIPollInterval,
		HandoffWait:       d.HandoffWait,
		HandoffGrace:      d.HandoffGrace,
		ExitWait:          d.ExitWait,
		RemoteCallTimeout: d.RemoteCallTimeout,
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
