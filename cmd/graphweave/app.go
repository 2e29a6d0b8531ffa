// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/graphweave/graphweave/internal/aggregate"
	"github.com/graphweave/graphweave/internal/config"
	"github.com/graphweave/graphweave/internal/discovery"
	"github.com/graphweave/graphweave/internal/registry"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives the App and reaches configuration and output through it.
	App struct {
		Config    config.Provider
		stdout    io.Writer
		stderr    io.Writer
		configDir string
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
		// ConfigDir replaces the platform config directory lookup.
		ConfigDir string
	}

	// session is everything a command needs after configuration is loaded
	// and the partial roots have been scanned once.
	session struct {
		cfg       *config.Config
		logger    *log.Logger
		discovery *discovery.Discovery
		registry  *registry.Registry
		result    discovery.Result
		service   *aggregate.Service
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	return &App{
		Config:    deps.Config,
		stdout:    deps.Stdout,
		stderr:    deps.Stderr,
		configDir: deps.ConfigDir,
	}, nil
}

// loadOptions translates root flags into config loading inputs.
func (a *App) loadOptions(flags *rootFlagValues) config.LoadOptions {
	return config.LoadOptions{
		ConfigFilePath: flags.configPath,
		ConfigDirPath:  a.configDir,
		EnvFile:        flags.envFile,
	}
}

// loadConfig loads configuration and applies root flag overrides.
func (a *App) loadConfig(ctx context.Context, flags *rootFlagValues) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, a.loadOptions(flags))
	if err != nil {
		return nil, err
	}
	if len(flags.roots) > 0 {
		cfg.Roots = flags.roots
	}
	return cfg, nil
}

// openSession loads configuration, builds the logger and publishes the
// first registry snapshot.
func (a *App) openSession(ctx context.Context, flags *rootFlagValues) (*session, error) {
	cfg, err := a.loadConfig(ctx, flags)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(a.stderr, cfg.Log, flags.verbose)
	if err != nil {
		return nil, err
	}

	disc := discovery.New(cfg, discovery.WithLogger(logger))
	reg := registry.New(registry.WithLogger(logger))
	result, _, err := reg.Reload(ctx, disc)
	if err != nil {
		return nil, err
	}
	svc, err := aggregate.NewFromConfig(reg, cfg)
	if err != nil {
		return nil, fmt.Errorf("configure aggregation: %w", err)
	}

	return &session{
		cfg:       cfg,
		logger:    logger,
		discovery: disc,
		registry:  reg,
		result:    result,
		service:   svc,
	}, nil
}
