// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"github.com/hwprov/hwprov/internal/chroot"
	"github.com/hwprov/hwprov/internal/cmdrunner"
	"github.com/hwprov/hwprov/internal/config"
	"github.com/hwprov/hwprov/internal/repo"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: every Cobra handler receives an App and reaches
	// configuration, repositories and the host through it.
	App struct {
		Config    ConfigProvider
		Transport repo.Transport
		Runners   RunnerFactory
		LookPath  chroot.LookPathFunc
		stdout    io.Writer
		stderr    io.Writer

		// Set from persistent flags.
		verbose    bool
		configPath string
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config    ConfigProvider
		Transport repo.Transport
		Runners   RunnerFactory
		LookPath  chroot.LookPathFunc
		Stdout    io.Writer
		Stderr    io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// RunnerFactory builds the command runner for one invocation.
	RunnerFactory func(req RunnerRequest) cmdrunner.Runner

	// RunnerRequest carries what a RunnerFactory needs to know.
	RunnerRequest struct {
		Config *config.Config
		DryRun bool
		Stdout io.Writer
		Stderr io.Writer
		Logger *slog.Logger
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
	if deps.Transport == nil {
		deps.Transport = repo.NewMux(repo.NewHTTPTransport())
	}
	if deps.Runners == nil {
		deps.Runners = defaultRunner
	}
	if deps.LookPath == nil {
		deps.LookPath = exec.LookPath
	}

	return &App{
		Config:    deps.Config,
		Transport: deps.Transport,
		Runners:   deps.Runners,
		LookPath:  deps.LookPath,
		stdout:    deps.Stdout,
		stderr:    deps.Stderr,
	}, nil
}

// defaultRunner prints commands in dry-run mode and executes them otherwise,
// escalating with the configured command.
func defaultRunner(req RunnerRequest) cmdrunner.Runner {
	escalate := req.Config.Privilege.EscalateCommand
	if req.DryRun {
		return &cmdrunner.DryRun{Out: req.Stdout, Escalate: escalate}
	}
	return cmdrunner.NewExecutor(
		cmdrunner.WithEscalation(escalate),
		cmdrunner.WithOutput(req.Stdout, req.Stderr),
		cmdrunner.WithLogger(req.Logger),
	)
}

// loadConfig loads the configuration named by --config (or the default one)
// and installs the logger it asks for.
func (a *App) loadConfig(ctx context.Context) (*config.Config, *slog.Logger, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.configPath})
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(a.stderr, cfg.LogLevel, a.verbose)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
