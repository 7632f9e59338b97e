package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/kaomoneus/cppl/internal/cli"
	"github.com/kaomoneus/cppl/internal/command"
	"github.com/kaomoneus/cppl/internal/ctxlog"
	"github.com/kaomoneus/cppl/internal/driver"
)

// App encapsulates one coordinator invocation: effective configuration,
// logger and child runner.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	cfg    driver.Config
	runner command.Runner
}

// NewApp resolves the configuration and constructs the application. The
// runner abstracts child-process execution; pass command.ExecRunner{} for
// real builds.
func NewApp(outW io.Writer, opts *cli.Options, runner command.Runner) (*App, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, &cli.ExitError{Code: cli.ExitWrongArguments, Message: err.Error()}
	}

	logger := newLogger(opts.LogFormat, opts.Verbose, outW)

	return &App{
		outW:   outW,
		logger: logger,
		cfg:    cfg,
		runner: runner,
	}, nil
}

// Config returns the resolved driver configuration. This is primarily for
// testing.
func (a *App) Config() driver.Config {
	return a.cfg
}

// Run executes the build and maps its outcome onto process exit codes.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("Coordinator starting.", a.describeConfig()...)

	d, err := driver.New(a.cfg, a.runner)
	if err != nil {
		return &cli.ExitError{Code: cli.ExitWrongArguments, Message: err.Error()}
	}

	if err := d.Run(ctx); err != nil {
		a.logger.Error("Build failed.", "error", err)
		return &cli.ExitError{Code: cli.ExitBuildFailed, Message: err.Error()}
	}

	a.logger.Debug("Coordinator finished.")
	return nil
}

// describeConfig renders the run parameters for the verbose startup dump.
func (a *App) describeConfig() []any {
	return []any{
		slog.String("root", a.cfg.SourcesRoot),
		slog.String("buildRoot", a.cfg.BuildRoot),
		slog.String("output", a.cfg.Output),
		slog.Bool("link", a.cfg.LinkEnabled),
		slog.Int("jobs", a.cfg.Jobs),
		slog.String("preamble", a.cfg.PreambleSource),
		slog.String("headers", a.cfg.HeadersDir),
		slog.Bool("dryRun", a.cfg.DryRun),
	}
}
