package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/kaomoneus/cppl/internal/app"
	"github.com/kaomoneus/cppl/internal/cli"
	"github.com/kaomoneus/cppl/internal/command"
)

// main is the entrypoint of the cppl build coordinator.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitBuildFailed)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling.
func run(outW io.Writer, args []string) error {
	opts, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	coordinator, err := app.NewApp(outW, opts, command.ExecRunner{})
	if err != nil {
		return err
	}

	return coordinator.Run(context.Background())
}
