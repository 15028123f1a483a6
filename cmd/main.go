package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	nbtest "github.com/nbtest-labs/nbtest"
	"github.com/nbtest-labs/nbtest/exitcodes"
	"github.com/nbtest-labs/nbtest/flags"
	"github.com/nbtest-labs/nbtest/service"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	// Local development convenience; the file is optional.
	_ = godotenv.Load()

	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "nbtest"
	app.Usage = "Notebook test runner for remote workspaces"
	app.Description = "nbtest discovers test notebooks, runs each as a remote job, and consolidates the results"
	app.Commands = []*cli.Command{
		{
			Name:      "run",
			Usage:     "Run the test notebooks under a workspace path",
			ArgsUsage: "<path>",
			Flags:     flags.RunFlags(),
			Action:    runCmd,
		},
		{
			Name:      "list",
			Usage:     "List the test notebooks under a workspace path",
			ArgsUsage: "<path>",
			Flags:     flags.ListFlags(),
			Action:    listCmd,
		},
	}
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			if nbtest.IsRuntimeError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.RuntimeErr))
			} else {
				// Test failures and unspecified errors exit with code 1.
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.TestFailure))
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func runCmd(ctx *cli.Context) error {
	logger, err := newLogger(ctx)
	if err != nil {
		return nbtest.NewRuntimeError(err)
	}

	shutdownTelemetry, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(ctx.App.Name),
		otelconfig.WithServiceVersion(ctx.App.Version),
	)
	if err != nil {
		logger.Warn("Telemetry disabled", "error", err)
	} else {
		defer shutdownTelemetry()
	}

	svc := service.New(logger)
	svc.Start(ctx.Context)
	defer svc.Shutdown()

	cfg, err := nbtest.NewRunConfig(ctx, logger)
	if err != nil {
		return nbtest.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	app, err := nbtest.New(cfg)
	if err != nil {
		return err
	}
	return app.Run(ctx.Context)
}

func listCmd(ctx *cli.Context) error {
	logger, err := newLogger(ctx)
	if err != nil {
		return nbtest.NewRuntimeError(err)
	}

	path := ctx.Args().First()
	if path == "" {
		return nbtest.NewRuntimeError(errors.New("a workspace path is required"))
	}

	app, err := nbtest.New(&nbtest.Config{
		Pattern:   path,
		Recursive: ctx.Bool(flags.Recursive.Name),
		Log:       logger,
	})
	if err != nil {
		return err
	}
	return app.List(ctx.Context)
}

func newLogger(ctx *cli.Context) (log.Logger, error) {
	lvl, err := lvlFromString(ctx.String(flags.LogLevel.Name))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	return log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, true)), nil
}

// lvlFromString is a verbatim port of log.LvlFromString, which go-ethereum
// removed when its log package migrated to slog.
func lvlFromString(lvlString string) (slog.Level, error) {
	switch lvlString {
	case "trace", "trce":
		return log.LevelTrace, nil
	case "debug", "dbug":
		return log.LevelDebug, nil
	case "info":
		return log.LevelInfo, nil
	case "warn":
		return log.LevelWarn, nil
	case "error", "eror":
		return log.LevelError, nil
	case "crit":
		return log.LevelCrit, nil
	default:
		return log.LevelDebug, fmt.Errorf("unknown level: %v", lvlString)
	}
}
