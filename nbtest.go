// Package nbtest wires discovery, execution, reporting and validation into
// the notebook test application behind the CLI.
package nbtest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/nbtest-labs/nbtest/client"
	"github.com/nbtest-labs/nbtest/cluster"
	"github.com/nbtest-labs/nbtest/discovery"
	"github.com/nbtest-labs/nbtest/events"
	"github.com/nbtest-labs/nbtest/logging"
	"github.com/nbtest-labs/nbtest/reporting"
	"github.com/nbtest-labs/nbtest/runner"
	"github.com/nbtest-labs/nbtest/types"
)

// App runs notebook tests against a remote workspace, once or on an
// interval, and turns the consolidated results into reports and exit codes.
type App struct {
	config    *Config
	client    client.JobClient
	target    *cluster.Target
	discovery *discovery.Discovery
}

// New validates the configuration and builds the application. All
// configuration errors (credentials, cluster selection) surface here,
// before any test is dispatched.
func New(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.Log == nil {
		return nil, errors.New("logger is required")
	}

	c := cfg.Client
	if c == nil {
		var err error
		c, err = client.NewHTTPClientFromEnv(cfg.Log)
		if err != nil {
			return nil, NewRuntimeError(err)
		}
	}

	return &App{
		config:    cfg,
		client:    c,
		discovery: discovery.New(c, cfg.Log),
	}, nil
}

// Run executes test runs until the context is cancelled, or exactly once in
// run-once mode. The returned error is a TestFailureError when tests did not
// all pass, a RuntimeError for operational failures, or nil.
func (a *App) Run(ctx context.Context) error {
	target, err := a.config.Cluster.Resolve()
	if err != nil {
		return NewRuntimeError(fmt.Errorf("failed to resolve cluster: %w", err))
	}
	a.target = target

	if a.config.RunOnce {
		a.config.Log.Info("Starting nbtest in run-once mode")
		return a.runTests(ctx)
	}

	a.config.Log.Info("Starting nbtest in continuous mode", "interval", a.config.RunInterval)

	ticker := time.NewTicker(a.config.RunInterval)
	defer ticker.Stop()

	for {
		if err := a.runTests(ctx); err != nil {
			if IsRuntimeError(err) {
				return err
			}
			// Test failures don't stop the loop in continuous mode.
			a.config.Log.Warn("Test run completed with failures", "error", err)
		}

		select {
		case <-ctx.Done():
			a.config.Log.Info("Shutting down")
			return nil
		case <-ticker.C:
		}
	}
}

// List prints the test notebooks discovered under the configured pattern.
func (a *App) List(ctx context.Context) error {
	notebooks, err := a.discovery.ListTestNotebooks(ctx, a.config.Pattern, a.config.Recursive)
	if err != nil {
		return NewRuntimeError(err)
	}
	printTestList(os.Stdout, a.config.Pattern, notebooks)
	return nil
}

// runTests performs one full run: discover, execute, report, validate.
func (a *App) runTests(ctx context.Context) error {
	tests, err := a.resolveTests(ctx)
	if err != nil {
		return NewRuntimeError(err)
	}
	if len(tests) == 0 {
		a.config.Log.Warn("No test notebooks found", "pattern", a.config.Pattern)
		return nil
	}

	processor := events.NewProcessor(events.NewConsoleSink(), a.config.Log)
	defer processor.Close()

	testRunner, fileLogger, err := a.newRunner(processor)
	if err != nil {
		return NewRuntimeError(err)
	}
	runID := testRunner.RunID()
	a.config.Log.Info("Starting test run", "runId", runID, "tests", len(tests))

	start := time.Now()
	batch, err := testRunner.RunTests(ctx, tests)
	if err != nil {
		return NewRuntimeError(fmt.Errorf("test run failed: %w", err))
	}
	duration := time.Since(start)

	// Let the live console output finish before rendering the table.
	processor.Wait()

	summary := types.Validate(batch)
	printResultsTable(os.Stdout, runID, batch, summary, duration)

	if err := a.writeReports(batch, fileLogger.Dir()); err != nil {
		return NewRuntimeError(err)
	}

	if !summary.Success() {
		return NewTestFailureError(summary.String())
	}
	a.config.Log.Info("Test run passed", "runId", runID, "total", summary.Total)
	return nil
}

// resolveTests maps the pattern to the set of tests to run: either the
// pattern itself when it addresses a single test notebook, or a discovery
// listing.
func (a *App) resolveTests(ctx context.Context) ([]string, error) {
	if discovery.IsSingleTestPath(a.config.Pattern) {
		return []string{a.config.Pattern}, nil
	}
	return a.discovery.ListTests(ctx, a.config.Pattern, a.config.Recursive)
}

func (a *App) newRunner(processor *events.Processor) (runner.TestRunner, *logging.FileLogger, error) {
	runID := uuid.New().String()

	fileLogger, err := logging.NewFileLogger(a.config.OutputDir, runID, a.config.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	testRunner, err := runner.NewTestRunner(runner.Config{
		Client:          a.client,
		Cluster:         a.target,
		Log:             a.config.Log,
		Timeout:         a.config.Timeout,
		PollWait:        a.config.PollWait,
		MaxParallel:     a.config.MaxParallel,
		MaxPollFailures: a.config.MaxPollFailures,
		NotebookParams:  a.config.NotebookParams,
		Events:          processor,
		FileLogger:      fileLogger,
		RunID:           runID,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create test runner: %w", err)
	}
	return testRunner, fileLogger, nil
}

// writeReports feeds the batch to the selected report sinks. With no
// writers selected this is a no-op and no file is opened.
func (a *App) writeReports(batch types.ResultBatch, dir string) error {
	manager := reporting.NewManager(a.config.Writers, a.config.Log)
	if !manager.HasSinks() {
		return nil
	}

	included := manager.AddBatch(batch)
	paths, err := manager.WriteAll(dir)
	if err != nil {
		return fmt.Errorf("failed to write reports: %w", err)
	}
	a.config.Log.Info("Reports written", "dir", dir, "files", paths, "testsIncluded", included)
	return nil
}
