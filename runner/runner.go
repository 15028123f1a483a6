// Package runner turns an ordered set of test notebook identifiers into a
// bounded-concurrency, timeout-aware execution plan against the remote job
// backend, and consolidates every completion path into one ExecutionResult
// per test.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/nbtest-labs/nbtest/client"
	"github.com/nbtest-labs/nbtest/cluster"
	"github.com/nbtest-labs/nbtest/events"
	"github.com/nbtest-labs/nbtest/logging"
	"github.com/nbtest-labs/nbtest/metrics"
	"github.com/nbtest-labs/nbtest/types"
)

const (
	// DefaultPollWait is the fixed interval between status polls.
	DefaultPollWait = 5 * time.Second
	// DefaultTimeout bounds a single test's wall-clock time from submission.
	DefaultTimeout = 120 * time.Second
	// DefaultMaxPollFailures is how many consecutive poll errors are
	// tolerated before a test is demoted to errored.
	DefaultMaxPollFailures = 5
)

// TestRunner defines the interface for executing notebook tests.
type TestRunner interface {
	// RunTests executes every test to a terminal state and returns exactly
	// one result per distinct input identifier, in input order. Per-test
	// failures never surface as an error.
	RunTests(ctx context.Context, tests []string) (types.ResultBatch, error)
	// RunTest executes a single test through the same state machine.
	RunTest(ctx context.Context, test string) (*types.ExecutionResult, error)
	// RunID identifies this runner's execution for metrics and artifacts.
	RunID() string
}

// Config holds configuration for creating a new runner.
type Config struct {
	Client          client.JobClient
	Cluster         *cluster.Target
	Log             log.Logger
	Timeout         time.Duration     // Per-test wall-clock timeout
	PollWait        time.Duration     // Fixed polling interval
	MaxParallel     int               // Concurrency bound, 1 = sequential
	MaxPollFailures int               // Consecutive poll errors before demotion
	NotebookParams  map[string]string // Base parameters passed to every notebook
	Events          *events.Processor // Optional lifecycle notifications
	FileLogger      *logging.FileLogger
	RunID           string // Optional; generated when empty
}

type runner struct {
	client          client.JobClient
	cluster         *cluster.Target
	log             log.Logger
	timeout         time.Duration
	pollWait        time.Duration
	maxParallel     int
	maxPollFailures int
	params          map[string]string
	events          *events.Processor
	fileLogger      *logging.FileLogger
	runID           string
	tracer          trace.Tracer
}

// NewTestRunner creates a new test runner instance.
func NewTestRunner(cfg Config) (TestRunner, error) {
	if cfg.Client == nil {
		return nil, errors.New("job client is required")
	}
	if cfg.Cluster == nil {
		return nil, errors.New("cluster target is required")
	}
	if cfg.Log == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PollWait <= 0 {
		cfg.PollWait = DefaultPollWait
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 1
	}
	if cfg.MaxPollFailures <= 0 {
		cfg.MaxPollFailures = DefaultMaxPollFailures
	}

	runID := cfg.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	return &runner{
		client:          cfg.Client,
		cluster:         cfg.Cluster,
		log:             cfg.Log.New("component", "runner", "runId", runID),
		timeout:         cfg.Timeout,
		pollWait:        cfg.PollWait,
		maxParallel:     cfg.MaxParallel,
		maxPollFailures: cfg.MaxPollFailures,
		params:          cfg.NotebookParams,
		events:          cfg.Events,
		fileLogger:      cfg.FileLogger,
		runID:           runID,
		tracer:          otel.Tracer("nbtest/runner"),
	}, nil
}

// RunID implements the TestRunner interface.
func (r *runner) RunID() string {
	return r.runID
}

// RunTests implements the TestRunner interface.
func (r *runner) RunTests(ctx context.Context, tests []string) (types.ResultBatch, error) {
	ctx, span := r.tracer.Start(ctx, "RunTests")
	defer span.End()

	start := time.Now()
	ordered := dedupe(tests)
	r.log.Info("Starting test run", "tests", len(ordered), "maxParallel", r.maxParallel,
		"timeout", r.timeout, "pollWait", r.pollWait)

	batch := r.executeAll(ctx, ordered)

	summary := types.Validate(batch)
	metrics.RecordRun(r.runID, summary, time.Since(start))
	r.log.Info("Test run completed", "duration", time.Since(start), "summary", summary.String())
	return batch, nil
}

// RunTest implements the TestRunner interface. It is the degenerate
// single-test case of RunTests and shares the same state machine.
func (r *runner) RunTest(ctx context.Context, test string) (*types.ExecutionResult, error) {
	ctx, span := r.tracer.Start(ctx, "RunTest")
	defer span.End()

	result := r.executeTest(ctx, test)
	metrics.RecordRun(r.runID, types.Validate(types.ResultBatch{result}), result.Duration)
	return result, nil
}

// executeTest drives one test end-to-end through the lifecycle
// PENDING -> SUBMITTING -> RUNNING -> terminal. It always returns a
// terminal result; no per-test condition escapes as an error or panic.
func (r *runner) executeTest(ctx context.Context, testID string) (result *types.ExecutionResult) {
	ctx, span := r.tracer.Start(ctx, "executeTest")
	defer span.End()

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("Panic while executing test", "test", testID, "panic", p)
			result = r.terminalResult(testID, types.OutcomeErrored, "",
				fmt.Errorf("internal error: %v", p), time.Since(start))
		}
	}()

	r.notifyStarted(testID)

	handle, err := r.client.Submit(ctx, client.RunRequest{
		NotebookPath: testID,
		Params:       r.params,
		Cluster:      r.cluster,
		Timeout:      r.timeout,
	})
	if err != nil {
		r.log.Error("Submission failed", "test", testID, "error", err)
		return r.terminalResult(testID, types.OutcomeErrored, "",
			fmt.Errorf("submission failed: %w", err), time.Since(start))
	}

	outcome, output, cause := r.awaitTerminal(ctx, testID, handle)
	return r.terminalResult(testID, outcome, output, cause, time.Since(start))
}

// awaitTerminal polls the submitted run at the configured interval until it
// reaches a terminal state, the wall-clock timeout elapses, or polling has
// failed too many consecutive times.
func (r *runner) awaitTerminal(ctx context.Context, testID string, handle client.JobHandle) (types.Outcome, string, error) {
	submittedAt := time.Now()
	deadline := submittedAt.Add(r.timeout)
	pollFailures := 0
	var lastPollErr error

	for {
		wait := r.pollWait
		if remaining := time.Until(deadline); remaining < wait {
			wait = remaining
		}
		if wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				r.cancelRun(testID, handle)
				return types.OutcomeErrored, "", fmt.Errorf("run aborted: %w", ctx.Err())
			}
		}

		if !time.Now().Before(deadline) {
			r.log.Warn("Test exceeded timeout, cancelling", "test", testID,
				"timeout", r.timeout, "elapsed", time.Since(submittedAt))
			r.cancelRun(testID, handle)
			return types.OutcomeTimedOut, "",
				fmt.Errorf("timed out after %s waiting for completion", r.timeout)
		}

		status, err := r.client.Poll(ctx, handle)
		if err != nil {
			pollFailures++
			lastPollErr = err
			r.log.Warn("Poll failed", "test", testID, "consecutiveFailures", pollFailures, "error", err)
			if pollFailures >= r.maxPollFailures {
				r.cancelRun(testID, handle)
				return types.OutcomeErrored, "",
					fmt.Errorf("polling failed %d consecutive times: %w", pollFailures, lastPollErr)
			}
			continue
		}
		pollFailures = 0

		if !status.Terminal() {
			r.log.Debug("Test still running", "test", testID, "lifecycle", status.Lifecycle)
			continue
		}

		switch {
		case status.Succeeded():
			return types.OutcomePassed, r.fetchOutput(ctx, testID, handle), nil
		case status.Lifecycle == client.LifecycleInternalError:
			return types.OutcomeErrored, "", fmt.Errorf("backend internal error: %s", status.Message)
		default:
			var cause error
			if status.Message != "" {
				cause = errors.New(status.Message)
			}
			return types.OutcomeFailed, r.fetchOutput(ctx, testID, handle), cause
		}
	}
}

// cancelRun issues a best-effort cancellation so the handle is released
// before the lane is reused. Failures are logged, never propagated.
func (r *runner) cancelRun(testID string, handle client.JobHandle) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.client.Cancel(ctx, handle); err != nil {
		r.log.Warn("Best-effort cancel failed", "test", testID, "runId", handle.RunID, "error", err)
	}
}

// fetchOutput retrieves the notebook exit payload. Absence or fetch failure
// is a reporting-only concern; the test's outcome stands.
func (r *runner) fetchOutput(ctx context.Context, testID string, handle client.JobHandle) string {
	output, err := r.client.Output(ctx, handle)
	if err != nil {
		r.log.Warn("Could not fetch notebook output", "test", testID, "error", err)
		return ""
	}
	return output
}

// terminalResult builds the immutable result, emits the lifecycle event and
// metrics, and persists the artifact.
func (r *runner) terminalResult(testID string, outcome types.Outcome, output string, cause error, duration time.Duration) *types.ExecutionResult {
	result := &types.ExecutionResult{
		TestID:       testID,
		NotebookPath: testID,
		Outcome:      outcome,
		ExitOutput:   output,
		Duration:     duration,
		Err:          cause,
	}

	metrics.RecordTestResult(r.runID, outcome)
	if r.events != nil {
		if outcome == types.OutcomeErrored {
			r.events.TestErrored(testID, cause)
		} else {
			r.events.TestFinished(testID, result)
		}
	}
	if r.fileLogger != nil {
		if err := r.fileLogger.LogResult(result); err != nil {
			metrics.RecordErrorDetails("artifact write failed", err)
		}
	}
	return result
}

func (r *runner) notifyStarted(testID string) {
	if r.events != nil {
		r.events.TestStarted(testID)
	}
}

// dedupe preserves first occurrence order while dropping duplicate
// identifiers, so the exactly-one-result invariant holds per distinct test.
func dedupe(tests []string) []string {
	seen := make(map[string]struct{}, len(tests))
	ordered := make([]string, 0, len(tests))
	for _, id := range tests {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ordered = append(ordered, id)
	}
	return ordered
}
