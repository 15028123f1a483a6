// Package types contains shared types used across the nbtest framework.
package types

import (
	"fmt"
	"time"
)

// Outcome classifies the terminal state of a single notebook test execution.
type Outcome string

const (
	// OutcomePassed means the notebook ran to completion and every test case passed.
	OutcomePassed Outcome = "passed"
	// OutcomeFailed means the notebook ran to completion and reported a failure.
	OutcomeFailed Outcome = "failed"
	// OutcomeErrored means the test could not be evaluated (submission failure,
	// persistent polling errors, backend internal error).
	OutcomeErrored Outcome = "errored"
	// OutcomeTimedOut means the run exceeded its wall-clock timeout and a
	// best-effort cancellation was issued.
	OutcomeTimedOut Outcome = "timedout"
)

// String implements the Stringer interface for Outcome.
func (o Outcome) String() string {
	return string(o)
}

// ExecutionResult captures the terminal state of one notebook test.
// Exactly one ExecutionResult is produced per submitted test, including
// for submission failures and timeouts. It is immutable after creation.
type ExecutionResult struct {
	TestID       string        // Identifier the test was requested under
	NotebookPath string        // Workspace path of the executed notebook
	Outcome      Outcome       // Terminal classification
	ExitOutput   string        // Raw payload the notebook returned on exit, may be empty
	Duration     time.Duration // Wall-clock time from submission to terminal state
	Err          error         // Detail for errored/timed-out results
}

// Passed reports whether the test reached the passed outcome.
func (r *ExecutionResult) Passed() bool {
	return r.Outcome == OutcomePassed
}

// Evaluated reports whether the notebook actually ran to a verdict,
// as opposed to erroring or timing out before one was reached.
func (r *ExecutionResult) Evaluated() bool {
	return r.Outcome == OutcomePassed || r.Outcome == OutcomeFailed
}

// ErrorDetail returns the error string for display, empty when none.
func (r *ExecutionResult) ErrorDetail() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// ResultBatch is an ordered collection of results, one per requested test.
// Order matches the discovery order of the input set, not completion order.
type ResultBatch []*ExecutionResult

// Find returns the result for the given test identifier, or nil.
func (b ResultBatch) Find(testID string) *ExecutionResult {
	for _, r := range b {
		if r.TestID == testID {
			return r
		}
	}
	return nil
}

// String renders a one-line summary of the batch.
func (b ResultBatch) String() string {
	s := Validate(b)
	return fmt.Sprintf("%d tests: %d passed, %d failed, %d errored, %d timed out",
		s.Total, s.Passed, s.Failed, s.Errored, s.TimedOut)
}
