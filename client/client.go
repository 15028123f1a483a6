// Package client wraps the remote job-execution backend. The orchestrator
// consumes the JobClient interface; the HTTP implementation talks to the
// Databricks Jobs and Workspace REST APIs.
package client

import (
	"context"
	"time"

	"github.com/nbtest-labs/nbtest/cluster"
)

// JobHandle is an opaque reference to a submitted run. It is owned by the
// orchestrator lane executing the test and discarded once the run is
// terminal or cancelled.
type JobHandle struct {
	RunID int64
}

// RunLifecycle is the coarse state of a submitted run.
type RunLifecycle string

const (
	LifecyclePending       RunLifecycle = "PENDING"
	LifecycleRunning       RunLifecycle = "RUNNING"
	LifecycleTerminating   RunLifecycle = "TERMINATING"
	LifecycleTerminated    RunLifecycle = "TERMINATED"
	LifecycleSkipped       RunLifecycle = "SKIPPED"
	LifecycleInternalError RunLifecycle = "INTERNAL_ERROR"
)

// RunResultState is the verdict of a terminated run.
type RunResultState string

const (
	ResultSuccess  RunResultState = "SUCCESS"
	ResultFailed   RunResultState = "FAILED"
	ResultCanceled RunResultState = "CANCELED"
	ResultTimedOut RunResultState = "TIMEDOUT"
)

// JobStatus is a point-in-time view of a submitted run.
type JobStatus struct {
	Lifecycle RunLifecycle
	Result    RunResultState // Only meaningful once Terminal
	Message   string         // Backend state message, may be empty
}

// Terminal reports whether the run has reached a state from which no
// further transition occurs.
func (s JobStatus) Terminal() bool {
	switch s.Lifecycle {
	case LifecycleTerminated, LifecycleSkipped, LifecycleInternalError:
		return true
	default:
		return false
	}
}

// Succeeded reports whether a terminal run completed successfully.
func (s JobStatus) Succeeded() bool {
	return s.Lifecycle == LifecycleTerminated && s.Result == ResultSuccess
}

// RunRequest describes one notebook submission. It is created per test at
// dispatch time and immutable once submitted.
type RunRequest struct {
	NotebookPath string
	Params       map[string]string
	Cluster      *cluster.Target
	Timeout      time.Duration
}

// Notebook is a workspace object returned by listing.
type Notebook struct {
	Path string
	Name string
}

// JobClient is the remote job-execution backend consumed by the
// orchestrator. Submit, Poll and Cancel may return transient errors;
// Cancel is best-effort from the orchestrator's perspective.
type JobClient interface {
	Submit(ctx context.Context, req RunRequest) (JobHandle, error)
	Poll(ctx context.Context, handle JobHandle) (JobStatus, error)
	Cancel(ctx context.Context, handle JobHandle) error
	Output(ctx context.Context, handle JobHandle) (string, error)
	ListNotebooks(ctx context.Context, path string, recursive bool) ([]Notebook, error)
}
