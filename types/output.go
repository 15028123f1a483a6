package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// TestOutput is the structured payload a test notebook returns through its
// exit value. Notebooks that predate the structured format, or that were
// cancelled before exiting, produce an empty or unparsable payload; callers
// treat that as a reporting-only condition, never an execution failure.
type TestOutput struct {
	TestCases []TestCase `json:"test_cases"`
}

// TestCase is the fine-grained result of one assertion group inside a
// test notebook.
type TestCase struct {
	Name            string   `json:"name"`
	Passed          bool     `json:"passed"`
	DurationSeconds float64  `json:"duration_seconds"`
	Tags            []string `json:"tags,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// ErrNoOutput indicates the notebook returned no exit payload at all.
var ErrNoOutput = errors.New("notebook produced no exit output")

// ParseTestOutput decodes a notebook exit payload into a TestOutput.
// An empty payload, malformed JSON, or a payload without test cases all
// return an error so reporting can skip the result with a warning.
func ParseTestOutput(raw string) (*TestOutput, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrNoOutput
	}
	var out TestOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("invalid exit output format: %w", err)
	}
	if len(out.TestCases) == 0 {
		return nil, errors.New("exit output contains no test cases")
	}
	return &out, nil
}

// Failed returns the test cases that did not pass.
func (o *TestOutput) Failed() []TestCase {
	var failed []TestCase
	for _, tc := range o.TestCases {
		if !tc.Passed {
			failed = append(failed, tc)
		}
	}
	return failed
}
