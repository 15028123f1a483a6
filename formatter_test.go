package nbtest

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nbtest-labs/nbtest/client"
	"github.com/nbtest-labs/nbtest/types"
)

func TestPrintResultsTable(t *testing.T) {
	batch := types.ResultBatch{
		{TestID: "/Workspace/tests/test_a", Outcome: types.OutcomePassed, Duration: 3 * time.Second},
		{TestID: "/Workspace/tests/test_b", Outcome: types.OutcomeFailed, Duration: 5 * time.Second},
		{TestID: "/Workspace/tests/test_c", Outcome: types.OutcomeErrored, Err: errors.New("submission failed")},
	}
	summary := types.Validate(batch)

	var buf bytes.Buffer
	printResultsTable(&buf, "run-123", batch, summary, 8*time.Second)

	out := buf.String()
	assert.Contains(t, out, "test_a")
	assert.Contains(t, out, "pass")
	assert.Contains(t, out, "fail")
	assert.Contains(t, out, "submission failed")
	assert.Contains(t, out, "run-123")
	assert.Contains(t, out, "PASS: 1")
	assert.Contains(t, out, "FAIL: 1")
}

func TestPrintTestList(t *testing.T) {
	var buf bytes.Buffer
	printTestList(&buf, "/Workspace/tests", []client.Notebook{
		{Path: "/Workspace/tests/test_a", Name: "test_a"},
		{Path: "/Workspace/tests/sub/test_b", Name: "test_b"},
	})

	out := buf.String()
	assert.Contains(t, out, "/Workspace/tests/test_a")
	assert.Contains(t, out, "/Workspace/tests/sub/test_b")
	assert.Contains(t, out, "2")
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "pass", outcomeString(types.OutcomePassed))
	assert.Equal(t, "fail", outcomeString(types.OutcomeFailed))
	assert.Equal(t, "error", outcomeString(types.OutcomeErrored))
	assert.Equal(t, "timeout", outcomeString(types.OutcomeTimedOut))
}
