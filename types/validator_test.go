package types

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeResult(id string, outcome Outcome) *ExecutionResult {
	r := &ExecutionResult{
		TestID:       id,
		NotebookPath: id,
		Outcome:      outcome,
		Duration:     time.Second,
	}
	if outcome == OutcomeErrored {
		r.Err = errors.New("boom")
	}
	return r
}

func TestValidateTallies(t *testing.T) {
	batch := ResultBatch{
		makeResult("/t/test_a", OutcomePassed),
		makeResult("/t/test_b", OutcomePassed),
		makeResult("/t/test_c", OutcomePassed),
		makeResult("/t/test_d", OutcomeFailed),
		makeResult("/t/test_e", OutcomeErrored),
	}

	s := Validate(batch)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 3, s.Passed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Errored)
	assert.Equal(t, 0, s.TimedOut)
	assert.False(t, s.Success())
}

func TestValidateAllPassed(t *testing.T) {
	batch := ResultBatch{
		makeResult("/t/test_a", OutcomePassed),
		makeResult("/t/test_b", OutcomePassed),
	}

	s := Validate(batch)
	assert.True(t, s.Success())
	assert.Equal(t, 2, s.Passed)
}

func TestValidateTimedOutIsNonSuccess(t *testing.T) {
	batch := ResultBatch{
		makeResult("/t/test_a", OutcomePassed),
		makeResult("/t/test_b", OutcomeTimedOut),
	}

	s := Validate(batch)
	assert.False(t, s.Success())
	assert.Equal(t, 1, s.TimedOut)
	assert.Equal(t, 0, s.Errored)
}

func TestValidateEmptyBatch(t *testing.T) {
	s := Validate(nil)
	assert.Equal(t, 0, s.Total)
	assert.True(t, s.Success())
}

func TestResultBatchFind(t *testing.T) {
	batch := ResultBatch{
		makeResult("/t/test_a", OutcomePassed),
		makeResult("/t/test_b", OutcomeFailed),
	}

	r := batch.Find("/t/test_b")
	require.NotNil(t, r)
	assert.Equal(t, OutcomeFailed, r.Outcome)
	assert.Nil(t, batch.Find("/t/test_missing"))
}
