package logging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbtest-labs/nbtest/types"
)

func TestLogResultWritesArtifact(t *testing.T) {
	base := t.TempDir()
	fl, err := NewFileLogger(base, "run-1", log.NewLogger(log.DiscardHandler()))
	require.NoError(t, err)

	result := &types.ExecutionResult{
		TestID:       "/tests/test_orders",
		NotebookPath: "/tests/test_orders",
		Outcome:      types.OutcomeFailed,
		Duration:     90 * time.Second,
		Err:          errors.New("assertion \x1b[31mfailed\x1b[0m"),
		ExitOutput:   `{"test_cases":[{"name":"a","passed":false}]}`,
	}
	require.NoError(t, fl.LogResult(result))

	data, err := os.ReadFile(filepath.Join(base, "run-1", "tests_test_orders.txt"))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "outcome: failed")
	assert.Contains(t, content, "assertion failed")
	assert.NotContains(t, content, "\x1b[31m")
	assert.Contains(t, content, "exit output")
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "tests_test_a", sanitizeFilename("/tests/test_a"))
	assert.Equal(t, "test", sanitizeFilename("/"))
}
