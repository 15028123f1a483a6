// Package logging stores per-run artifacts on disk: one file per executed
// test capturing its outcome, error detail and raw exit output.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"

	"github.com/nbtest-labs/nbtest/types"
)

// FileLogger writes run artifacts under <baseDir>/<runID>/.
// Artifact failures are logged and reported back, never fatal to a run.
type FileLogger struct {
	dir string
	log log.Logger
}

// NewFileLogger creates the run directory and returns a logger for it.
func NewFileLogger(baseDir, runID string, logger log.Logger) (*FileLogger, error) {
	dir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run log directory %q: %w", dir, err)
	}
	return &FileLogger{
		dir: dir,
		log: logger.New("component", "filelogger"),
	}, nil
}

// Dir returns the run's artifact directory.
func (l *FileLogger) Dir() string {
	return l.dir
}

// LogResult writes the artifact file for one terminal test result.
func (l *FileLogger) LogResult(result *types.ExecutionResult) error {
	name := sanitizeFilename(result.TestID) + ".txt"
	path := filepath.Join(l.dir, name)

	var b strings.Builder
	fmt.Fprintf(&b, "test: %s\n", result.TestID)
	fmt.Fprintf(&b, "notebook: %s\n", result.NotebookPath)
	fmt.Fprintf(&b, "outcome: %s\n", result.Outcome)
	fmt.Fprintf(&b, "duration: %.1fs\n", result.Duration.Seconds())
	if result.Err != nil {
		fmt.Fprintf(&b, "error: %s\n", stripansi.Strip(result.Err.Error()))
	}
	if result.ExitOutput != "" {
		fmt.Fprintf(&b, "\n--- exit output ---\n%s\n", stripansi.Strip(result.ExitOutput))
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		l.log.Warn("Failed to write test artifact", "test", result.TestID, "path", path, "error", err)
		return fmt.Errorf("failed to write artifact for %s: %w", result.TestID, err)
	}
	return nil
}

// sanitizeFilename flattens a workspace path into a safe file name.
func sanitizeFilename(testID string) string {
	name := strings.Trim(testID, "/")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, " ", "-")
	if name == "" {
		name = "test"
	}
	return name
}
