// Package reporting turns a validated result batch into named report
// artifacts. Writers are additively composable via a bit-flag set; results
// whose exit payload is missing or malformed are skipped with a warning
// rather than aborting report generation.
package reporting

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/nbtest-labs/nbtest/types"
)

// Writers selects which report artifacts to produce.
type Writers uint

const (
	// WriterJUnit produces a JUnit XML report.
	WriterJUnit Writers = 1 << iota
	// WriterTags produces a CSV report mapping test cases to their tags.
	WriterTags
)

// Has reports whether the flag set includes w.
func (ws Writers) Has(w Writers) bool {
	return ws&w != 0
}

// Sink is one report format. Add is called once per result with a parsed
// payload; Write produces the artifact file and returns its path.
type Sink interface {
	Name() string
	Add(notebookPath string, output *types.TestOutput)
	Write(dir string) (string, error)
}

// Manager fans parsed results into the selected sinks.
type Manager struct {
	sinks []Sink
	log   log.Logger
}

// NewManager builds a manager for the selected writer set. An empty set
// yields a manager with no sinks; its WriteAll is a no-op that touches no
// files.
func NewManager(writers Writers, logger log.Logger) *Manager {
	m := &Manager{log: logger.New("component", "reporting")}
	if writers.Has(WriterJUnit) {
		m.sinks = append(m.sinks, NewJUnitSink())
	}
	if writers.Has(WriterTags) {
		m.sinks = append(m.sinks, NewTagsSink())
	}
	return m
}

// HasSinks reports whether any report kind was selected.
func (m *Manager) HasSinks() bool {
	return len(m.sinks) > 0
}

// SinkNames returns the names of the selected sinks.
func (m *Manager) SinkNames() []string {
	names := make([]string, 0, len(m.sinks))
	for _, s := range m.sinks {
		names = append(names, s.Name())
	}
	return names
}

// AddBatch feeds each result's parsed exit payload to every sink. Results
// without a parsable payload are skipped; each skip produces exactly one
// warning naming the offending notebook path. Returns the number of
// results included.
func (m *Manager) AddBatch(batch types.ResultBatch) int {
	if !m.HasSinks() {
		return 0
	}

	included := 0
	for _, result := range batch {
		output, err := types.ParseTestOutput(result.ExitOutput)
		if err != nil {
			m.log.Warn("The output of the notebook is missing or the format is invalid, skipping it for reporting",
				"notebook", result.NotebookPath, "error", err)
			continue
		}
		for _, sink := range m.sinks {
			sink.Add(result.NotebookPath, output)
		}
		included++
	}
	return included
}

// WriteAll writes every selected artifact into dir and returns the file
// paths written. With no sinks selected it returns nothing and performs no
// file-system writes.
func (m *Manager) WriteAll(dir string) ([]string, error) {
	var files []string
	for _, sink := range m.sinks {
		path, err := sink.Write(dir)
		if err != nil {
			return files, fmt.Errorf("failed to write %s report: %w", sink.Name(), err)
		}
		m.log.Info("Report written", "report", sink.Name(), "file", path)
		files = append(files, path)
	}
	return files, nil
}
