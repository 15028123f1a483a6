package reporting

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nbtest-labs/nbtest/types"
)

// TagsFileName is the artifact name of the tags report.
const TagsFileName = "test-tags.csv"

var _ Sink = (*TagsSink)(nil)

// TagsSink renders a CSV mapping each notebook test case to its tags, for
// downstream pipelines that slice results by tag.
type TagsSink struct {
	rows [][]string
}

// NewTagsSink creates an empty tags sink.
func NewTagsSink() *TagsSink {
	return &TagsSink{}
}

// Name implements the Sink interface.
func (s *TagsSink) Name() string {
	return "Tags"
}

// Add implements the Sink interface.
func (s *TagsSink) Add(notebookPath string, output *types.TestOutput) {
	for _, tc := range output.TestCases {
		s.rows = append(s.rows, []string{
			notebookPath,
			tc.Name,
			strings.Join(tc.Tags, " "),
			strconv.FormatBool(tc.Passed),
		})
	}
}

// Write implements the Sink interface.
func (s *TagsSink) Write(dir string) (string, error) {
	path := filepath.Join(dir, TagsFileName)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"notebook", "test_case", "tags", "passed"}); err != nil {
		return "", err
	}
	if err := w.WriteAll(s.rows); err != nil {
		return "", err
	}
	w.Flush()
	return path, w.Error()
}
