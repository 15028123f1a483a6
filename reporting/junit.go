package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	"github.com/acarl005/stripansi"

	"github.com/nbtest-labs/nbtest/types"
)

// JUnitFileName is the artifact name of the JUnit XML report.
const JUnitFileName = "test-results.xml"

type junitTestSuite struct {
	XMLName  xml.Name        `xml:"testsuite"`
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Time     string          `xml:"time,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	ClassName string        `xml:"classname,attr"`
	Name      string        `xml:"name,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

var _ Sink = (*JUnitSink)(nil)

// JUnitSink accumulates test cases and renders a single JUnit XML
// testsuite, one testcase per notebook test case.
type JUnitSink struct {
	cases    []junitTestCase
	failures int
	seconds  float64
}

// NewJUnitSink creates an empty JUnit sink.
func NewJUnitSink() *JUnitSink {
	return &JUnitSink{}
}

// Name implements the Sink interface.
func (s *JUnitSink) Name() string {
	return "JUnit"
}

// Add implements the Sink interface.
func (s *JUnitSink) Add(notebookPath string, output *types.TestOutput) {
	for _, tc := range output.TestCases {
		c := junitTestCase{
			ClassName: notebookPath,
			Name:      tc.Name,
			Time:      fmt.Sprintf("%.3f", tc.DurationSeconds),
		}
		if !tc.Passed {
			s.failures++
			c.Failure = &junitFailure{
				Message: fmt.Sprintf("%s failed", tc.Name),
				Body:    stripansi.Strip(tc.Error),
			}
		}
		s.seconds += tc.DurationSeconds
		s.cases = append(s.cases, c)
	}
}

// Write implements the Sink interface.
func (s *JUnitSink) Write(dir string) (string, error) {
	suite := junitTestSuite{
		Name:     "nbtest",
		Tests:    len(s.cases),
		Failures: s.failures,
		Time:     fmt.Sprintf("%.3f", s.seconds),
		Cases:    s.cases,
	}

	data, err := xml.MarshalIndent(suite, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, JUnitFileName)
	content := append([]byte(xml.Header), data...)
	if err := os.WriteFile(path, append(content, '\n'), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
