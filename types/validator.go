package types

import "fmt"

// ValidationSummary tallies a ResultBatch by outcome. It determines the
// process success signal but does not itself terminate the process.
type ValidationSummary struct {
	Total    int
	Passed   int
	Failed   int
	Errored  int
	TimedOut int
}

// Success reports whether every test in the batch passed. Errored and
// timed-out tests count as non-success even though they never asserted
// a failure.
func (s ValidationSummary) Success() bool {
	return s.Total == s.Passed
}

// String implements the Stringer interface for ValidationSummary.
func (s ValidationSummary) String() string {
	return fmt.Sprintf("total=%d passed=%d failed=%d errored=%d timedout=%d",
		s.Total, s.Passed, s.Failed, s.Errored, s.TimedOut)
}

// Validate post-processes a batch of execution results into pass/fail/error
// tallies. It is a total function over the batch: every result contributes
// to exactly one tally.
func Validate(batch ResultBatch) ValidationSummary {
	s := ValidationSummary{Total: len(batch)}
	for _, r := range batch {
		switch r.Outcome {
		case OutcomePassed:
			s.Passed++
		case OutcomeFailed:
			s.Failed++
		case OutcomeTimedOut:
			s.TimedOut++
		default:
			s.Errored++
		}
	}
	return s
}
