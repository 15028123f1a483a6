// Package exitcodes defines the standard exit codes used by nbtest.
package exitcodes

// Exit code constants used by nbtest
// These constants define the exit codes that the application uses to
// indicate various states when it exits:
//
// * Success (0): Used when every notebook test passed
// * TestFailure (1): Used when one or more tests failed, errored or timed out
// * RuntimeErr (2): Used for configuration errors, panics and other runtime failures
const (
	Success     = 0 // All tests pass
	TestFailure = 1 // Test failures
	RuntimeErr  = 2 // Runtime or configuration errors
)
