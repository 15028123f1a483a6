// Package discovery resolves test patterns into ordered sets of test
// notebook identifiers.
package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/log"

	"github.com/nbtest-labs/nbtest/client"
)

// TestPrefix is the naming convention that classifies a notebook as a
// runnable test.
const TestPrefix = "test_"

// IsTestName reports whether a notebook base name follows the test naming
// convention.
func IsTestName(name string) bool {
	return strings.HasPrefix(strings.ToLower(name), TestPrefix)
}

// IsSingleTestPath reports whether a pattern addresses one test notebook
// directly, i.e. its final segment is itself a valid test name. Anything
// else is treated as a directory to search.
func IsSingleTestPath(pattern string) bool {
	segments := strings.Split(pattern, "/")
	return IsTestName(segments[len(segments)-1])
}

// Discovery lists test notebooks from the remote workspace.
type Discovery struct {
	client client.JobClient
	log    log.Logger
}

// New creates a Discovery backed by the given client.
func New(c client.JobClient, logger log.Logger) *Discovery {
	return &Discovery{
		client: c,
		log:    logger.New("component", "discovery"),
	}
}

// ListTestNotebooks resolves a workspace path into the ordered set of test
// notebooks beneath it. Order is deterministic (lexical by path).
func (d *Discovery) ListTestNotebooks(ctx context.Context, path string, recursive bool) ([]client.Notebook, error) {
	if path == "" {
		return nil, fmt.Errorf("discovery path is required")
	}

	notebooks, err := d.client.ListNotebooks(ctx, path, recursive)
	if err != nil {
		return nil, fmt.Errorf("failed to discover tests under %q: %w", path, err)
	}

	var tests []client.Notebook
	for _, nb := range notebooks {
		if IsTestName(nb.Name) {
			tests = append(tests, nb)
		}
	}
	d.log.Debug("Discovered tests", "path", path, "recursive", recursive,
		"notebooks", len(notebooks), "tests", len(tests))
	return tests, nil
}

// ListTests is ListTestNotebooks reduced to workspace paths, the form the
// runner consumes.
func (d *Discovery) ListTests(ctx context.Context, path string, recursive bool) ([]string, error) {
	notebooks, err := d.ListTestNotebooks(ctx, path, recursive)
	if err != nil {
		return nil, err
	}
	tests := make([]string, 0, len(notebooks))
	for _, nb := range notebooks {
		tests = append(tests, nb.Path)
	}
	return tests, nil
}
