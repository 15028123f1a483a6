package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/nbtest-labs/nbtest/types"
)

// executeAll runs the given tests across a bounded pool of lanes. Each lane
// owns one in-flight test end-to-end (submit, poll loop, terminal), so at
// most maxParallel tests are non-terminal at any instant. The returned
// batch is re-sorted to input order for deterministic reporting.
func (r *runner) executeAll(ctx context.Context, tests []string) types.ResultBatch {
	if len(tests) == 0 {
		r.log.Debug("No tests to execute")
		return types.ResultBatch{}
	}

	lanes := r.maxParallel
	if lanes > len(tests) {
		lanes = len(tests)
	}

	workChan := make(chan string)
	resultChan := make(chan *types.ExecutionResult, len(tests))

	var wg sync.WaitGroup
	for i := 0; i < lanes; i++ {
		wg.Add(1)
		go r.lane(ctx, i, &wg, workChan, resultChan)
	}

	go func() {
		defer close(workChan)
		for _, test := range tests {
			select {
			case workChan <- test:
			case <-ctx.Done():
				r.log.Debug("Context cancelled while queueing tests")
				return
			}
		}
	}()

	wg.Wait()
	close(resultChan)

	byID := make(map[string]*types.ExecutionResult, len(tests))
	for result := range resultChan {
		byID[result.TestID] = result
	}

	// Every requested test yields exactly one result, even when workers
	// stopped early on a cancelled context.
	batch := make(types.ResultBatch, 0, len(tests))
	for _, test := range tests {
		result, ok := byID[test]
		if !ok {
			result = r.terminalResult(test, types.OutcomeErrored, "",
				fmt.Errorf("run aborted before dispatch: %w", context.Cause(ctx)), 0)
		}
		batch = append(batch, result)
	}
	return batch
}

// lane is one concurrency slot of the pool. It pulls queued tests and runs
// each to a terminal state before taking the next.
func (r *runner) lane(ctx context.Context, id int, wg *sync.WaitGroup, workChan <-chan string, resultChan chan<- *types.ExecutionResult) {
	defer wg.Done()

	log := r.log.New("lane", id)
	log.Debug("Lane starting")
	defer log.Debug("Lane exiting")

	for {
		select {
		case test, ok := <-workChan:
			if !ok {
				return
			}
			log.Debug("Lane picked up test", "test", test)
			resultChan <- r.executeTest(ctx, test)
		case <-ctx.Done():
			log.Debug("Lane received context cancellation")
			return
		}
	}
}
