package events

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbtest-labs/nbtest/types"
)

// recordingSink records delivered events, optionally delaying or panicking.
type recordingSink struct {
	mu       sync.Mutex
	started  []string
	finished []string
	errored  []string
	delay    time.Duration
	panicOn  string
}

func (s *recordingSink) TestStarted(testID string) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if testID == s.panicOn {
		panic("sink failure")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, testID)
}

func (s *recordingSink) TestFinished(testID string, _ *types.ExecutionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = append(s.finished, testID)
}

func (s *recordingSink) TestErrored(testID string, _ error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errored = append(s.errored, testID)
}

func (s *recordingSink) counts() (int, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.started), len(s.finished), len(s.errored)
}

func testLogger() log.Logger {
	return log.NewLogger(log.DiscardHandler())
}

func TestWaitBlocksUntilAllDelivered(t *testing.T) {
	sink := &recordingSink{delay: 5 * time.Millisecond}
	p := NewProcessor(sink, testLogger())
	defer p.Close()

	for i := 0; i < 10; i++ {
		p.TestStarted("/tests/test_a")
	}
	p.TestFinished("/tests/test_a", &types.ExecutionResult{Outcome: types.OutcomePassed})
	p.TestErrored("/tests/test_b", errors.New("boom"))

	p.Wait()

	started, finished, errored := sink.counts()
	assert.Equal(t, 10, started)
	assert.Equal(t, 1, finished)
	assert.Equal(t, 1, errored)
}

func TestSinkPanicIsContained(t *testing.T) {
	sink := &recordingSink{panicOn: "/tests/test_bad"}
	p := NewProcessor(sink, testLogger())
	defer p.Close()

	p.TestStarted("/tests/test_bad")
	p.TestStarted("/tests/test_good")
	p.Wait()

	started, _, _ := sink.counts()
	assert.Equal(t, 1, started)
	assert.Equal(t, "/tests/test_good", sink.started[0])
}

func TestPublishNeverBlocksWhenQueueFull(t *testing.T) {
	// A sink that blocks until released, with a single-slot queue.
	release := make(chan struct{})
	sink := &blockingSink{release: release}
	p := NewProcessorSize(sink, testLogger(), 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			p.TestStarted("/tests/test_a")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full queue")
	}

	close(release)
	p.Close()
}

type blockingSink struct {
	release chan struct{}
	once    sync.Once
}

func (s *blockingSink) TestStarted(string) {
	s.once.Do(func() { <-s.release })
}
func (s *blockingSink) TestFinished(string, *types.ExecutionResult) {}
func (s *blockingSink) TestErrored(string, error)                   {}

func TestCloseDrains(t *testing.T) {
	sink := &recordingSink{}
	p := NewProcessor(sink, testLogger())

	for i := 0; i < 20; i++ {
		p.TestStarted("/tests/test_a")
	}
	p.Close()

	started, _, _ := sink.counts()
	require.Equal(t, 20, started)

	// Closing twice is safe.
	p.Close()
}
