// Package events delivers test lifecycle notifications to a sink without
// ever blocking the orchestrator. Events flow through a bounded queue
// consumed by a single goroutine; Wait blocks until every accepted event
// has been delivered.
package events

import (
	"fmt"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/nbtest-labs/nbtest/types"
)

// Sink receives test lifecycle notifications. Implementations must tolerate
// concurrent delivery ordering across different tests; events for a single
// test arrive in order.
type Sink interface {
	TestStarted(testID string)
	TestFinished(testID string, result *types.ExecutionResult)
	TestErrored(testID string, err error)
}

type eventKind int

const (
	kindStarted eventKind = iota
	kindFinished
	kindErrored
)

type event struct {
	kind   eventKind
	testID string
	result *types.ExecutionResult
	err    error
}

// DefaultQueueSize bounds the notification backlog. At one started plus one
// terminal event per test this covers runs of several hundred tests.
const DefaultQueueSize = 1024

// Processor fans events into a Sink asynchronously. Publish methods never
// block; when the queue is full the event is dropped with a warning rather
// than stalling a lane.
type Processor struct {
	sink  Sink
	queue chan event
	log   log.Logger

	pending sync.WaitGroup
	closing sync.Once
	done    chan struct{}
}

// NewProcessor starts a processor draining into sink.
func NewProcessor(sink Sink, logger log.Logger) *Processor {
	return NewProcessorSize(sink, logger, DefaultQueueSize)
}

// NewProcessorSize starts a processor with an explicit queue capacity.
func NewProcessorSize(sink Sink, logger log.Logger, size int) *Processor {
	p := &Processor{
		sink:  sink,
		queue: make(chan event, size),
		log:   logger.New("component", "events"),
		done:  make(chan struct{}),
	}
	go p.consume()
	return p
}

func (p *Processor) consume() {
	defer close(p.done)
	for ev := range p.queue {
		p.deliver(ev)
		p.pending.Done()
	}
}

// deliver hands one event to the sink. Sink failures are contained here;
// they must never reach orchestration control flow.
func (p *Processor) deliver(ev event) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Warn("Event sink panicked", "panic", r, "test", ev.testID)
		}
	}()

	switch ev.kind {
	case kindStarted:
		p.sink.TestStarted(ev.testID)
	case kindFinished:
		p.sink.TestFinished(ev.testID, ev.result)
	case kindErrored:
		p.sink.TestErrored(ev.testID, ev.err)
	}
}

func (p *Processor) publish(ev event) {
	p.pending.Add(1)
	select {
	case p.queue <- ev:
	default:
		p.pending.Done()
		p.log.Warn("Event queue full, dropping notification", "test", ev.testID)
	}
}

// TestStarted notifies that a test was dispatched.
func (p *Processor) TestStarted(testID string) {
	p.publish(event{kind: kindStarted, testID: testID})
}

// TestFinished notifies that a test reached a terminal result.
func (p *Processor) TestFinished(testID string, result *types.ExecutionResult) {
	p.publish(event{kind: kindFinished, testID: testID, result: result})
}

// TestErrored notifies that a test could not be evaluated.
func (p *Processor) TestErrored(testID string, err error) {
	p.publish(event{kind: kindErrored, testID: testID, err: err})
}

// Wait blocks until every accepted event has been delivered to the sink.
// It does not stop the processor; further events may be published after it
// returns.
func (p *Processor) Wait() {
	p.pending.Wait()
}

// Close drains outstanding events and stops the consumer. The processor
// must not be published to after Close.
func (p *Processor) Close() {
	p.closing.Do(func() {
		p.pending.Wait()
		close(p.queue)
		<-p.done
	})
}

var _ Sink = (*ConsoleSink)(nil)

// ConsoleSink prints lifecycle lines for live feedback during a run.
type ConsoleSink struct {
	mu sync.Mutex
}

// NewConsoleSink creates a console sink writing to stdout.
func NewConsoleSink() *ConsoleSink {
	return &ConsoleSink{}
}

// TestStarted implements the Sink interface.
func (c *ConsoleSink) TestStarted(testID string) {
	c.printf("%s %s\n", text.FgCyan.Sprint("RUN "), testID)
}

// TestFinished implements the Sink interface.
func (c *ConsoleSink) TestFinished(testID string, result *types.ExecutionResult) {
	label := text.FgGreen.Sprint("PASS")
	switch result.Outcome {
	case types.OutcomeFailed:
		label = text.FgRed.Sprint("FAIL")
	case types.OutcomeTimedOut:
		label = text.FgYellow.Sprint("TIME")
	case types.OutcomeErrored:
		label = text.FgRed.Sprint("ERR ")
	}
	c.printf("%s %s (%.1fs)\n", label, testID, result.Duration.Seconds())
}

// TestErrored implements the Sink interface.
func (c *ConsoleSink) TestErrored(testID string, err error) {
	c.printf("%s %s: %v\n", text.FgRed.Sprint("ERR "), testID, err)
}

func (c *ConsoleSink) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(os.Stdout, format, args...)
}
