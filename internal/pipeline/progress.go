package pipeline

import (
	"sync"
	"time"
)

// Event statuses pushed to progress subscribers.
const (
	EventStarted   = "started"
	EventSucceeded = "succeeded"
	EventFailed    = "failed"
	EventTimedOut  = "timed_out"
)

// TerminalStage is the pseudo stage name used for the final outcome event.
const TerminalStage = "pipeline"

// Event is one stage-transition notification. Events are observed by a
// subscriber in emission order within a single run.
type Event struct {
	Stage     string    `json:"stage"`
	Status    string    `json:"status"`
	Data      string    `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink receives progress events for one pipeline run.
//
// Emit must never panic and becomes a no-op once the sink is closed; the run
// keeps executing even if the subscriber is gone. Close is idempotent.
type Sink interface {
	Emit(event Event)
	Close()
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Emit(Event) {}
func (NopSink) Close()     {}

// FuncSink adapts a callback into a Sink. The callback stops being invoked
// after Close.
type FuncSink struct {
	mu      sync.Mutex
	closed  bool
	emit    func(Event)
	onClose func()
}

// NewFuncSink creates a FuncSink. onClose may be nil.
func NewFuncSink(emit func(Event), onClose func()) *FuncSink {
	return &FuncSink{emit: emit, onClose: onClose}
}

func (s *FuncSink) Emit(event Event) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.emit == nil {
		return
	}
	s.emit(event)
}

func (s *FuncSink) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.onClose != nil {
		s.onClose()
	}
}

// Buffer is a pull-based Sink: it accumulates events in emission order so a
// polling client can read an ordered snapshot until the terminal event.
type Buffer struct {
	mu     sync.Mutex
	events []Event
	done   bool
}

// NewBuffer creates an empty progress buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Emit(event Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return
	}
	b.events = append(b.events, event)
}

func (b *Buffer) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.done = true
}

// Snapshot returns a copy of the events observed so far and whether the run
// has delivered its terminal event.
func (b *Buffer) Snapshot() ([]Event, bool) {
	if b == nil {
		return nil, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out, b.done
}

// MultiSink fans a run's events out to several sinks in order.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines sinks; nil entries are skipped.
func NewMultiSink(sinks ...Sink) *MultiSink {
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &MultiSink{sinks: kept}
}

func (m *MultiSink) Emit(event Event) {
	if m == nil {
		return
	}
	for _, s := range m.sinks {
		s.Emit(event)
	}
}

func (m *MultiSink) Close() {
	if m == nil {
		return
	}
	for _, s := range m.sinks {
		s.Close()
	}
}
