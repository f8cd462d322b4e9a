package pipeline

import (
	"testing"
	"time"
)

func TestFuncSinkStopsEmittingAfterClose(t *testing.T) {
	var received []Event
	closed := 0
	sink := NewFuncSink(func(ev Event) {
		received = append(received, ev)
	}, func() {
		closed++
	})

	sink.Emit(Event{Stage: StageBlend, Status: EventStarted})
	sink.Close()
	sink.Emit(Event{Stage: StageBlend, Status: EventSucceeded})
	sink.Close()

	if len(received) != 1 {
		t.Fatalf("expected 1 event before close, got %d", len(received))
	}
	if closed != 1 {
		t.Fatalf("expected onClose to run exactly once, got %d", closed)
	}
}

func TestBufferPreservesEmissionOrder(t *testing.T) {
	buf := NewBuffer()
	stages := []string{StageBlend, StageDescribe, StageEnhance}
	for _, s := range stages {
		buf.Emit(Event{Stage: s, Status: EventStarted, Timestamp: time.Now()})
		buf.Emit(Event{Stage: s, Status: EventSucceeded, Timestamp: time.Now()})
	}

	events, done := buf.Snapshot()
	if done {
		t.Fatal("buffer should not report done before close")
	}
	if len(events) != 6 {
		t.Fatalf("expected 6 events, got %d", len(events))
	}
	for i, s := range stages {
		if events[i*2].Stage != s || events[i*2+1].Stage != s {
			t.Fatalf("events out of order at stage %s", s)
		}
	}

	buf.Close()
	buf.Emit(Event{Stage: TerminalStage, Status: OutcomeSucceeded})
	events, done = buf.Snapshot()
	if !done {
		t.Fatal("expected done after close")
	}
	if len(events) != 6 {
		t.Fatalf("emit after close must be a no-op, got %d events", len(events))
	}
}

func TestBufferSnapshotIsACopy(t *testing.T) {
	buf := NewBuffer()
	buf.Emit(Event{Stage: StageBlend, Status: EventStarted})

	first, _ := buf.Snapshot()
	first[0].Status = "mutated"

	second, _ := buf.Snapshot()
	if second[0].Status != EventStarted {
		t.Fatal("snapshot must not share backing storage")
	}
}

func TestMultiSinkFansOut(t *testing.T) {
	buf1 := NewBuffer()
	buf2 := NewBuffer()
	multi := NewMultiSink(buf1, nil, buf2)

	multi.Emit(Event{Stage: StageBlend, Status: EventStarted})
	multi.Close()

	for i, buf := range []*Buffer{buf1, buf2} {
		events, done := buf.Snapshot()
		if len(events) != 1 {
			t.Fatalf("sink %d: expected 1 event, got %d", i, len(events))
		}
		if !done {
			t.Fatalf("sink %d: expected closed", i)
		}
	}
}
