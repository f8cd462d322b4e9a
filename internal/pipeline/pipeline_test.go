package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func collectSink() (*Buffer, Sink) {
	buf := NewBuffer()
	return buf, buf
}

func TestRunnerHappyPath(t *testing.T) {
	req := Request{
		CorrelationID: "run-1",
		SourceImage1:  "img://pikachu",
		SourceImage2:  "img://bulbasaur",
		HeadName:      "Pikachu",
		BodyName:      "Bulbasaur",
	}

	var describeInput string
	runner := NewRunner(
		Stage{Name: StageBlend, Timeout: time.Second, Fn: func(ctx context.Context, input string) (string, error) {
			return "img://blended", nil
		}},
		Stage{Name: StageDescribe, Timeout: time.Second, Fn: func(ctx context.Context, input string) (string, error) {
			describeInput = input
			return "a yellow creature", nil
		}},
		Stage{Name: StageEnhance, Timeout: time.Second, Fn: func(ctx context.Context, input string) (string, error) {
			return "img://enhanced", nil
		}},
	)

	buf, sink := collectSink()
	outcome := runner.Run(context.Background(), req, sink)

	if outcome.IsFallback {
		t.Fatal("expected non-fallback outcome")
	}
	if outcome.FinalArtifact != "img://enhanced" {
		t.Fatalf("expected final artifact from last stage, got %q", outcome.FinalArtifact)
	}
	if describeInput != "img://blended" {
		t.Fatalf("expected describe stage to receive blend output, got %q", describeInput)
	}
	if len(outcome.Stages) != 3 {
		t.Fatalf("expected 3 stage results, got %d", len(outcome.Stages))
	}

	events, done := buf.Snapshot()
	if !done {
		t.Fatal("expected buffer to be closed after terminal event")
	}
	wantOrder := []struct {
		stage  string
		status string
	}{
		{StageBlend, EventStarted},
		{StageBlend, EventSucceeded},
		{StageDescribe, EventStarted},
		{StageDescribe, EventSucceeded},
		{StageEnhance, EventStarted},
		{StageEnhance, EventSucceeded},
		{TerminalStage, OutcomeSucceeded},
	}
	if len(events) != len(wantOrder) {
		t.Fatalf("expected %d events, got %d: %+v", len(wantOrder), len(events), events)
	}
	for i, want := range wantOrder {
		if events[i].Stage != want.stage || events[i].Status != want.status {
			t.Fatalf("event %d: expected %s/%s, got %s/%s", i, want.stage, want.status, events[i].Stage, events[i].Status)
		}
	}
}

func TestRunnerMiddleStageTimeoutShortCircuits(t *testing.T) {
	req := Request{SourceImage1: "img://source-1", SourceImage2: "img://source-2"}

	thirdInvoked := false
	runner := NewRunner(
		Stage{Name: StageBlend, Timeout: time.Second, Fn: func(ctx context.Context, input string) (string, error) {
			return "img://blended", nil
		}},
		Stage{Name: StageDescribe, Timeout: 20 * time.Millisecond, Fn: func(ctx context.Context, input string) (string, error) {
			time.Sleep(500 * time.Millisecond)
			return "too late", nil
		}},
		Stage{Name: StageEnhance, Timeout: time.Second, Fn: func(ctx context.Context, input string) (string, error) {
			thirdInvoked = true
			return "img://enhanced", nil
		}},
	)

	buf, sink := collectSink()
	outcome := runner.Run(context.Background(), req, sink)

	if thirdInvoked {
		t.Fatal("expected third stage to be skipped after timeout")
	}
	if !outcome.IsFallback {
		t.Fatal("expected fallback outcome")
	}
	if outcome.FinalArtifact != req.SourceImage1 {
		t.Fatalf("expected fallback to first source image, got %q", outcome.FinalArtifact)
	}
	if len(outcome.Stages) != 2 {
		t.Fatalf("expected 2 stage results, got %d", len(outcome.Stages))
	}
	if outcome.Stages[1].Status != StageStatusTimedOut {
		t.Fatalf("expected timed_out status, got %s", outcome.Stages[1].Status)
	}

	events, done := buf.Snapshot()
	if !done {
		t.Fatal("expected buffer closed")
	}
	terminals := 0
	for _, ev := range events {
		if ev.Stage == TerminalStage {
			terminals++
			if ev.Status != OutcomeFallback {
				t.Fatalf("expected terminal fallback status, got %s", ev.Status)
			}
		}
	}
	if terminals != 1 {
		t.Fatalf("expected exactly one terminal event, got %d", terminals)
	}
}

func TestRunnerStageFailureNeverPropagates(t *testing.T) {
	req := Request{SourceImage1: "img://source-1"}
	runner := NewRunner(
		Stage{Name: StageBlend, Timeout: time.Second, Fn: func(ctx context.Context, input string) (string, error) {
			return "", errors.New("provider exploded")
		}},
	)

	outcome := runner.Run(context.Background(), req, NopSink{})
	if !outcome.IsFallback {
		t.Fatal("expected fallback outcome")
	}
	if outcome.FinalArtifact == "" {
		t.Fatal("expected non-empty final artifact")
	}
}

func TestRunnerTerminatesWithinTimeoutBudget(t *testing.T) {
	req := Request{SourceImage1: "img://source-1"}
	runner := NewRunner(
		Stage{Name: StageBlend, Timeout: 30 * time.Millisecond, Fn: func(ctx context.Context, input string) (string, error) {
			select {} // never returns
		}},
	)

	start := time.Now()
	outcome := runner.Run(context.Background(), req, NopSink{})
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("run took too long: %s", elapsed)
	}
	if !outcome.IsFallback {
		t.Fatal("expected fallback outcome for hung stage")
	}
}

func TestRunStageDiscardsAbandonedResult(t *testing.T) {
	release := make(chan struct{})
	stage := Stage{
		Name:    StageBlend,
		Timeout: 10 * time.Millisecond,
		Fn: func(ctx context.Context, input string) (string, error) {
			<-release
			return "img://late", nil
		},
	}

	result := RunStage(context.Background(), stage, "in", NopSink{})
	if result.Status != StageStatusTimedOut {
		t.Fatalf("expected timed_out, got %s", result.Status)
	}
	if result.Output != "" {
		t.Fatalf("expected empty output for timed out stage, got %q", result.Output)
	}
	close(release) // the abandoned goroutine finishes into a buffered channel
}

func TestResolveFallback(t *testing.T) {
	req := Request{SourceImage1: "img://first", SourceImage2: "img://second"}

	tests := []struct {
		name         string
		results      []StageResult
		wantFallback bool
		wantArtifact string
	}{
		{
			name:         "no stages ran",
			results:      nil,
			wantFallback: true,
			wantArtifact: "img://first",
		},
		{
			name: "final stage succeeded",
			results: []StageResult{
				{Name: StageBlend, Status: StageStatusSucceeded, Output: "img://blend"},
				{Name: StageEnhance, Status: StageStatusSucceeded, Output: "img://enhanced"},
			},
			wantFallback: false,
			wantArtifact: "img://enhanced",
		},
		{
			name: "final stage failed",
			results: []StageResult{
				{Name: StageBlend, Status: StageStatusSucceeded, Output: "img://blend"},
				{Name: StageEnhance, Status: StageStatusFailed, Err: fmt.Errorf("boom")},
			},
			wantFallback: true,
			wantArtifact: "img://first",
		},
		{
			name: "final stage timed out",
			results: []StageResult{
				{Name: StageBlend, Status: StageStatusTimedOut},
			},
			wantFallback: true,
			wantArtifact: "img://first",
		},
		{
			name: "succeeded with empty output still falls back",
			results: []StageResult{
				{Name: StageBlend, Status: StageStatusSucceeded, Output: ""},
			},
			wantFallback: true,
			wantArtifact: "img://first",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := ResolveFallback(req, tt.results)
			if outcome.IsFallback != tt.wantFallback {
				t.Fatalf("expected fallback=%v, got %v", tt.wantFallback, outcome.IsFallback)
			}
			if outcome.FinalArtifact != tt.wantArtifact {
				t.Fatalf("expected artifact %q, got %q", tt.wantArtifact, outcome.FinalArtifact)
			}
		})
	}
}
