package provider

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type scriptedPoller struct {
	tasks []AsyncTask
	calls int
}

func (s *scriptedPoller) Poll(_ context.Context, taskID string) (*AsyncTask, error) {
	idx := s.calls
	if idx >= len(s.tasks) {
		idx = len(s.tasks) - 1
	}
	s.calls++
	task := s.tasks[idx]
	task.ID = taskID
	return &task, nil
}

func fastPollConfig(maxAttempts int) PollConfig {
	return PollConfig{Interval: time.Millisecond, MaxAttempts: maxAttempts}
}

func TestWaitForTaskReturnsOutputOnSuccess(t *testing.T) {
	poller := &scriptedPoller{tasks: []AsyncTask{
		{Status: TaskStatusPending},
		{Status: TaskStatusRunning, Progress: 0.5},
		{Status: TaskStatusSucceeded, Output: "https://cdn.example/fusion.png"},
	}}

	output, err := WaitForTask(context.Background(), poller, "task-1", fastPollConfig(10))
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if output != "https://cdn.example/fusion.png" {
		t.Fatalf("unexpected output %q", output)
	}
	if poller.calls != 3 {
		t.Fatalf("expected 3 polls, got %d", poller.calls)
	}
}

func TestWaitForTaskFailsOnTaskError(t *testing.T) {
	wantErr := errors.New("model exploded")
	poller := &scriptedPoller{tasks: []AsyncTask{
		{Status: TaskStatusRunning},
		{Status: TaskStatusFailed, Error: wantErr},
	}}

	_, err := WaitForTask(context.Background(), poller, "task-2", fastPollConfig(10))
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected task error, got %v", err)
	}
}

func TestWaitForTaskExceedsMaxAttempts(t *testing.T) {
	poller := &scriptedPoller{tasks: []AsyncTask{{Status: TaskStatusRunning}}}

	_, err := WaitForTask(context.Background(), poller, "task-3", fastPollConfig(3))
	if err == nil {
		t.Fatal("expected error after exceeding max attempts")
	}
	if poller.calls != 3 {
		t.Fatalf("expected 3 polls, got %d", poller.calls)
	}
}

func TestWaitForTaskRespectsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	poller := &scriptedPoller{tasks: []AsyncTask{{Status: TaskStatusRunning}}}
	_, err := WaitForTask(ctx, poller, "task-4", PollConfig{Interval: time.Hour, MaxAttempts: 5})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWaitForTaskRequiresTaskID(t *testing.T) {
	_, err := WaitForTask(context.Background(), &scriptedPoller{tasks: []AsyncTask{{}}}, "", fastPollConfig(1))
	if err == nil {
		t.Fatal("expected error for empty task id")
	}
}

func TestMapTaskStatus(t *testing.T) {
	tests := []struct {
		input string
		want  TaskStatus
	}{
		{"starting", TaskStatusPending},
		{"IN_QUEUE", TaskStatusPending},
		{"processing", TaskStatusRunning},
		{"succeeded", TaskStatusSucceeded},
		{"COMPLETED", TaskStatusSucceeded},
		{"failed", TaskStatusFailed},
		{"canceled", TaskStatusCancelled},
		{"something_new", TaskStatusRunning},
	}

	for _, tt := range tests {
		if got := MapTaskStatus(tt.input); got != tt.want {
			t.Fatalf("%s: expected %s, got %s", tt.input, tt.want, got)
		}
	}
}

func TestErrorTransientClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network error", &Error{Provider: "replicate", Message: "dial tcp: timeout"}, true},
		{"rate limit", &Error{Provider: "openai", StatusCode: 429, Message: "slow down"}, true},
		{"server error", &Error{Provider: "gemini", StatusCode: 503, Message: "overloaded"}, true},
		{"bad request", &Error{Provider: "openai", StatusCode: 400, Message: "invalid image"}, false},
		{"unauthorized", &Error{Provider: "replicate", StatusCode: 401, Message: "bad key"}, false},
		{"unclassified error", errors.New("something odd"), true},
	}

	for _, tt := range tests {
		if got := IsTransient(tt.err); got != tt.want {
			t.Fatalf("%s: expected transient=%v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestDecodeReplicateOutput(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"bare string", `"https://cdn.example/a.png"`, "https://cdn.example/a.png", false},
		{"array picks first non-empty", `["", "https://cdn.example/b.png"]`, "https://cdn.example/b.png", false},
		{"empty string", `""`, "", true},
		{"empty array", `[]`, "", true},
		{"object shape", `{"weird": true}`, "", true},
		{"missing output", ``, "", true},
	}

	for _, tt := range tests {
		got, err := decodeReplicateOutput(json.RawMessage(tt.raw))
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error", tt.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tt.name, err)
		}
		if got != tt.want {
			t.Fatalf("%s: expected %q, got %q", tt.name, tt.want, got)
		}
	}
}
