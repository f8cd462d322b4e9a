package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultStageTimeout bounds stages that do not declare their own timeout.
const DefaultStageTimeout = 2 * time.Minute

// StageStatus is the outcome classification of a single stage run.
type StageStatus string

const (
	StageStatusSucceeded StageStatus = "succeeded"
	StageStatusFailed    StageStatus = "failed"
	StageStatusTimedOut  StageStatus = "timed_out"
)

// StageFunc is one unit of work: it receives the previous stage's output and
// produces the next artifact. Implementations must be safe to invoke more than
// once because retry wrapping may re-run them.
type StageFunc func(ctx context.Context, input string) (string, error)

// Stage is a named pipeline step bounded by a timeout.
type Stage struct {
	Name    string
	Timeout time.Duration
	Fn      StageFunc
}

// StageResult records how one stage run ended.
type StageResult struct {
	Name     string
	Status   StageStatus
	Output   string
	Err      error
	Duration time.Duration
}

type stageReturn struct {
	output string
	err    error
}

// RunStage executes a single stage, racing the work against the stage timeout.
// A timed-out call is abandoned: its eventual result is discarded, not awaited.
// One started event and exactly one terminal stage event are pushed to sink.
func RunStage(ctx context.Context, stage Stage, input string, sink Sink) StageResult {
	if sink == nil {
		sink = NopSink{}
	}
	timeout := stage.Timeout
	if timeout <= 0 {
		timeout = DefaultStageTimeout
	}

	sink.Emit(Event{Stage: stage.Name, Status: EventStarted, Timestamp: time.Now().UTC()})
	start := time.Now()

	// 缓冲为 1，被放弃的调用写入后直接被 GC，不会泄漏 goroutine。
	done := make(chan stageReturn, 1)
	go func() {
		out, err := stage.Fn(ctx, input)
		done <- stageReturn{output: out, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	result := StageResult{Name: stage.Name}

	select {
	case ret := <-done:
		result.Duration = time.Since(start)
		if ret.err != nil {
			result.Status = StageStatusFailed
			result.Err = ret.err
		} else {
			result.Status = StageStatusSucceeded
			result.Output = ret.output
		}
	case <-timer.C:
		result.Duration = time.Since(start)
		result.Status = StageStatusTimedOut
		result.Err = fmt.Errorf("stage %s exceeded timeout of %s", stage.Name, timeout)
	}

	event := Event{Stage: stage.Name, Timestamp: time.Now().UTC()}
	switch result.Status {
	case StageStatusSucceeded:
		event.Status = EventSucceeded
	case StageStatusTimedOut:
		event.Status = EventTimedOut
		event.Error = result.Err.Error()
	default:
		event.Status = EventFailed
		event.Error = result.Err.Error()
	}
	sink.Emit(event)

	logrus.WithFields(logrus.Fields{
		"stage":    stage.Name,
		"status":   result.Status,
		"duration": result.Duration.String(),
	}).Debug("pipeline stage finished")

	return result
}
