package pipeline

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Stage names used by the fusion pipeline.
const (
	StageBlend    = "blend"
	StageDescribe = "describe"
	StageEnhance  = "enhance"
)

// Terminal outcome statuses delivered as the final progress event.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFallback  = "fallback"
)

// Request is the immutable input of one pipeline run.
type Request struct {
	CorrelationID string
	SourceImage1  string
	SourceImage2  string
	HeadName      string
	BodyName      string
	FusionName    string
}

// Outcome is the single terminal result of a run. FinalArtifact is never
// empty: an irrecoverable run falls back to the first source image.
type Outcome struct {
	FinalArtifact string
	IsFallback    bool
	Stages        []StageResult
}

// Status returns the terminal status string for the outcome.
func (o Outcome) Status() string {
	if o.IsFallback {
		return OutcomeFallback
	}
	return OutcomeSucceeded
}

// Config carries every pipeline toggle explicitly; there is no ambient state.
type Config struct {
	EnableBlendStage   bool
	EnableEnhanceStage bool
	BlendTimeout       time.Duration
	DescribeTimeout    time.Duration
	EnhanceTimeout     time.Duration
	MaxRetries         int
	RetryBaseDelay     time.Duration
}

// Runner executes a fixed ordered list of stages for one request at a time.
// Stages run strictly sequentially; the first non-success short-circuits the
// remainder and resolves a fallback outcome.
type Runner struct {
	stages []Stage
}

// NewRunner builds a runner over the given stages, in order.
func NewRunner(stages ...Stage) *Runner {
	return &Runner{stages: stages}
}

// Run always returns exactly one Outcome with a usable artifact; stage errors
// never propagate to the caller. The sink observes one started and one ended
// event per executed stage, then a single terminal event, then the sink is
// closed — regardless of how the run ended.
func (r *Runner) Run(ctx context.Context, req Request, sink Sink) Outcome {
	if sink == nil {
		sink = NopSink{}
	}

	logger := logrus.WithFields(logrus.Fields{
		"correlation_id": req.CorrelationID,
		"head":           req.HeadName,
		"body":           req.BodyName,
	})
	logger.WithField("stages", len(r.stages)).Info("pipeline run started")

	results := make([]StageResult, 0, len(r.stages))
	input := req.SourceImage1
	for _, stage := range r.stages {
		result := RunStage(ctx, stage, input, sink)
		results = append(results, result)
		if result.Status != StageStatusSucceeded {
			logger.WithFields(logrus.Fields{
				"stage":  result.Name,
				"status": result.Status,
			}).Warn("pipeline short-circuited")
			break
		}
		input = result.Output
	}

	outcome := ResolveFallback(req, results)

	sink.Emit(Event{
		Stage:     TerminalStage,
		Status:    outcome.Status(),
		Data:      outcome.FinalArtifact,
		Timestamp: time.Now().UTC(),
	})
	sink.Close()

	logger.WithFields(logrus.Fields{
		"is_fallback": outcome.IsFallback,
		"stages_run":  len(results),
	}).Info("pipeline run finished")

	return outcome
}
