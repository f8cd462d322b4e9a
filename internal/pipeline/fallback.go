package pipeline

// ResolveFallback turns the collected stage results into the run's terminal
// outcome. It is the last line of defence: it has no external dependencies and
// cannot fail.
//
// If every executed stage succeeded and at least one stage ran, the last
// stage's output is the final artifact. Otherwise the first source image is
// substituted, trading fidelity for availability.
func ResolveFallback(req Request, results []StageResult) Outcome {
	outcome := Outcome{Stages: results}

	if len(results) > 0 {
		last := results[len(results)-1]
		if last.Status == StageStatusSucceeded && last.Output != "" {
			outcome.FinalArtifact = last.Output
			return outcome
		}
	}

	outcome.IsFallback = true
	outcome.FinalArtifact = req.SourceImage1
	return outcome
}
