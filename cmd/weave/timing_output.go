package main

import (
	"fmt"
	"io"
	"time"

	"weave/internal/buildpipeline"
	"weave/internal/compiler"
)

// printStageTimings writes the phase table of a run, followed by the time
// spent in the success callback when includeRun is set.
func printStageTimings(out io.Writer, outcome compiler.Outcome, includeRun bool) {
	if out == nil {
		return
	}
	if _, err := io.WriteString(out, outcome.Phases.Summary()); err != nil {
		panic(err)
	}
	if includeRun && outcome.Timings.Has(buildpipeline.StageRun) {
		if _, err := fmt.Fprintf(out, "ran %.1f ms\n", toMillis(outcome.Timings.Duration(buildpipeline.StageRun))); err != nil {
			panic(err)
		}
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
