package app

import (
	"fmt"
	"strings"

	"github.com/jonasbb/buildgrid/internal/pipeline"
	"github.com/jonasbb/buildgrid/internal/release"
)

// printPlan writes the execution plan for a dry run: the expanded matrix,
// each stage with its gates, and the release decision per cell. Nothing is
// executed.
func (a *App) printPlan(run *pipeline.Run) error {
	fmt.Fprintf(a.outW, "Pipeline %q on branch %q at commit %s\n", a.pipe.Name, run.Branch, run.Commit)

	fmt.Fprintf(a.outW, "\nMatrix (%d cells):\n", len(a.jobs))
	for _, job := range a.jobs {
		fmt.Fprintf(a.outW, "  %s\n", job.ID())
	}

	fmt.Fprintf(a.outW, "\nStages:\n")
	for _, st := range a.pipe.Stages {
		if len(st.Needs) == 0 {
			fmt.Fprintf(a.outW, "  %s\n", st.Name)
			continue
		}
		fmt.Fprintf(a.outW, "  %s (after %s, all cells)\n", st.Name, strings.Join(st.Needs, ", "))
	}

	if a.pipe.Release == nil {
		fmt.Fprintf(a.outW, "\nNo release block declared.\n")
		return nil
	}

	policy := release.PolicyFromConfig(a.pipe.Release)
	fmt.Fprintf(a.outW, "\nRelease decision (tag %q, release %q):\n", a.pipe.Release.Tag, a.pipe.Release.Name)
	for _, job := range a.jobs {
		verdict := "no"
		if policy.ShouldRelease(run.Branch, job) {
			verdict = fmt.Sprintf("yes, after %s succeeds", a.pipe.Release.Stage)
		}
		fmt.Fprintf(a.outW, "  %s: %s\n", job.ID(), verdict)
	}
	return nil
}
