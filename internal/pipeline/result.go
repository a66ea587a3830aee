// Package pipeline holds the run-scoped data model of the orchestrator: the
// outcome of each (stage, job) cell, the run they belong to, and the
// concurrency-safe store the executor records into.
package pipeline

import (
	"github.com/jonasbb/buildgrid/internal/matrix"
)

// Outcome is the terminal state of a single (stage, job) cell.
type Outcome int32

const (
	// OutcomePending means the cell has not produced a result yet.
	OutcomePending Outcome = iota
	// OutcomeSuccess means the stage process exited zero.
	OutcomeSuccess
	// OutcomeFailure means the stage process exited non-zero or could not run.
	OutcomeFailure
	// OutcomeSkipped means a prerequisite stage did not succeed, so the cell
	// was never attempted. Skipped is not a failure of the cell itself.
	OutcomeSkipped
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// StageResult records the outcome of one stage for one job instance. It is
// written exactly once and never mutated afterwards.
type StageResult struct {
	Stage   string
	Job     matrix.Job
	Outcome Outcome
	// Err carries the cause for a Failure. It is nil for Success and for
	// Skipped (a skip is a derived condition, not an error of this cell).
	Err error
}

// Run describes a single pipeline invocation, triggered by a push event.
type Run struct {
	Branch  string
	Commit  string
	Results *Store
}

// NewRun creates a run with an empty result store.
func NewRun(branch, commit string) *Run {
	return &Run{
		Branch:  branch,
		Commit:  commit,
		Results: NewStore(),
	}
}
