package pipeline

import (
	"fmt"
	"sync"

	"github.com/jonasbb/buildgrid/internal/matrix"
)

// Store is an in-memory, concurrency-safe record of stage results. It uses
// sync.Map because the key space is known upfront (all cells of the matrix)
// while values are written concurrently by executor workers.
type Store struct {
	results sync.Map // key: stage + "@" + job ID, value: *StageResult
}

// NewStore creates an empty result store.
func NewStore() *Store {
	return &Store{}
}

func storeKey(stage string, job matrix.Job) string {
	return stage + "@" + job.ID()
}

// Record stores the result of a cell. Each (stage, job) cell produces exactly
// one result per run; recording a second one is a programmer error.
func (s *Store) Record(res *StageResult) error {
	if _, loaded := s.results.LoadOrStore(storeKey(res.Stage, res.Job), res); loaded {
		return fmt.Errorf("duplicate result for %s@%s", res.Stage, res.Job.ID())
	}
	return nil
}

// Get returns the recorded result for a cell, or nil if the cell has not
// reported yet.
func (s *Store) Get(stage string, job matrix.Job) *StageResult {
	v, ok := s.results.Load(storeKey(stage, job))
	if !ok {
		return nil
	}
	return v.(*StageResult)
}

// Outcome returns the recorded outcome for a cell, or OutcomePending if the
// cell has not reported.
func (s *Store) Outcome(stage string, job matrix.Job) Outcome {
	if res := s.Get(stage, job); res != nil {
		return res.Outcome
	}
	return OutcomePending
}

// MayProceed reports whether every required stage has a Success result for
// every job in the run. Dependencies are gated at run granularity: all matrix
// cells of a required stage must succeed before any dependent cell starts. A
// missing or failed prerequisite blocks the gate.
func (s *Store) MayProceed(required []string, jobs []matrix.Job) bool {
	for _, stage := range required {
		for _, job := range jobs {
			if s.Outcome(stage, job) != OutcomeSuccess {
				return false
			}
		}
	}
	return true
}
