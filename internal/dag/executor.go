package dag

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jonasbb/buildgrid/internal/ctxlog"
	"github.com/jonasbb/buildgrid/internal/pipeline"
	"github.com/jonasbb/buildgrid/internal/stagerun"
)

// Executor drains the stage graph with a pool of concurrent workers and
// records one StageResult per cell into the run's store. A failing cell does
// not abort sibling cells; only its dependents are skipped.
type Executor struct {
	graph      *Graph
	numWorkers int
	runner     stagerun.Executor
	run        *pipeline.Run

	wg sync.WaitGroup
}

// NewExecutor creates an executor for one run of the given graph.
func NewExecutor(graph *Graph, workers int, runner stagerun.Executor, run *pipeline.Run) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{graph: graph, numWorkers: workers, runner: runner, run: run}
}

// Run executes the entire graph and blocks until every cell has settled.
// It returns nil when every cell succeeded; otherwise an error naming the
// failed cells, with the first real failure as the wrapped root cause.
// Skipped cells are symptoms of an upstream failure and never the cause.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	readyChan := make(chan *Node, len(e.graph.Nodes))

	logger.Debug("Seeding executor with gate-free cells...")
	rootCount := 0
	for _, node := range e.graph.Nodes {
		if node.depCount.Load() == 0 {
			readyChan <- node
			rootCount++
		}
	}
	logger.Debug("Executor seeded.", "ready", rootCount, "total", len(e.graph.Nodes))

	e.wg.Add(len(e.graph.Nodes))

	logger.Debug("Starting worker pool.", "workers", e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		go e.worker(ctx, readyChan, i)
	}

	e.wg.Wait()
	close(readyChan)
	logger.Debug("All cells settled.")

	var failedCells []string
	var rootCause error
	for _, node := range e.graph.Nodes {
		res := e.run.Results.Get(node.Stage.Name, node.Job)
		if res == nil || res.Outcome != pipeline.OutcomeFailure {
			continue
		}
		failedCells = append(failedCells, node.ID)
		if rootCause == nil {
			rootCause = res.Err
		}
	}

	if rootCause != nil {
		return fmt.Errorf("pipeline failed for %s: %w", strings.Join(failedCells, ", "), rootCause)
	}
	return nil
}

// worker is the processing loop of a single concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *Node, workerID int) {
	logger := ctxlog.FromContext(ctx).With("workerID", workerID)

	for node := range readyChan {
		if ctx.Err() != nil {
			e.settle(node, &pipeline.StageResult{
				Stage:   node.Stage.Name,
				Job:     node.Job,
				Outcome: pipeline.OutcomeFailure,
				Err:     ctx.Err(),
			})
			// Cells gated on this one will never be enqueued; settle them as
			// skipped or Run would wait on them forever.
			e.skipDependents(ctx, node)
			continue
		}

		logger.Debug("Worker picked up cell.", "nodeID", node.ID)
		err := e.executeNode(ctx, node)

		if err != nil {
			e.settle(node, &pipeline.StageResult{
				Stage:   node.Stage.Name,
				Job:     node.Job,
				Outcome: pipeline.OutcomeFailure,
				Err:     err,
			})
			e.skipDependents(ctx, node)
			continue
		}

		e.settle(node, &pipeline.StageResult{
			Stage:   node.Stage.Name,
			Job:     node.Job,
			Outcome: pipeline.OutcomeSuccess,
		})

		for _, dependent := range node.Dependents {
			if dependent.depCount.Add(-1) == 0 {
				logger.Debug("Gate open, unlocking cell.", "dependentID", dependent.ID)
				readyChan <- dependent
			}
		}
	}
}

// executeNode decodes the stage body for the node's matrix cell and runs it.
func (e *Executor) executeNode(ctx context.Context, node *Node) error {
	spec, err := node.Stage.Decode(node.Job.EvalContext())
	if err != nil {
		return err
	}
	return e.runner.RunStage(ctx, node.Stage.Name, spec, node.Job)
}

// settle records the node's result exactly once and releases its WaitGroup
// slot. Ready nodes settle here; nodes that never become ready settle through
// skipDependents.
func (e *Executor) settle(node *Node, res *pipeline.StageResult) {
	node.settleOnce.Do(func() {
		// A duplicate means two paths tried to settle the same cell, which
		// settleOnce rules out; ignore the impossible error.
		_ = e.run.Results.Record(res)
		e.wg.Done()
	})
}

// skipDependents recursively marks every downstream cell as skipped. Skips
// are distinguishable from failures in reporting: the cell was never
// attempted, it did not break.
func (e *Executor) skipDependents(ctx context.Context, node *Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range node.Dependents {
		dep := dependent
		dep.settleOnce.Do(func() {
			logger.Warn("Skipping cell, prerequisite did not succeed.", "nodeID", dep.ID, "prerequisite", node.ID)
			_ = e.run.Results.Record(&pipeline.StageResult{
				Stage:   dep.Stage.Name,
				Job:     dep.Job,
				Outcome: pipeline.OutcomeSkipped,
			})
			e.wg.Done()
			e.skipDependents(ctx, dep)
		})
	}
}
