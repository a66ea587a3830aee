package app

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5"

	"github.com/jonasbb/buildgrid/internal/ctxlog"
	"github.com/jonasbb/buildgrid/internal/dag"
	"github.com/jonasbb/buildgrid/internal/pipeline"
)

// Run executes one pipeline invocation: expand, gate, execute, summarize,
// then tag and publish when the release predicate holds. The returned error
// is non-nil whenever the run must exit non-zero.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if appConfig.HealthcheckPort > 0 {
		a.startHealthcheckServer(appConfig.HealthcheckPort)
	}

	commit := appConfig.Commit
	if commit == "" {
		head, err := resolveHead(appConfig.RepoPath)
		if err != nil {
			return fmt.Errorf("no commit given and HEAD not resolvable: %w", err)
		}
		commit = head
		a.logger.Debug("Commit resolved from repository HEAD.", "commit", commit)
	}

	run := pipeline.NewRun(appConfig.Branch, commit)

	graph, err := dag.Build(a.pipe, a.jobs)
	if err != nil {
		return fmt.Errorf("failed to build stage graph: %w", err)
	}
	a.logger.Debug("Stage graph built.", "cells", len(graph.Nodes))

	if appConfig.DryRun {
		return a.printPlan(run)
	}

	a.phase.Store("executing")
	a.logger.Info("🚀 Starting pipeline run", "pipeline", a.pipe.Name, "branch", run.Branch, "commit", run.Commit, "cells", len(graph.Nodes))
	exec := dag.NewExecutor(graph, appConfig.WorkerCount, a.runner, run)
	execErr := exec.Run(ctx)

	a.summarize(run)

	if execErr != nil {
		a.phase.Store("failed")
		return execErr
	}

	a.phase.Store("releasing")
	if err := a.releasePhase(ctx, run, appConfig); err != nil {
		a.phase.Store("failed")
		return err
	}

	a.phase.Store("done")
	a.logger.Info("🏁 Pipeline run finished.")
	return nil
}

// summarize logs the per-cell outcome table for the run.
func (a *App) summarize(run *pipeline.Run) {
	for _, st := range a.pipe.Stages {
		for _, job := range a.jobs {
			a.logger.Info("Stage outcome",
				"stage", st.Name,
				"job", job.ID(),
				"outcome", run.Results.Outcome(st.Name, job).String(),
			)
		}
	}
}

// resolveHead returns the HEAD commit of the repository at path.
func resolveHead(path string) (string, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		return "", err
	}
	return head.Hash().String(), nil
}
