package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/jonasbb/buildgrid/internal/config"
	"github.com/jonasbb/buildgrid/internal/ctxlog"
	"github.com/jonasbb/buildgrid/internal/gittag"
	"github.com/jonasbb/buildgrid/internal/matrix"
	"github.com/jonasbb/buildgrid/internal/publish"
	"github.com/jonasbb/buildgrid/internal/stagerun"
)

// Tagger force-moves the rolling release tag.
type Tagger interface {
	MoveTag(ctx context.Context, name, commit string) error
}

// Publisher uploads a release artifact under a release name.
type Publisher interface {
	Publish(ctx context.Context, name, filePath string) error
}

// App encapsulates the orchestrator's dependencies, configuration, and
// lifecycle for one pipeline invocation.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	pipe   *config.Pipeline
	jobs   []matrix.Job

	runner    stagerun.Executor
	tagger    Tagger
	publisher Publisher

	// phase is the coarse run phase exposed by the healthcheck endpoint.
	phase atomic.Value // string
}

// Option overrides a collaborator, primarily for tests.
type Option func(*App)

// WithRunner substitutes the stage executor.
func WithRunner(r stagerun.Executor) Option {
	return func(a *App) { a.runner = r }
}

// WithTagger substitutes the tag manager.
func WithTagger(t Tagger) Option {
	return func(a *App) { a.tagger = t }
}

// WithPublisher substitutes the release publisher.
func WithPublisher(p Publisher) Option {
	return func(a *App) { a.publisher = p }
}

// NewApp is the constructor for the orchestrator. It loads and validates the
// pipeline definition and expands the build matrix. A misconfiguration is a
// fatal startup error and panics; main recovers it into a clean exit.
func NewApp(outW io.Writer, appConfig *Config, opts ...Option) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	pipe, err := config.Load(ctx, appConfig.PipelinePath)
	if err != nil {
		panic(fmt.Errorf("failed to load pipeline definition: %w", err))
	}

	jobs, err := matrix.Expand(pipe.Matrix.OS, pipe.Matrix.Toolchain)
	if err != nil {
		panic(fmt.Errorf("failed to expand build matrix: %w", err))
	}
	logger.Debug("Build matrix expanded.", "cells", len(jobs))

	a := &App{
		outW:   outW,
		logger: logger,
		pipe:   pipe,
		jobs:   jobs,
		runner: &stagerun.ProcessExecutor{
			Dir:             appConfig.RepoPath,
			ToolchainEnvKey: appConfig.ToolchainEnvKey,
		},
		tagger: gittag.NewManager(appConfig.RepoPath, appConfig.Remote),
	}
	if pipe.Release != nil {
		a.publisher = publish.NewUploader(pipe.Release.UploadURL, nil)
	}
	a.phase.Store("configured")

	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Pipeline returns the loaded pipeline definition. Primarily for testing.
func (a *App) Pipeline() *config.Pipeline {
	return a.pipe
}

// Jobs returns the expanded matrix cells. Primarily for testing.
func (a *App) Jobs() []matrix.Job {
	return a.jobs
}
