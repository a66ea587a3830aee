package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jonasbb/buildgrid/internal/app"
)

// Harness wires a complete pipeline invocation against fake collaborators:
// stages execute through a scriptable fake, and tag moves and publishes are
// recorded instead of hitting git or the network.
type Harness struct {
	Config    *app.Config
	Executor  *FakeExecutor
	Tagger    *FakeTagger
	Publisher *FakePublisher
}

// HarnessResult holds the outcomes of a harness run.
type HarnessResult struct {
	LogOutput string
	Err       error
	Executor  *FakeExecutor
	Tagger    *FakeTagger
	Publisher *FakePublisher
}

// HarnessOption tweaks the harness before the run.
type HarnessOption func(*Harness)

// WithBranch overrides the trigger branch (default "master").
func WithBranch(branch string) HarnessOption {
	return func(h *Harness) { h.Config.Branch = branch }
}

// WithFailure scripts the fake executor to fail a stage (by name or by
// "<stage>@<os>/<toolchain>" cell ID).
func WithFailure(key string, err error) HarnessOption {
	return func(h *Harness) {
		if h.Executor.Fail == nil {
			h.Executor.Fail = make(map[string]error)
		}
		h.Executor.Fail[key] = err
	}
}

// WithDryRun switches the run to plan-only mode.
func WithDryRun() HarnessOption {
	return func(h *Harness) { h.Config.DryRun = true }
}

// WithTagError makes every tag move fail with err.
func WithTagError(err error) HarnessOption {
	return func(h *Harness) { h.Tagger.Err = err }
}

// WithPublishError makes every publish fail with err.
func WithPublishError(err error) HarnessOption {
	return func(h *Harness) { h.Publisher.Err = err }
}

// TestCommit is the commit SHA the harness runs at.
const TestCommit = "0123456789012345678901234567890123456789"

// RunPipelineTest writes the given HCL to a temp dir and drives a full
// app.Run against the fakes.
func RunPipelineTest(t *testing.T, pipelineHCL string, opts ...HarnessOption) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	pipelinePath := filepath.Join(tmpDir, "pipeline.hcl")
	require.NoError(t, os.WriteFile(pipelinePath, []byte(pipelineHCL), 0o644))

	appConfig, err := app.NewConfig(app.Config{
		PipelinePath: pipelinePath,
		Branch:       "master",
		Commit:       TestCommit,
		RepoPath:     tmpDir,
		LogFormat:    "text",
		LogLevel:     "debug",
		WorkerCount:  4,
	})
	require.NoError(t, err)

	h := &Harness{
		Config:    appConfig,
		Executor:  &FakeExecutor{},
		Tagger:    &FakeTagger{},
		Publisher: &FakePublisher{},
	}
	for _, opt := range opts {
		opt(h)
	}

	logBuffer := &SafeBuffer{}

	var testApp *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		testApp = app.NewApp(logBuffer, h.Config,
			app.WithRunner(h.Executor),
			app.WithTagger(h.Tagger),
			app.WithPublisher(h.Publisher),
		)
	}()

	if panicErr != nil {
		return &HarnessResult{
			LogOutput: logBuffer.String(),
			Err:       fmt.Errorf("application startup panicked | %v", panicErr),
			Executor:  h.Executor,
			Tagger:    h.Tagger,
			Publisher: h.Publisher,
		}
	}

	runErr := testApp.Run(context.Background(), h.Config)

	return &HarnessResult{
		LogOutput: logBuffer.String(),
		Err:       runErr,
		Executor:  h.Executor,
		Tagger:    h.Tagger,
		Publisher: h.Publisher,
	}
}
