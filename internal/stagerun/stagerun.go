// Package stagerun executes a single pipeline stage for one matrix cell by
// invoking its external command and mapping the exit status to a pass/fail
// outcome.
package stagerun

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/jonasbb/buildgrid/internal/config"
	"github.com/jonasbb/buildgrid/internal/ctxlog"
	"github.com/jonasbb/buildgrid/internal/matrix"
)

// Executor runs one stage for one job instance. The production implementation
// spawns a process; tests substitute fakes.
type Executor interface {
	RunStage(ctx context.Context, stage string, spec *config.StageSpec, job matrix.Job) error
}

// StageFailure reports a stage whose external command exited non-zero. The
// failure is local to one (stage, job) cell; sibling cells keep running.
type StageFailure struct {
	Stage    string
	Job      matrix.Job
	ExitCode int
	Err      error
}

// Error implements the error interface.
func (f *StageFailure) Error() string {
	return fmt.Sprintf("stage %q failed for %s (exit %d)", f.Stage, f.Job, f.ExitCode)
}

// Unwrap exposes the underlying exec error.
func (f *StageFailure) Unwrap() error {
	return f.Err
}

// ProcessExecutor runs stage commands as child processes.
type ProcessExecutor struct {
	// Dir is the working directory for stage commands, typically the
	// checked-out source tree.
	Dir string
	// ToolchainEnvKey, when set, exports the job's toolchain channel to the
	// process env under this key (e.g. RUSTUP_TOOLCHAIN), so a single command
	// line serves every matrix cell.
	ToolchainEnvKey string
}

// RunStage blocks until the stage command exits. Exit zero maps to nil;
// a non-zero exit maps to *StageFailure. The command's output is not
// swallowed: stdout and stderr are streamed to the run's log sink.
func (e *ProcessExecutor) RunStage(ctx context.Context, stage string, spec *config.StageSpec, job matrix.Job) error {
	logger := ctxlog.FromContext(ctx).With("stage", stage, "job", job.ID())

	cmd := exec.CommandContext(ctx, spec.Run[0], spec.Run[1:]...)
	cmd.Dir = e.Dir
	cmd.Env = buildEnv(e.ToolchainEnvKey, job, spec.Env)
	cmd.Stdout = newLineWriter(logger, "stdout")
	cmd.Stderr = newLineWriter(logger, "stderr")

	logger.Info("▶️ Starting stage", "command", spec.Run)
	err := cmd.Run()
	if err == nil {
		logger.Info("✅ Stage succeeded")
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		logger.Error("Stage command exited non-zero.", "exit_code", exitErr.ExitCode())
		return &StageFailure{Stage: stage, Job: job, ExitCode: exitErr.ExitCode(), Err: err}
	}
	// The command never ran (bad binary, cancelled context, ...). Still a
	// failure of this cell, with exit code -1 as the conventional marker.
	logger.Error("Stage command could not run.", "error", err)
	return &StageFailure{Stage: stage, Job: job, ExitCode: -1, Err: err}
}
