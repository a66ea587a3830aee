package stagerun_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonasbb/buildgrid/internal/config"
	"github.com/jonasbb/buildgrid/internal/matrix"
	"github.com/jonasbb/buildgrid/internal/stagerun"
	"github.com/jonasbb/buildgrid/internal/testutil"
)

var testJob = matrix.Job{OS: "ubuntu-latest", Toolchain: "nightly"}

func TestRunStageSuccess(t *testing.T) {
	ctx, _ := testutil.Context()
	exec := &stagerun.ProcessExecutor{Dir: t.TempDir()}

	err := exec.RunStage(ctx, "noop", &config.StageSpec{Run: []string{"true"}}, testJob)
	require.NoError(t, err)
}

func TestRunStageFailureCarriesExitCode(t *testing.T) {
	ctx, _ := testutil.Context()
	exec := &stagerun.ProcessExecutor{Dir: t.TempDir()}

	err := exec.RunStage(ctx, "broken", &config.StageSpec{Run: []string{"sh", "-c", "exit 3"}}, testJob)
	require.Error(t, err)

	var failure *stagerun.StageFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, "broken", failure.Stage)
	assert.Equal(t, testJob, failure.Job)
	assert.Equal(t, 3, failure.ExitCode)
}

func TestRunStageMissingBinary(t *testing.T) {
	ctx, _ := testutil.Context()
	exec := &stagerun.ProcessExecutor{Dir: t.TempDir()}

	err := exec.RunStage(ctx, "ghost", &config.StageSpec{Run: []string{"definitely-not-a-binary-9f2c"}}, testJob)
	require.Error(t, err)

	var failure *stagerun.StageFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, -1, failure.ExitCode)
}

func TestRunStageExportsToolchainEnv(t *testing.T) {
	ctx, _ := testutil.Context()
	exec := &stagerun.ProcessExecutor{Dir: t.TempDir(), ToolchainEnvKey: "RUSTUP_TOOLCHAIN"}

	spec := &config.StageSpec{Run: []string{"sh", "-c", `test "$RUSTUP_TOOLCHAIN" = nightly`}}
	require.NoError(t, exec.RunStage(ctx, "env-check", spec, testJob))
}

func TestRunStageStageEnvWins(t *testing.T) {
	ctx, _ := testutil.Context()
	exec := &stagerun.ProcessExecutor{Dir: t.TempDir(), ToolchainEnvKey: "RUSTUP_TOOLCHAIN"}

	spec := &config.StageSpec{
		Run: []string{"sh", "-c", `test "$RUSTUP_TOOLCHAIN" = pinned`},
		Env: map[string]string{"RUSTUP_TOOLCHAIN": "pinned"},
	}
	require.NoError(t, exec.RunStage(ctx, "env-override", spec, testJob))
}

func TestRunStageRunsInDir(t *testing.T) {
	ctx, _ := testutil.Context()
	dir := t.TempDir()
	exec := &stagerun.ProcessExecutor{Dir: dir}

	spec := &config.StageSpec{Run: []string{"sh", "-c", "pwd > marker.txt"}}
	require.NoError(t, exec.RunStage(ctx, "pwd", spec, testJob))

	_, err := os.Stat(filepath.Join(dir, "marker.txt"))
	require.NoError(t, err)
}

func TestRunStageSurfacesOutput(t *testing.T) {
	ctx, buf := testutil.Context()
	exec := &stagerun.ProcessExecutor{Dir: t.TempDir()}

	spec := &config.StageSpec{Run: []string{"sh", "-c", "echo compiling ctftimebot"}}
	require.NoError(t, exec.RunStage(ctx, "echo", spec, testJob))

	assert.Contains(t, buf.String(), "compiling ctftimebot")
}
