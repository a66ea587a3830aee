package stagerun

import (
	"fmt"
	"os"
	"sort"

	"github.com/jonasbb/buildgrid/internal/matrix"
)

// buildEnv assembles the child process environment: the orchestrator's own
// env, the toolchain selector for the matrix cell, then stage-declared vars.
// Later entries win on conflict; stage vars are appended in sorted order so
// logs stay reproducible.
func buildEnv(toolchainKey string, job matrix.Job, stageEnv map[string]string) []string {
	env := os.Environ()
	if toolchainKey != "" {
		env = append(env, fmt.Sprintf("%s=%s", toolchainKey, job.Toolchain))
	}

	keys := make([]string, 0, len(stageEnv))
	for k := range stageEnv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, fmt.Sprintf("%s=%s", k, stageEnv[k]))
	}
	return env
}
