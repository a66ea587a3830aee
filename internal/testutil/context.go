package testutil

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jonasbb/buildgrid/internal/config"
	"github.com/jonasbb/buildgrid/internal/ctxlog"
)

// Context returns a background context carrying a debug logger that writes
// into the returned SafeBuffer.
func Context() (context.Context, *SafeBuffer) {
	buf := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.WithLogger(context.Background(), logger), buf
}

// LoadPipeline writes the given HCL to a temp file and loads it through the
// regular pipeline loader.
func LoadPipeline(t *testing.T, pipelineHCL string) *config.Pipeline {
	t.Helper()
	ctx, _ := Context()

	path := filepath.Join(t.TempDir(), "pipeline.hcl")
	require.NoError(t, os.WriteFile(path, []byte(pipelineHCL), 0o644))

	pipe, err := config.Load(ctx, path)
	require.NoError(t, err)
	return pipe
}
