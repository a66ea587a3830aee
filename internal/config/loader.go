package config

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/jonasbb/buildgrid/internal/ctxlog"
	"github.com/jonasbb/buildgrid/internal/fsutil"
)

// Load reads the pipeline definition from path, which may be a single .hcl
// file or a directory searched recursively. Exactly one pipeline block must
// be declared across all files. The returned pipeline has passed Validate.
func Load(ctx context.Context, path string) (*Pipeline, error) {
	logger := ctxlog.FromContext(ctx)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline path %q: %w", path, err)
	}

	var paths []string
	if info.IsDir() {
		paths, err = fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("searching %q for pipeline files: %w", path, err)
		}
	} else {
		paths = []string{path}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no .hcl files found under %q", ErrInvalid, path)
	}
	logger.Debug("Discovered pipeline files.", "count", len(paths))

	parser := hclparse.NewParser()
	var pipelines []*Pipeline
	for _, p := range paths {
		hclFile, diags := parser.ParseHCLFile(p)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse %q: %w", p, diags)
		}
		var f file
		// Top-level decode is context-free; per-cell interpolation happens
		// later when stage bodies are decoded against a job.
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &f); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode %q: %w", p, diags)
		}
		pipelines = append(pipelines, f.Pipelines...)
	}

	if len(pipelines) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one pipeline block, found %d", ErrInvalid, len(pipelines))
	}

	pipe := pipelines[0]
	if err := Validate(pipe); err != nil {
		return nil, err
	}
	logger.Debug("Pipeline definition loaded.", "pipeline", pipe.Name, "stages", len(pipe.Stages))
	return pipe, nil
}
