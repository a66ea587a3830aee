package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jonasbb/buildgrid/internal/config"
	"github.com/jonasbb/buildgrid/internal/matrix"
	"github.com/jonasbb/buildgrid/internal/pipeline"
	"github.com/jonasbb/buildgrid/internal/publish"
	"github.com/jonasbb/buildgrid/internal/release"
)

// releasePhase evaluates the release predicate per matrix cell and, for the
// qualifying cell, moves the rolling tag and then publishes the artifact.
// The tag move strictly precedes the publish: the release is the binary at
// the commit the tag now points to. A run with no qualifying cell releases
// nothing and still succeeds. At most one tag move is attempted per run.
func (a *App) releasePhase(ctx context.Context, run *pipeline.Run, appConfig *Config) error {
	if a.pipe.Release == nil {
		a.logger.Debug("No release block declared, skipping release phase.")
		return nil
	}
	rel := a.pipe.Release
	policy := release.PolicyFromConfig(rel)

	for _, job := range a.jobs {
		if !policy.ShouldRelease(run.Branch, job) {
			continue
		}
		if run.Results.Outcome(rel.Stage, job) != pipeline.OutcomeSuccess {
			// Predicate holds but the gating stage did not succeed; the
			// executor already reported why.
			continue
		}

		a.logger.Info("Release predicate satisfied", "job", job.ID(), "tag", rel.Tag, "release", rel.Name)

		if err := a.tagger.MoveTag(ctx, rel.Tag, run.Commit); err != nil {
			return fmt.Errorf("release aborted: %w", err)
		}

		artifact, err := a.artifactPath(rel, job, appConfig)
		if err != nil {
			return err
		}
		if err := a.publisher.Publish(ctx, rel.Name, artifact); err != nil {
			return err
		}

		// Exactly one canonical cell releases; the loop is done.
		return nil
	}

	a.logger.Info("No matrix cell qualified for release this run.")
	return nil
}

// artifactPath resolves the artifact to publish: the release block's own
// artifact attribute wins, otherwise the gating stage's declared artifact for
// the qualifying cell. Relative paths are anchored at the repo root.
func (a *App) artifactPath(rel *config.Release, job matrix.Job, appConfig *Config) (string, error) {
	path := rel.Artifact
	if path == "" {
		spec, err := a.pipe.Stage(rel.Stage).Decode(job.EvalContext())
		if err != nil {
			return "", fmt.Errorf("resolving release artifact: %w", err)
		}
		path = spec.Artifact
	}
	if path == "" {
		return "", fmt.Errorf("%w: no artifact declared for release stage %q", publish.ErrArtifactMissing, rel.Stage)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(appConfig.RepoPath, path)
	}
	return path, nil
}
