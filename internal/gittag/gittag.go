// Package gittag maintains the rolling release tag: a single named reference
// that is force-moved to the most recently qualifying commit. The tag keeps
// no history; concurrent runs racing to move it leave it at whichever push
// wins, which is the intended "latest qualifying build" semantics.
package gittag

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/jonasbb/buildgrid/internal/ctxlog"
)

// TagError reports a failure to move the tag locally. No remote state was
// touched.
type TagError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e *TagError) Error() string {
	return fmt.Sprintf("moving tag %q: %v", e.Name, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *TagError) Unwrap() error { return e.Err }

// RemoteUpdateError reports a failed push of an already-moved local tag. The
// local move is deliberately not rolled back; a later run will overwrite both
// sides anyway.
type RemoteUpdateError struct {
	Name   string
	Remote string
	Err    error
}

// Error implements the error interface.
func (e *RemoteUpdateError) Error() string {
	return fmt.Sprintf("pushing tag %q to %q: %v", e.Name, e.Remote, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *RemoteUpdateError) Unwrap() error { return e.Err }

// Manager force-moves tags in a local repository and propagates them to a
// remote.
type Manager struct {
	repoPath string
	remote   string
}

// NewManager creates a tag manager for the repository at repoPath, pushing to
// the named remote ("origin" if empty).
func NewManager(repoPath, remote string) *Manager {
	if remote == "" {
		remote = "origin"
	}
	return &Manager{repoPath: repoPath, remote: remote}
}

// MoveTag force-sets the local tag to the given commit and force-pushes it to
// the remote. There is no conflict check: last writer wins on both sides.
// Moving the tag to the commit it already points at is a no-op, so the
// operation is idempotent. A push failure is reported as *RemoteUpdateError
// and leaves the local tag at the new commit. One attempt, no retry.
func (m *Manager) MoveTag(ctx context.Context, name, commit string) error {
	logger := ctxlog.FromContext(ctx).With("tag", name, "commit", commit)

	repo, err := git.PlainOpen(m.repoPath)
	if err != nil {
		return &TagError{Name: name, Err: fmt.Errorf("opening repository %q: %w", m.repoPath, err)}
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(commit))
	if err != nil {
		return &TagError{Name: name, Err: fmt.Errorf("resolving %q: %w", commit, err)}
	}

	// SetReference overwrites any existing tag of the same name without
	// complaint. That is the contract: the tag is a rolling pointer.
	tagRef := plumbing.NewHashReference(plumbing.NewTagReferenceName(name), *hash)
	if err := repo.Storer.SetReference(tagRef); err != nil {
		return &TagError{Name: name, Err: err}
	}
	logger.Info("🏷️ Local tag moved")

	refSpec := gitcfg.RefSpec(fmt.Sprintf("+refs/tags/%s:refs/tags/%s", name, name))
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: m.remote,
		RefSpecs:   []gitcfg.RefSpec{refSpec},
		Force:      true,
	})
	switch {
	case err == nil:
		logger.Info("🏷️ Tag pushed", "remote", m.remote)
		return nil
	case errors.Is(err, git.NoErrAlreadyUpToDate):
		// The remote tag already points at this commit. Same observable
		// state as a successful push.
		logger.Info("Tag already up to date on remote.", "remote", m.remote)
		return nil
	default:
		return &RemoteUpdateError{Name: name, Remote: m.remote, Err: err}
	}
}
