package gittag_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/client"
	"github.com/go-git/go-git/v5/plumbing/transport/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonasbb/buildgrid/internal/gittag"
	"github.com/jonasbb/buildgrid/internal/testutil"
)

// TestMain serves "file" remotes in-process so pushes do not depend on a git
// binary being installed.
func TestMain(m *testing.M) {
	client.InstallProtocol("file", server.NewClient(server.DefaultLoader))
	os.Exit(m.Run())
}

// testRepo is a local repository with a bare "origin" standing in for the
// remote side.
type testRepo struct {
	path     string
	barePath string
	repo     *git.Repository
	bare     *git.Repository
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()

	barePath := filepath.Join(t.TempDir(), "origin.git")
	bare, err := git.PlainInit(barePath, true)
	require.NoError(t, err)

	path := t.TempDir()
	repo, err := git.PlainInit(path, false)
	require.NoError(t, err)

	_, err = repo.CreateRemote(&gitcfg.RemoteConfig{
		Name: "origin",
		URLs: []string{barePath},
	})
	require.NoError(t, err)

	return &testRepo{path: path, barePath: barePath, repo: repo, bare: bare}
}

// commit writes a file and commits it, returning the commit hash.
func (r *testRepo) commit(t *testing.T, name, content string) string {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(r.path, name), []byte(content), 0o644))
	w, err := r.repo.Worktree()
	require.NoError(t, err)
	_, err = w.Add(name)
	require.NoError(t, err)

	hash, err := w.Commit("add "+name, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "buildgrid-test",
			Email: "buildgrid@localhost",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)
	return hash.String()
}

func tagTarget(t *testing.T, repo *git.Repository, name string) string {
	t.Helper()
	ref, err := repo.Reference(plumbing.NewTagReferenceName(name), true)
	require.NoError(t, err)
	return ref.Hash().String()
}

func TestMoveTagCreatesAndPushes(t *testing.T) {
	ctx, _ := testutil.Context()
	r := newTestRepo(t)
	commit := r.commit(t, "main.rs", "fn main() {}")

	mgr := gittag.NewManager(r.path, "origin")
	require.NoError(t, mgr.MoveTag(ctx, "latest", commit))

	assert.Equal(t, commit, tagTarget(t, r.repo, "latest"))
	assert.Equal(t, commit, tagTarget(t, r.bare, "latest"))
}

func TestMoveTagIsIdempotent(t *testing.T) {
	ctx, _ := testutil.Context()
	r := newTestRepo(t)
	commit := r.commit(t, "main.rs", "fn main() {}")

	mgr := gittag.NewManager(r.path, "origin")
	require.NoError(t, mgr.MoveTag(ctx, "latest", commit))
	// The second move is a no-op with respect to observable state.
	require.NoError(t, mgr.MoveTag(ctx, "latest", commit))

	assert.Equal(t, commit, tagTarget(t, r.repo, "latest"))
	assert.Equal(t, commit, tagTarget(t, r.bare, "latest"))
}

func TestMoveTagOverwritesRollingPointer(t *testing.T) {
	ctx, _ := testutil.Context()
	r := newTestRepo(t)
	first := r.commit(t, "main.rs", "fn main() {}")
	second := r.commit(t, "lib.rs", "pub fn run() {}")

	mgr := gittag.NewManager(r.path, "origin")
	require.NoError(t, mgr.MoveTag(ctx, "latest", first))
	require.NoError(t, mgr.MoveTag(ctx, "latest", second))

	// Last writer wins on both sides, no history retained.
	assert.Equal(t, second, tagTarget(t, r.repo, "latest"))
	assert.Equal(t, second, tagTarget(t, r.bare, "latest"))
}

func TestMoveTagUnresolvableCommit(t *testing.T) {
	ctx, _ := testutil.Context()
	r := newTestRepo(t)
	r.commit(t, "main.rs", "fn main() {}")

	mgr := gittag.NewManager(r.path, "origin")
	err := mgr.MoveTag(ctx, "latest", "refs/heads/does-not-exist")
	require.Error(t, err)

	var tagErr *gittag.TagError
	require.ErrorAs(t, err, &tagErr)
	assert.Equal(t, "latest", tagErr.Name)
}

func TestMoveTagPushFailureKeepsLocalMove(t *testing.T) {
	ctx, _ := testutil.Context()
	r := newTestRepo(t)
	commit := r.commit(t, "main.rs", "fn main() {}")

	// Point origin at a path that does not exist.
	require.NoError(t, r.repo.DeleteRemote("origin"))
	_, err := r.repo.CreateRemote(&gitcfg.RemoteConfig{
		Name: "origin",
		URLs: []string{filepath.Join(t.TempDir(), "missing.git")},
	})
	require.NoError(t, err)

	mgr := gittag.NewManager(r.path, "origin")
	err = mgr.MoveTag(ctx, "latest", commit)
	require.Error(t, err)

	var remoteErr *gittag.RemoteUpdateError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "origin", remoteErr.Remote)

	// The local tag was moved and stays moved.
	assert.Equal(t, commit, tagTarget(t, r.repo, "latest"))
}

func TestMoveTagRepositoryMissing(t *testing.T) {
	ctx, _ := testutil.Context()
	mgr := gittag.NewManager(filepath.Join(t.TempDir(), "nowhere"), "origin")

	err := mgr.MoveTag(ctx, "latest", "HEAD")
	var tagErr *gittag.TagError
	require.ErrorAs(t, err, &tagErr)
}
