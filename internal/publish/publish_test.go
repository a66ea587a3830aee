package publish_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonasbb/buildgrid/internal/publish"
	"github.com/jonasbb/buildgrid/internal/testutil"
)

// artifactStore is a minimal release store: one artifact per name, PUT
// replaces.
type artifactStore struct {
	mu       sync.Mutex
	received map[string][]byte
	puts     int
	status   int
}

func newArtifactStore() *artifactStore {
	return &artifactStore{received: make(map[string][]byte), status: http.StatusOK}
}

func (s *artifactStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, _ := io.ReadAll(r.Body)
	s.received[filepath.Base(r.URL.Path)] = body
	s.puts++
	w.WriteHeader(s.status)
}

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ctftimebot")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	return path
}

func TestPublishUploadsArtifact(t *testing.T) {
	ctx, _ := testutil.Context()
	store := newArtifactStore()
	srv := httptest.NewServer(store)
	defer srv.Close()

	artifact := writeArtifact(t, "binary-v1")
	u := publish.NewUploader(srv.URL, nil)
	require.NoError(t, u.Publish(ctx, "latest", artifact))

	assert.Equal(t, []byte("binary-v1"), store.received["latest"])
}

func TestPublishReplacesExistingRelease(t *testing.T) {
	ctx, _ := testutil.Context()
	store := newArtifactStore()
	srv := httptest.NewServer(store)
	defer srv.Close()

	u := publish.NewUploader(srv.URL, nil)
	require.NoError(t, u.Publish(ctx, "latest", writeArtifact(t, "binary-v1")))
	require.NoError(t, u.Publish(ctx, "latest", writeArtifact(t, "binary-v2")))

	// Overwrite, not append: exactly one artifact named "latest" remains.
	assert.Len(t, store.received, 1)
	assert.Equal(t, []byte("binary-v2"), store.received["latest"])
}

func TestPublishIsIdempotent(t *testing.T) {
	ctx, _ := testutil.Context()
	store := newArtifactStore()
	srv := httptest.NewServer(store)
	defer srv.Close()

	artifact := writeArtifact(t, "binary-v1")
	u := publish.NewUploader(srv.URL, nil)
	require.NoError(t, u.Publish(ctx, "latest", artifact))
	require.NoError(t, u.Publish(ctx, "latest", artifact))

	assert.Len(t, store.received, 1)
	assert.Equal(t, []byte("binary-v1"), store.received["latest"])
}

func TestPublishMissingArtifactFailsFast(t *testing.T) {
	ctx, _ := testutil.Context()
	store := newArtifactStore()
	srv := httptest.NewServer(store)
	defer srv.Close()

	u := publish.NewUploader(srv.URL, nil)
	err := u.Publish(ctx, "latest", filepath.Join(t.TempDir(), "never-built"))
	require.ErrorIs(t, err, publish.ErrArtifactMissing)

	// Nothing was uploaded.
	assert.Zero(t, store.puts)
}

func TestPublishServerError(t *testing.T) {
	ctx, _ := testutil.Context()
	store := newArtifactStore()
	store.status = http.StatusInternalServerError
	srv := httptest.NewServer(store)
	defer srv.Close()

	u := publish.NewUploader(srv.URL, nil)
	err := u.Publish(ctx, "latest", writeArtifact(t, "binary-v1"))
	require.Error(t, err)

	var pubErr *publish.PublishError
	require.ErrorAs(t, err, &pubErr)
	assert.Equal(t, "latest", pubErr.Name)
}
