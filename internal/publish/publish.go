// Package publish uploads release artifacts. Publishing under an existing
// release name replaces the previous artifact entirely; uploading identical
// content twice leaves the store in the same observable state as uploading
// once.
package publish

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonasbb/buildgrid/internal/ctxlog"
)

// ErrArtifactMissing reports that the artifact file does not exist: the build
// stage did not produce it. The publisher fails fast rather than uploading an
// empty or partial release.
var ErrArtifactMissing = errors.New("build artifact missing")

// PublishError reports a failed upload. Stage results recorded before the
// release phase stay valid.
type PublishError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e *PublishError) Error() string {
	return fmt.Sprintf("publishing release %q: %v", e.Name, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *PublishError) Unwrap() error { return e.Err }

// Uploader publishes artifacts to an HTTP endpoint by PUTting the file under
// the release name. PUT carries the overwrite semantics: the server replaces
// whatever it previously held under that name.
type Uploader struct {
	baseURL string
	client  *http.Client
}

// NewUploader creates an uploader for the given endpoint. A nil client
// defaults to a plain http.Client; stage uploads are one-shot, so no special
// transport tuning is needed.
func NewUploader(baseURL string, client *http.Client) *Uploader {
	if client == nil {
		client = &http.Client{}
	}
	return &Uploader{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Publish uploads the artifact at filePath under the release name. It must
// only run after the rolling tag points at the released commit; the caller
// enforces that ordering. One attempt, no retry.
func (u *Uploader) Publish(ctx context.Context, name, filePath string) error {
	logger := ctxlog.FromContext(ctx).With("release", name, "artifact", filePath)

	stat, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrArtifactMissing, filePath, err)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return &PublishError{Name: name, Err: fmt.Errorf("opening artifact: %w", err)}
	}
	defer file.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u.baseURL+"/"+name, file)
	if err != nil {
		return &PublishError{Name: name, Err: err}
	}

	contentType := mime.TypeByExtension(filepath.Ext(filePath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = stat.Size()

	logger.Info("Uploading release artifact", "size", stat.Size(), "contentType", contentType)

	resp, err := u.client.Do(req)
	if err != nil {
		return &PublishError{Name: name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &PublishError{Name: name, Err: fmt.Errorf("upload failed with status %s", resp.Status)}
	}

	logger.Info("📦 Release artifact published", "status", resp.Status)
	return nil
}
