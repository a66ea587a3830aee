// Package testutil provides shared helpers for orchestrator tests: a
// thread-safe log buffer, fake release collaborators, and a scriptable stage
// executor.
package testutil

import (
	"bytes"
	"context"
	"sync"

	"github.com/jonasbb/buildgrid/internal/config"
	"github.com/jonasbb/buildgrid/internal/matrix"
	"github.com/jonasbb/buildgrid/internal/stagerun"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Call records one stage execution observed by the fake executor.
type Call struct {
	Stage string
	Job   matrix.Job
	Spec  *config.StageSpec
}

// FakeExecutor is a scriptable stagerun.Executor. Stages listed in Fail (by
// stage name or by "<stage>@<os>/<toolchain>") return an injected failure;
// everything else succeeds. All calls are recorded.
type FakeExecutor struct {
	mu    sync.Mutex
	calls []Call

	// Fail maps a stage name or cell ID to the error to return.
	Fail map[string]error
}

var _ stagerun.Executor = (*FakeExecutor)(nil)

// RunStage implements stagerun.Executor.
func (f *FakeExecutor) RunStage(ctx context.Context, stage string, spec *config.StageSpec, job matrix.Job) error {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Stage: stage, Job: job, Spec: spec})
	f.mu.Unlock()

	if err, ok := f.Fail[stage+"@"+job.ID()]; ok {
		return err
	}
	if err, ok := f.Fail[stage]; ok {
		return err
	}
	return nil
}

// Calls returns a copy of the recorded stage executions.
func (f *FakeExecutor) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Ran reports whether the given cell was executed.
func (f *FakeExecutor) Ran(stage string, job matrix.Job) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c.Stage == stage && c.Job == job {
			return true
		}
	}
	return false
}

// TagMove records one tag move observed by the fake tagger.
type TagMove struct {
	Name   string
	Commit string
}

// FakeTagger records tag moves and optionally fails them.
type FakeTagger struct {
	mu    sync.Mutex
	moves []TagMove

	Err error
}

// MoveTag implements the app.Tagger interface.
func (f *FakeTagger) MoveTag(ctx context.Context, name, commit string) error {
	f.mu.Lock()
	f.moves = append(f.moves, TagMove{Name: name, Commit: commit})
	f.mu.Unlock()
	return f.Err
}

// Moves returns a copy of the recorded tag moves.
func (f *FakeTagger) Moves() []TagMove {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]TagMove, len(f.moves))
	copy(out, f.moves)
	return out
}

// Publication records one artifact publish observed by the fake publisher.
type Publication struct {
	Name string
	Path string
}

// FakePublisher records publications and optionally fails them.
type FakePublisher struct {
	mu   sync.Mutex
	pubs []Publication

	Err error
}

// Publish implements the app.Publisher interface.
func (f *FakePublisher) Publish(ctx context.Context, name, filePath string) error {
	f.mu.Lock()
	f.pubs = append(f.pubs, Publication{Name: name, Path: filePath})
	f.mu.Unlock()
	return f.Err
}

// Publications returns a copy of the recorded publishes.
func (f *FakePublisher) Publications() []Publication {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Publication, len(f.pubs))
	copy(out, f.pubs)
	return out
}
