// Package release decides whether a run qualifies for tagging and artifact
// publication.
package release

import (
	"github.com/jonasbb/buildgrid/internal/config"
	"github.com/jonasbb/buildgrid/internal/matrix"
)

// Policy is the release-gating policy of a pipeline: a release fires only
// from the named branch, and only for the single canonical matrix cell. The
// cell restriction prevents duplicate releases when the matrix fans out, and
// keeps nightly-channel builds out of distribution.
type Policy struct {
	Branch    string
	OS        string
	Toolchain string
}

// PolicyFromConfig extracts the policy from a release block.
func PolicyFromConfig(rel *config.Release) Policy {
	return Policy{
		Branch:    rel.Branch,
		OS:        rel.OS,
		Toolchain: rel.Toolchain,
	}
}

// ShouldRelease is a pure predicate over the trigger branch and the matrix
// cell. It ignores result history entirely; the caller is responsible for
// only consulting it after the gating stage succeeded. A matrix that contains
// no qualifying cell simply releases nothing, which is a valid outcome.
func (p Policy) ShouldRelease(branch string, job matrix.Job) bool {
	return branch == p.Branch &&
		job.Toolchain == p.Toolchain &&
		job.OS == p.OS
}
