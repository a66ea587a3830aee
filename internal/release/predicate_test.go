package release

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonasbb/buildgrid/internal/config"
	"github.com/jonasbb/buildgrid/internal/matrix"
)

var canonicalPolicy = Policy{
	Branch:    "master",
	OS:        "ubuntu-latest",
	Toolchain: "stable",
}

func TestShouldRelease(t *testing.T) {
	tests := []struct {
		name   string
		branch string
		job    matrix.Job
		want   bool
	}{
		{
			name:   "canonical cell on master releases",
			branch: "master",
			job:    matrix.Job{OS: "ubuntu-latest", Toolchain: "stable"},
			want:   true,
		},
		{
			name:   "feature branch never releases",
			branch: "feature/x",
			job:    matrix.Job{OS: "ubuntu-latest", Toolchain: "stable"},
			want:   false,
		},
		{
			name:   "nightly toolchain never releases",
			branch: "master",
			job:    matrix.Job{OS: "ubuntu-latest", Toolchain: "nightly"},
			want:   false,
		},
		{
			name:   "non-canonical os never releases",
			branch: "master",
			job:    matrix.Job{OS: "macos-latest", Toolchain: "stable"},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, canonicalPolicy.ShouldRelease(tt.branch, tt.job))
		})
	}
}

func TestShouldReleaseIsPure(t *testing.T) {
	job := matrix.Job{OS: "ubuntu-latest", Toolchain: "stable"}
	first := canonicalPolicy.ShouldRelease("master", job)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, canonicalPolicy.ShouldRelease("master", job))
	}
}

func TestPolicyFromConfig(t *testing.T) {
	policy := PolicyFromConfig(&config.Release{
		Branch:    "master",
		OS:        "ubuntu-latest",
		Toolchain: "stable",
		Tag:       "latest",
		Name:      "latest",
	})
	assert.Equal(t, canonicalPolicy, policy)
}
