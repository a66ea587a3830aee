// Package matrix expands the build axes of a pipeline into the concrete set
// of job instances to run. A job instance is the unit of scheduling: every
// stage of the pipeline runs once per instance.
package matrix

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// ErrEmptyAxis reports a matrix axis with no values. An empty axis is a
// misconfiguration, not a valid "run nothing" request.
var ErrEmptyAxis = fmt.Errorf("matrix axis is empty")

// Job is a single cell of the build matrix. Identity is the (OS, Toolchain)
// pair; values are immutable once expanded.
type Job struct {
	OS        string
	Toolchain string
}

// ID returns the stable identifier of the job, used as the matrix-cell part
// of node IDs and result keys.
func (j Job) ID() string {
	return j.OS + "/" + j.Toolchain
}

// String implements fmt.Stringer.
func (j Job) String() string {
	return j.ID()
}

// Expand produces the cross product of the OS and toolchain axes, in stable
// order (OS-major). It has no side effects.
func Expand(oses, toolchains []string) ([]Job, error) {
	if len(oses) == 0 {
		return nil, fmt.Errorf("%w: os", ErrEmptyAxis)
	}
	if len(toolchains) == 0 {
		return nil, fmt.Errorf("%w: toolchain", ErrEmptyAxis)
	}

	jobs := make([]Job, 0, len(oses)*len(toolchains))
	for _, os := range oses {
		for _, tc := range toolchains {
			jobs = append(jobs, Job{OS: os, Toolchain: tc})
		}
	}
	return jobs, nil
}

// EvalContext returns the HCL evaluation context for this job. Stage bodies
// are decoded against it, so a pipeline can interpolate the current cell,
// e.g. run = ["cargo", "+${matrix.toolchain}", "build"].
func (j Job) EvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"matrix": cty.ObjectVal(map[string]cty.Value{
				"os":        cty.StringVal(j.OS),
				"toolchain": cty.StringVal(j.Toolchain),
			}),
		},
	}
}
