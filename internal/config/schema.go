// Package config defines the HCL pipeline definition language and its loader.
//
// A pipeline file declares the build matrix, the stages to run per matrix
// cell, and the release policy:
//
//	pipeline "ctftimebot" {
//	  matrix {
//	    os        = ["ubuntu-latest"]
//	    toolchain = ["stable", "nightly"]
//	  }
//
//	  stage "rustfmt" {
//	    run = ["cargo", "fmt", "--", "--check"]
//	  }
//
//	  stage "build_and_test" {
//	    needs    = ["rustfmt", "clippy"]
//	    run      = ["cargo", "test", "--release"]
//	    artifact = "target/release/ctftimebot"
//	  }
//
//	  release {
//	    stage      = "build_and_test"
//	    branch     = "master"
//	    os         = "ubuntu-latest"
//	    toolchain  = "stable"
//	    tag        = "latest"
//	    name       = "latest"
//	    upload_url = "https://releases.example.org/ctftimebot"
//	  }
//	}
package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
)

// Matrix declares the build axes. Every stage runs once per cell of the
// cross product.
type Matrix struct {
	OS        []string `hcl:"os"`
	Toolchain []string `hcl:"toolchain"`
}

// Stage declares a named pipeline stage. Everything except the name and the
// gate declaration stays an undecoded body: it is evaluated per matrix cell
// so that run commands and env values can interpolate `matrix.*`.
type Stage struct {
	Name  string   `hcl:"name,label"`
	Needs []string `hcl:"needs,optional"`
	Body  hcl.Body `hcl:",remain"`
}

// StageSpec is the per-cell view of a stage, produced by decoding the stage
// body against a job's evaluation context.
type StageSpec struct {
	Run      []string          `hcl:"run"`
	Env      map[string]string `hcl:"env,optional"`
	Artifact string            `hcl:"artifact,optional"`
}

// Decode evaluates the stage body for one matrix cell.
func (s *Stage) Decode(evalCtx *hcl.EvalContext) (*StageSpec, error) {
	spec := new(StageSpec)
	if diags := gohcl.DecodeBody(s.Body, evalCtx, spec); diags.HasErrors() {
		return nil, fmt.Errorf("stage %q: %w", s.Name, diags)
	}
	if len(spec.Run) == 0 {
		return nil, fmt.Errorf("%w: stage %q has an empty run command", ErrInvalid, s.Name)
	}
	return spec, nil
}

// Release declares the release policy: which cell of which stage qualifies a
// run for tagging and publishing, and where the artifact goes.
type Release struct {
	// Stage names the stage whose success gates the release. Its artifact is
	// published unless Artifact overrides it.
	Stage     string `hcl:"stage"`
	Branch    string `hcl:"branch"`
	OS        string `hcl:"os"`
	Toolchain string `hcl:"toolchain"`
	// Tag is the rolling tag force-moved to the released commit.
	Tag string `hcl:"tag"`
	// Name is the release name the artifact is published under.
	Name      string `hcl:"name"`
	UploadURL string `hcl:"upload_url"`
	Artifact  string `hcl:"artifact,optional"`
}

// Pipeline is the top-level pipeline declaration.
type Pipeline struct {
	Name    string   `hcl:"name,label"`
	Matrix  *Matrix  `hcl:"matrix,block"`
	Stages  []*Stage `hcl:"stage,block"`
	Release *Release `hcl:"release,block"`
}

// Stage returns the declared stage with the given name, or nil.
func (p *Pipeline) Stage(name string) *Stage {
	for _, st := range p.Stages {
		if st.Name == name {
			return st
		}
	}
	return nil
}

// file is the root structure of a single pipeline file.
type file struct {
	Pipelines []*Pipeline `hcl:"pipeline,block"`
}
