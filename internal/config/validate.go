package config

import (
	"errors"
	"fmt"
)

// ErrInvalid marks a pipeline definition that fails validation. All
// configuration errors wrap it, so callers can treat the whole class as
// fatal-before-execution.
var ErrInvalid = errors.New("invalid pipeline configuration")

// Validate checks the structural integrity of a pipeline: non-empty matrix
// axes, unique stage names, resolvable and acyclic gate declarations, and a
// release policy that references a declared stage. Per-cell decoding of stage
// bodies is deliberately not done here; expressions are validated when the
// matrix cell they run under is known.
func Validate(p *Pipeline) error {
	if p.Matrix == nil {
		return fmt.Errorf("%w: pipeline %q has no matrix block", ErrInvalid, p.Name)
	}
	if len(p.Matrix.OS) == 0 {
		return fmt.Errorf("%w: matrix os axis is empty", ErrInvalid)
	}
	if len(p.Matrix.Toolchain) == 0 {
		return fmt.Errorf("%w: matrix toolchain axis is empty", ErrInvalid)
	}
	if len(p.Stages) == 0 {
		return fmt.Errorf("%w: pipeline %q declares no stages", ErrInvalid, p.Name)
	}

	seen := make(map[string]*Stage, len(p.Stages))
	for _, st := range p.Stages {
		if st.Name == "" {
			return fmt.Errorf("%w: stage with empty name", ErrInvalid)
		}
		if _, dup := seen[st.Name]; dup {
			return fmt.Errorf("%w: duplicate stage %q", ErrInvalid, st.Name)
		}
		seen[st.Name] = st
	}

	for _, st := range p.Stages {
		for _, need := range st.Needs {
			if need == st.Name {
				return fmt.Errorf("%w: stage %q depends on itself", ErrInvalid, st.Name)
			}
			if _, ok := seen[need]; !ok {
				return fmt.Errorf("%w: stage %q needs unknown stage %q", ErrInvalid, st.Name, need)
			}
		}
	}

	if err := checkAcyclic(p.Stages); err != nil {
		return err
	}

	if p.Release != nil {
		if _, ok := seen[p.Release.Stage]; !ok {
			return fmt.Errorf("%w: release gates on unknown stage %q", ErrInvalid, p.Release.Stage)
		}
		if p.Release.Tag == "" || p.Release.Name == "" {
			return fmt.Errorf("%w: release block requires tag and name", ErrInvalid)
		}
	}

	return nil
}

// checkAcyclic walks the needs graph depth-first and rejects cycles.
func checkAcyclic(stages []*Stage) error {
	byName := make(map[string]*Stage, len(stages))
	for _, st := range stages {
		byName[st.Name] = st
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(stages))

	var visit func(st *Stage) error
	visit = func(st *Stage) error {
		switch state[st.Name] {
		case visiting:
			return fmt.Errorf("%w: dependency cycle through stage %q", ErrInvalid, st.Name)
		case done:
			return nil
		}
		state[st.Name] = visiting
		for _, need := range st.Needs {
			if err := visit(byName[need]); err != nil {
				return err
			}
		}
		state[st.Name] = done
		return nil
	}

	for _, st := range stages {
		if err := visit(st); err != nil {
			return err
		}
	}
	return nil
}
