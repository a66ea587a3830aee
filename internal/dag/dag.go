// Package dag builds and executes the stage graph of a pipeline run. Each
// node is one (stage, job) cell of the build matrix. Gate declarations are
// run-level: a stage that needs "rustfmt" waits for every matrix cell of
// rustfmt, not just its own cell, before any of its cells may start. Cells
// whose prerequisites do not all succeed are marked skipped and never
// attempted.
package dag

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jonasbb/buildgrid/internal/config"
	"github.com/jonasbb/buildgrid/internal/matrix"
)

// Node is one executable cell of the stage graph.
type Node struct {
	// ID is "<stage>@<os>/<toolchain>", unique within the graph.
	ID    string
	Stage *config.Stage
	Job   matrix.Job

	// Deps are the nodes this node waits for; Dependents the reverse edges.
	Deps       []*Node
	Dependents []*Node

	// depCount is the number of unfinished dependencies. A node becomes
	// ready when it reaches zero.
	depCount atomic.Int32

	// settleOnce guarantees a node that never runs (skipped or cancelled)
	// is accounted for exactly once.
	settleOnce sync.Once
}

// NodeID returns the graph ID for a stage and matrix cell.
func NodeID(stage string, job matrix.Job) string {
	return stage + "@" + job.ID()
}

// Graph is the fully expanded stage graph for one run.
type Graph struct {
	Nodes map[string]*Node
}

// Build expands the pipeline's stages across the matrix cells and wires the
// run-level gate edges. The pipeline is assumed validated (unique stage
// names, resolvable and acyclic needs).
func Build(p *config.Pipeline, jobs []matrix.Job) (*Graph, error) {
	if len(jobs) == 0 {
		return nil, fmt.Errorf("no matrix cells to build a graph from")
	}

	g := &Graph{Nodes: make(map[string]*Node, len(p.Stages)*len(jobs))}
	for _, st := range p.Stages {
		for _, job := range jobs {
			node := &Node{ID: NodeID(st.Name, job), Stage: st, Job: job}
			g.Nodes[node.ID] = node
		}
	}

	for _, node := range g.Nodes {
		for _, need := range node.Stage.Needs {
			for _, job := range jobs {
				dep, ok := g.Nodes[NodeID(need, job)]
				if !ok {
					return nil, fmt.Errorf("stage %q needs unknown stage %q", node.Stage.Name, need)
				}
				node.Deps = append(node.Deps, dep)
				dep.Dependents = append(dep.Dependents, node)
				node.depCount.Add(1)
			}
		}
	}

	return g, nil
}
