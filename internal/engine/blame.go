package engine

import (
	"context"
	"fmt"

	"github.com/xab-mack/jvmdeps/internal/buildgraph"
	"github.com/xab-mack/jvmdeps/internal/model"
)

// Blame is the concrete reference that justifies a computed edge.
type Blame struct {
	Source   model.SourceKey
	Artifact model.ArtifactID
}

// Blame finds the first source of from, in declaration order, that references
// a class produced by to. ok is false when no such reference was recorded,
// which happens for edges that only exist through package references.
func (cg *ComputedGraph) Blame(from *buildgraph.Target, to model.TargetID) (Blame, bool) {
	for _, key := range from.SourceKeys() {
		for _, a := range model.Sorted(cg.Artifacts.DepsBySource[key]) {
			if cg.Artifacts.TargetsByArtifact[a].Has(to) {
				return Blame{Source: key, Artifact: a}, true
			}
		}
	}
	return Blame{}, false
}

// Blame computes the graph if needed and blames the edge from -> to.
func (e *Engine) Blame(ctx context.Context, from, to model.TargetID) (Blame, bool, error) {
	t, ok := e.graph.Target(from)
	if !ok {
		return Blame{}, false, fmt.Errorf("%w: %s", buildgraph.ErrUnknownTarget, from)
	}
	cg, err := e.Compute(ctx)
	if err != nil {
		return Blame{}, false, err
	}
	b, ok := cg.Blame(t, to)
	return b, ok, nil
}
