// Package buildgraph holds the declared build graph: targets, their sources,
// and the dependency edges authored in the build manifest.
package buildgraph

import (
	"errors"
	"fmt"

	"github.com/dominikbraun/graph"

	"github.com/xab-mack/jvmdeps/internal/model"
)

var (
	ErrUnknownTarget   = errors.New("unknown target")
	ErrDuplicateTarget = errors.New("duplicate target")
)

// Target is one node of the declared build graph. A target with Package set
// stands for an externally resolved package rather than compiled code.
type Target struct {
	ID           model.TargetID
	Sources      []string
	Dependencies []model.TargetID
	Packages     []model.PackageRef
	Package      *model.PackageRef
	DerivedFrom  model.TargetID
}

func (t *Target) IsPackage() bool { return t.Package != nil }

func (t *Target) Node() model.DependencyNode {
	if t.Package != nil {
		return model.NewPackageNode(t.ID, *t.Package)
	}
	return model.NewTargetNode(t.ID)
}

// SourceKeys returns the target's sources in declaration order.
func (t *Target) SourceKeys() []model.SourceKey {
	out := make([]model.SourceKey, 0, len(t.Sources))
	for _, s := range t.Sources {
		out = append(out, model.SourceKey{Target: t.ID, Path: s})
	}
	return out
}

// Graph indexes targets and their declared edges. It is read-only after New.
type Graph struct {
	targets map[model.TargetID]*Target
	order   []model.TargetID
	edges   graph.Graph[string, string]
}

func New(targets []*Target) (*Graph, error) {
	g := &Graph{
		targets: make(map[model.TargetID]*Target, len(targets)),
		edges:   graph.New(graph.StringHash, graph.Directed()),
	}
	for _, t := range targets {
		if _, ok := g.targets[t.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTarget, t.ID)
		}
		g.targets[t.ID] = t
		g.order = append(g.order, t.ID)
		if err := g.edges.AddVertex(string(t.ID)); err != nil {
			return nil, err
		}
	}
	for _, t := range targets {
		if t.DerivedFrom != "" {
			if _, ok := g.targets[t.DerivedFrom]; !ok {
				return nil, fmt.Errorf("%w: %s derived from %s", ErrUnknownTarget, t.ID, t.DerivedFrom)
			}
		}
		for _, dep := range t.Dependencies {
			if _, ok := g.targets[dep]; !ok {
				return nil, fmt.Errorf("%w: %s depends on %s", ErrUnknownTarget, t.ID, dep)
			}
			// package nodes are walk output only
			if t.IsPackage() {
				continue
			}
			err := g.edges.AddEdge(string(t.ID), string(dep))
			if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
				return nil, err
			}
		}
	}
	return g, nil
}

func (g *Graph) Target(id model.TargetID) (*Target, bool) {
	t, ok := g.targets[id]
	return t, ok
}

// Targets returns every target in declaration order.
func (g *Graph) Targets() []*Target {
	out := make([]*Target, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.targets[id])
	}
	return out
}

// CodeTargets returns the targets that are compiled from sources.
func (g *Graph) CodeTargets() []*Target {
	var out []*Target
	for _, t := range g.Targets() {
		if !t.IsPackage() {
			out = append(out, t)
		}
	}
	return out
}

// Walk visits id and every target reachable over declared edges, each once.
// Cycles are tolerated.
func (g *Graph) Walk(id model.TargetID, visit func(*Target)) error {
	if _, ok := g.targets[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, id)
	}
	return graph.DFS(g.edges, string(id), func(k string) bool {
		visit(g.targets[model.TargetID(k)])
		return false
	})
}

// Closure returns id plus everything reachable from it.
func (g *Graph) Closure(id model.TargetID) (model.TargetSet, error) {
	out := model.TargetSet{}
	err := g.Walk(id, func(t *Target) { out.Add(t.ID) })
	return out, err
}

// DirectDeps returns the dependencies id declares itself.
func (g *Graph) DirectDeps(id model.TargetID) model.TargetSet {
	t, ok := g.targets[id]
	if !ok {
		return model.TargetSet{}
	}
	return model.NewSet(t.Dependencies...)
}

// PackageClosure collects every package reference reachable from id, both
// package nodes and the package lists declared by ordinary targets.
func (g *Graph) PackageClosure(id model.TargetID) (model.PackageSet, error) {
	out := model.PackageSet{}
	err := g.Walk(id, func(t *Target) {
		node := t.Node()
		if node.Kind == model.PackageNode {
			out.Add(node.Package)
			return
		}
		out.Add(t.Packages...)
	})
	return out, err
}

// Attribution names a target for diagnostics, preferring the target it was derived from.
func (g *Graph) Attribution(id model.TargetID) string {
	if t, ok := g.targets[id]; ok && t.DerivedFrom != "" {
		return string(t.DerivedFrom)
	}
	return string(id)
}

// PackageNodes maps every package-node target to its coordinate.
func (g *Graph) PackageNodes() map[model.TargetID]model.PackageRef {
	out := map[model.TargetID]model.PackageRef{}
	for _, t := range g.targets {
		if t.Package != nil {
			out[t.ID] = *t.Package
		}
	}
	return out
}
