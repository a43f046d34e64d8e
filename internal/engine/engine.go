package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xab-mack/jvmdeps/internal/buildgraph"
	"github.com/xab-mack/jvmdeps/internal/classfile"
	"github.com/xab-mack/jvmdeps/internal/index"
	"github.com/xab-mack/jvmdeps/internal/metrics"
	"github.com/xab-mack/jvmdeps/internal/model"
	"github.com/xab-mack/jvmdeps/internal/products"
)

// Engine computes the actual dependencies of a set of targets from their
// compiled classes. It is built for a single run: the first successful
// Compute is cached and returned by every later call.
type Engine struct {
	graph     *buildgraph.Graph
	selection []model.TargetID
	classes   index.ClassProducts
	archives  products.ArchiveLookup
	inspector classfile.Inspector
	lister    *index.ArchiveLister
	opts      index.Options

	mu       sync.Mutex
	computed *ComputedGraph
}

type Option func(*Engine)

func WithInspector(in classfile.Inspector) Option { return func(e *Engine) { e.inspector = in } }

func WithArchiveLister(l *index.ArchiveLister) Option { return func(e *Engine) { e.lister = l } }

func WithWorkers(n int) Option { return func(e *Engine) { e.opts.Workers = n } }

func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.opts.Logger = l } }

func WithMetrics(m *metrics.Recorder) Option { return func(e *Engine) { e.opts.Metrics = m } }

// WithTargets restricts analysis to the given targets. Classes of every
// target still count as producers, so references into unselected targets
// resolve. Compute fails on ids the graph does not know; package nodes are
// skipped.
func WithTargets(ids ...model.TargetID) Option {
	return func(e *Engine) { e.selection = ids }
}

func New(g *buildgraph.Graph, classes index.ClassProducts, archives products.ArchiveLookup, opts ...Option) *Engine {
	e := &Engine{
		graph:     g,
		classes:   classes,
		archives:  archives,
		inspector: classfile.Parser{},
	}
	for _, o := range opts {
		o(e)
	}
	if e.lister == nil {
		e.lister = index.NewArchiveLister(0)
	}
	return e
}

// ComputedGraph is the result of one dependency computation. It must be
// treated as read-only.
type ComputedGraph struct {
	// Targets lists the analyzed targets in declaration order.
	Targets     []*buildgraph.Target
	Deps        map[model.TargetID]model.TargetSet
	PackageDeps map[model.TargetID]model.PackageSet
	// DeclaredPackages holds the package references reachable from each
	// target's declared dependencies.
	DeclaredPackages map[model.TargetID]model.PackageSet
	// Unresolved holds referenced classes that neither a target nor a
	// package provides. They are assumed to come from the runtime and are
	// not checked.
	Unresolved map[model.TargetID]model.ArtifactSet
	Artifacts  *index.ArtifactIndex
	Packages   *index.PackageIndex
	Problems   []model.Problem
	Elapsed    time.Duration
}

func (e *Engine) Graph() *buildgraph.Graph { return e.graph }

// Compute returns the computed dependency graph, building it on first use.
// Concurrent callers wait for the first computation. A failed computation is
// not cached.
func (e *Engine) Compute(ctx context.Context) (*ComputedGraph, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.computed != nil {
		return e.computed, nil
	}

	start := time.Now()
	log := e.opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	targets, err := e.analyzed()
	if err != nil {
		return nil, err
	}
	declared, err := index.ResolvePackageDeps(e.graph, targets)
	if err != nil {
		return nil, err
	}
	opts := e.opts
	if e.selection != nil {
		opts.Analyze = model.TargetSet{}
		for _, t := range targets {
			opts.Analyze.Add(t.ID)
		}
	}

	var (
		arts *index.ArtifactIndex
		pkgs *index.PackageIndex
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		arts, err = index.BuildArtifactIndex(gctx, e.graph.CodeTargets(), e.classes, e.inspector, opts)
		return err
	})
	g.Go(func() error {
		var err error
		pkgs, err = index.IndexArchiveContents(gctx, declared, e.archives, e.lister, e.opts)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cg := resolve(targets, arts, pkgs)
	cg.DeclaredPackages = declared
	cg.Elapsed = time.Since(start)
	e.opts.Metrics.ComputeDuration(cg.Elapsed)
	log.Info("computed dependencies",
		"targets", len(targets),
		"artifacts", len(arts.TargetsByArtifact),
		"packagedArtifacts", len(pkgs.PackagesByArtifact),
		"problems", len(cg.Problems),
		"elapsed", cg.Elapsed)
	e.computed = cg
	return cg, nil
}

// analyzed returns the selected code targets in declaration order, or all of
// them without a selection.
func (e *Engine) analyzed() ([]*buildgraph.Target, error) {
	if e.selection == nil {
		return e.graph.CodeTargets(), nil
	}
	selected := model.TargetSet{}
	for _, id := range e.selection {
		if _, ok := e.graph.Target(id); !ok {
			return nil, fmt.Errorf("%w: %s", buildgraph.ErrUnknownTarget, id)
		}
		selected.Add(id)
	}
	var out []*buildgraph.Target
	for _, t := range e.graph.CodeTargets() {
		if selected.Has(t.ID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func resolve(targets []*buildgraph.Target, arts *index.ArtifactIndex, pkgs *index.PackageIndex) *ComputedGraph {
	cg := &ComputedGraph{
		Targets:     targets,
		Deps:        make(map[model.TargetID]model.TargetSet, len(targets)),
		PackageDeps: make(map[model.TargetID]model.PackageSet, len(targets)),
		Unresolved:  make(map[model.TargetID]model.ArtifactSet, len(targets)),
		Artifacts:   arts,
		Packages:    pkgs,
	}
	cg.Problems = append(append(cg.Problems, arts.Problems...), pkgs.Problems...)
	for _, t := range targets {
		deps, pkgDeps, unresolved := model.TargetSet{}, model.PackageSet{}, model.ArtifactSet{}
		for a := range arts.ClassDepsByTarget[t.ID] {
			if producers, ok := arts.TargetsByArtifact[a]; ok {
				deps.Union(producers)
			} else if providers, ok := pkgs.PackagesByArtifact[a]; ok {
				pkgDeps.Union(providers)
			} else {
				unresolved.Add(a)
			}
		}
		cg.Deps[t.ID] = deps
		cg.PackageDeps[t.ID] = pkgDeps
		cg.Unresolved[t.ID] = unresolved
	}
	return cg
}
