// Package index builds the reverse indexes the dependency engine resolves
// class references against: which target produced each class, which package
// archive provides it, and which classes each source file references.
package index

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/xab-mack/jvmdeps/internal/buildgraph"
	"github.com/xab-mack/jvmdeps/internal/classfile"
	"github.com/xab-mack/jvmdeps/internal/metrics"
	"github.com/xab-mack/jvmdeps/internal/model"
	"github.com/xab-mack/jvmdeps/internal/products"
)

// ClassProducts is the compile step's record of produced classes.
type ClassProducts interface {
	ByTarget(id model.TargetID) (products.OutputMap, bool)
	BySource(key model.SourceKey) products.OutputMap
}

type Options struct {
	Workers int
	Logger  *slog.Logger
	Metrics *metrics.Recorder
	// Analyze limits source inspection to these targets. Every target's
	// outputs are still recorded as producers. Nil inspects all targets.
	Analyze model.TargetSet
}

func (o Options) analyzes(id model.TargetID) bool {
	return o.Analyze == nil || o.Analyze.Has(id)
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// ArtifactIndex maps classes to the targets that produced them and sources to
// the classes they reference.
type ArtifactIndex struct {
	TargetsByArtifact map[model.ArtifactID]model.TargetSet
	ArtifactsBySource map[model.SourceKey]model.ArtifactSet
	DepsBySource      map[model.SourceKey]model.ArtifactSet
	ClassDepsByTarget map[model.TargetID]model.ArtifactSet
	Problems          []model.Problem
}

type partialArtifacts struct {
	target    model.TargetID
	produced  model.ArtifactSet
	bySource  map[model.SourceKey]model.ArtifactSet
	deps      map[model.SourceKey]model.ArtifactSet
	classDeps model.ArtifactSet
	problems  []model.Problem
}

// BuildArtifactIndex indexes every target that has recorded compilation
// products. Each target is indexed by its own worker; the partial indexes are
// merged once all workers finish. Unreadable or corrupt class files are
// recorded as problems and skipped. The only error returned is ctx's.
func BuildArtifactIndex(ctx context.Context, targets []*buildgraph.Target, cp ClassProducts, in classfile.Inspector, opts Options) (*ArtifactIndex, error) {
	log := opts.logger()
	parts := make([]*partialArtifacts, len(targets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i, t := range targets {
		outputs, ok := cp.ByTarget(t.ID)
		if !ok {
			log.Debug("no compilation products", "target", t.ID)
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			parts[i] = indexTarget(t, outputs, cp, in, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx := &ArtifactIndex{
		TargetsByArtifact: map[model.ArtifactID]model.TargetSet{},
		ArtifactsBySource: map[model.SourceKey]model.ArtifactSet{},
		DepsBySource:      map[model.SourceKey]model.ArtifactSet{},
		ClassDepsByTarget: map[model.TargetID]model.ArtifactSet{},
	}
	for _, p := range parts {
		if p == nil {
			continue
		}
		for a := range p.produced {
			set, ok := idx.TargetsByArtifact[a]
			if !ok {
				set = model.TargetSet{}
				idx.TargetsByArtifact[a] = set
			}
			set.Add(p.target)
		}
		for k, v := range p.bySource {
			idx.ArtifactsBySource[k] = v
		}
		for k, v := range p.deps {
			idx.DepsBySource[k] = v
		}
		if p.classDeps != nil {
			idx.ClassDepsByTarget[p.target] = p.classDeps
		}
		for _, pr := range p.problems {
			log.Warn("skipping artifact", "kind", pr.Kind, "target", pr.Target, "path", pr.Path, "err", pr.Err)
			opts.Metrics.Problem(pr.Kind)
		}
		idx.Problems = append(idx.Problems, p.problems...)
	}
	return idx, nil
}

func indexTarget(t *buildgraph.Target, outputs products.OutputMap, cp ClassProducts, in classfile.Inspector, opts Options) *partialArtifacts {
	p := &partialArtifacts{
		target:   t.ID,
		produced: model.ArtifactSet{},
		bySource: map[model.SourceKey]model.ArtifactSet{},
		deps:     map[model.SourceKey]model.ArtifactSet{},
	}
	for _, ids := range outputs {
		p.produced.Add(ids...)
	}
	if !opts.analyzes(t.ID) {
		return p
	}
	p.classDeps = model.ArtifactSet{}
	for _, key := range t.SourceKeys() {
		produced := model.ArtifactSet{}
		deps := model.ArtifactSet{}
		for dir, ids := range cp.BySource(key) {
			for _, id := range ids {
				produced.Add(id)
				path := artifactPath(dir, id)
				refs, err := inspectArtifact(path, in, opts)
				if err != nil {
					p.problems = append(p.problems, artifactProblem(t.ID, path, err))
					continue
				}
				deps.Union(refs)
			}
		}
		p.bySource[key] = produced
		p.deps[key] = deps
		p.classDeps.Union(deps)
	}
	return p
}

func inspectArtifact(path string, in classfile.Inspector, opts Options) (model.ArtifactSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	opts.Metrics.ArtifactInspected()
	return in.Inspect(data)
}

func artifactPath(dir string, id model.ArtifactID) string {
	return filepath.Join(dir, filepath.FromSlash(string(id)))
}

func artifactProblem(target model.TargetID, path string, err error) model.Problem {
	kind := model.ProblemUnreadableArtifact
	if errors.Is(err, classfile.ErrCorruptArtifact) {
		kind = model.ProblemCorruptArtifact
	}
	return model.Problem{
		Kind:   kind,
		Path:   path,
		Target: target,
		Err:    err.Error(),
	}
}
