package index

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/xab-mack/jvmdeps/internal/buildgraph"
	"github.com/xab-mack/jvmdeps/internal/model"
	"github.com/xab-mack/jvmdeps/internal/products"
)

// ErrUnreadableArchive wraps failures to open or enumerate a package archive.
var ErrUnreadableArchive = errors.New("unreadable archive")

// ResolvePackageDeps collects, for each target, every package reference
// reachable through its declared dependencies.
func ResolvePackageDeps(g *buildgraph.Graph, targets []*buildgraph.Target) (map[model.TargetID]model.PackageSet, error) {
	out := make(map[model.TargetID]model.PackageSet, len(targets))
	for _, t := range targets {
		refs, err := g.PackageClosure(t.ID)
		if err != nil {
			return nil, err
		}
		out[t.ID] = refs
	}
	return out, nil
}

const defaultArchiveCacheSize = 512

// ArchiveLister lists the class entries of archives, remembering recent
// listings. It is safe for concurrent use and may be shared between runs.
type ArchiveLister struct {
	cache *lru.Cache[string, []model.ArtifactID]
}

func NewArchiveLister(size int) *ArchiveLister {
	if size <= 0 {
		size = defaultArchiveCacheSize
	}
	c, err := lru.New[string, []model.ArtifactID](size)
	if err != nil {
		panic(err) // only fails for non-positive sizes
	}
	return &ArchiveLister{cache: c}
}

// List returns the class entries of the archive at path.
func (l *ArchiveLister) List(path string) ([]model.ArtifactID, error) {
	if ids, ok := l.cache.Get(path); ok {
		return ids, nil
	}
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableArchive, path, err)
	}
	defer r.Close()
	var ids []model.ArtifactID
	for _, f := range r.File {
		if model.IsArtifact(f.Name) {
			ids = append(ids, model.ArtifactID(f.Name))
		}
	}
	l.cache.Add(path, ids)
	return ids, nil
}

// PackageIndex maps classes to the package references whose archives provide them.
type PackageIndex struct {
	PackagesByArtifact map[model.ArtifactID]model.PackageSet
	ArchivesByPackage  map[model.PackageRef][]string
	Problems           []model.Problem
}

type listing struct {
	ids []model.ArtifactID
	err error
}

// IndexArchiveContents lists the archives of every package reference found in
// refsByTarget. Archives are listed concurrently, each once. A package
// reference with any unreadable archive contributes no entries; other
// references are unaffected.
func IndexArchiveContents(ctx context.Context, refsByTarget map[model.TargetID]model.PackageSet, lookup products.ArchiveLookup, lister *ArchiveLister, opts Options) (*PackageIndex, error) {
	log := opts.logger()
	if lister == nil {
		lister = NewArchiveLister(0)
	}

	refs := model.PackageSet{}
	for _, set := range refsByTarget {
		refs.Union(set)
	}
	archives := make(map[model.PackageRef][]string, len(refs))
	paths := model.Set[string]{}
	for ref := range refs {
		archives[ref] = lookup(ref)
		paths.Add(archives[ref]...)
	}

	ordered := model.Sorted(paths)
	results := make([]listing, len(ordered))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i, path := range ordered {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ids, err := lister.List(path)
			results[i] = listing{ids: ids, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	byPath := make(map[string]listing, len(ordered))
	for i, path := range ordered {
		byPath[path] = results[i]
		if results[i].err == nil {
			opts.Metrics.ArchiveIndexed()
		}
	}

	idx := &PackageIndex{
		PackagesByArtifact: map[model.ArtifactID]model.PackageSet{},
		ArchivesByPackage:  archives,
	}
	for _, ref := range model.SortedPackages(refs) {
		var failed bool
		for _, path := range archives[ref] {
			if err := byPath[path].err; err != nil {
				failed = true
				pr := model.Problem{Kind: model.ProblemUnreadableArchive, Path: path, Package: &ref, Err: err.Error()}
				log.Warn("skipping package archive", "package", ref.String(), "path", path, "err", err)
				opts.Metrics.Problem(pr.Kind)
				idx.Problems = append(idx.Problems, pr)
			}
		}
		if failed {
			continue
		}
		for _, path := range archives[ref] {
			for _, id := range byPath[path].ids {
				set, ok := idx.PackagesByArtifact[id]
				if !ok {
					set = model.PackageSet{}
					idx.PackagesByArtifact[id] = set
				}
				set.Add(ref)
			}
		}
	}
	return idx, nil
}
