package products

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/xab-mack/jvmdeps/internal/model"
)

// Resolution is one record written by the resolver: a coordinate at some
// revision and configuration resolved to files in a directory.
type Resolution struct {
	Org    string         `yaml:"org"`
	Name   string         `yaml:"name"`
	Rev    string         `yaml:"rev"`
	Conf   string         `yaml:"conf"`
	Target model.TargetID `yaml:"target"`
	Dir    string         `yaml:"dir"`
	Files  []string       `yaml:"files"`
}

func (r Resolution) ref() model.PackageRef { return model.PackageRef{Org: r.Org, Name: r.Name} }

func (r Resolution) paths() []string {
	out := make([]string, 0, len(r.Files))
	for _, f := range r.Files {
		out = append(out, filepath.Join(r.Dir, f))
	}
	return out
}

type targetConf struct {
	target model.TargetID
	conf   string
}

type revision struct {
	rev   string
	paths []string
}

// JarProducts keeps resolved archives in the redundant forms the resolver
// produces them: by coordinate, by package target, and by target and conf.
// Consumers should go through Lookup.
type JarProducts struct {
	byCoordinate map[model.PackageRef][]revision
	byTarget     map[model.TargetID][]string
	byTargetConf map[targetConf][]string
}

func NewJarProducts() *JarProducts {
	return &JarProducts{
		byCoordinate: map[model.PackageRef][]revision{},
		byTarget:     map[model.TargetID][]string{},
		byTargetConf: map[targetConf][]string{},
	}
}

func (j *JarProducts) Add(r Resolution) {
	paths := r.paths()
	if r.Org != "" && r.Name != "" {
		j.byCoordinate[r.ref()] = append(j.byCoordinate[r.ref()], revision{rev: r.Rev, paths: paths})
	}
	if r.Target != "" {
		j.byTarget[r.Target] = append(j.byTarget[r.Target], paths...)
		if r.Conf != "" {
			k := targetConf{target: r.Target, conf: r.Conf}
			j.byTargetConf[k] = append(j.byTargetConf[k], paths...)
		}
	}
}

// ArchiveLookup returns the archive paths resolved for a package reference.
type ArchiveLookup func(model.PackageRef) []string

// Lookup builds the canonical archive lookup. Coordinate records win; when a
// coordinate resolved at several revisions only the newest is used. Package
// references known only through their package-node target fall back to the
// target-keyed forms.
func (j *JarProducts) Lookup(nodes map[model.TargetID]model.PackageRef) ArchiveLookup {
	targetsByRef := map[model.PackageRef][]model.TargetID{}
	for id, ref := range nodes {
		targetsByRef[ref] = append(targetsByRef[ref], id)
	}
	return func(ref model.PackageRef) []string {
		set := model.Set[string]{}
		if revs := j.byCoordinate[ref]; len(revs) > 0 {
			newest := newestRevision(revs)
			for _, r := range revs {
				if r.rev == newest {
					set.Add(r.paths...)
				}
			}
			return model.Sorted(set)
		}
		for _, id := range targetsByRef[ref] {
			set.Add(j.byTarget[id]...)
			for k, paths := range j.byTargetConf {
				if k.target == id {
					set.Add(paths...)
				}
			}
		}
		return model.Sorted(set)
	}
}

// Coordinates lists every coordinate with at least one resolution record.
func (j *JarProducts) Coordinates() []model.PackageRef {
	return model.SortedPackages(model.NewSet(slices.Collect(maps.Keys(j.byCoordinate))...))
}

func newestRevision(revs []revision) string {
	best := revs[0].rev
	for _, r := range revs[1:] {
		if compareRevisions(r.rev, best) > 0 {
			best = r.rev
		}
	}
	return best
}

// compareRevisions orders semantic versions numerically and anything
// unparsable below them, lexically.
func compareRevisions(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	switch {
	case errA == nil && errB == nil:
		return va.Compare(vb)
	case errA == nil:
		return 1
	case errB == nil:
		return -1
	default:
		return strings.Compare(a, b)
	}
}

// LoadJarProducts reads a resolver report. Relative directories are resolved
// against the report's directory.
func LoadJarProducts(path string) (*JarProducts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var recs []Resolution
	if err := yaml.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("parse jar products %s: %w", path, err)
	}
	base := filepath.Dir(path)
	jp := NewJarProducts()
	for _, r := range recs {
		if r.Dir != "" && !filepath.IsAbs(r.Dir) {
			r.Dir = filepath.Join(base, r.Dir)
		}
		jp.Add(r)
	}
	return jp, nil
}
