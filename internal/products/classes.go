// Package products adapts the registries written by the compile and resolve
// steps: which classes each target and source produced, and which archives
// each package coordinate resolved to.
package products

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/xab-mack/jvmdeps/internal/model"
)

// OutputMap maps an output directory to the artifacts written under it.
type OutputMap map[string][]model.ArtifactID

func (m OutputMap) add(dir string, ids ...model.ArtifactID) {
	m[dir] = append(m[dir], ids...)
}

// ClassProducts records compiled classes by target and by source file.
type ClassProducts struct {
	byTarget map[model.TargetID]OutputMap
	bySource map[model.SourceKey]OutputMap
}

func NewClassProducts() *ClassProducts {
	return &ClassProducts{
		byTarget: map[model.TargetID]OutputMap{},
		bySource: map[model.SourceKey]OutputMap{},
	}
}

// AddTarget records artifacts produced by a target without source attribution.
func (c *ClassProducts) AddTarget(id model.TargetID, dir string, ids ...model.ArtifactID) {
	m, ok := c.byTarget[id]
	if !ok {
		m = OutputMap{}
		c.byTarget[id] = m
	}
	m.add(dir, ids...)
}

// AddSource records artifacts produced by one source; they also count for its target.
func (c *ClassProducts) AddSource(key model.SourceKey, dir string, ids ...model.ArtifactID) {
	m, ok := c.bySource[key]
	if !ok {
		m = OutputMap{}
		c.bySource[key] = m
	}
	m.add(dir, ids...)
	c.AddTarget(key.Target, dir, ids...)
}

// ByTarget reports the outputs of a target; ok is false when nothing was recorded.
func (c *ClassProducts) ByTarget(id model.TargetID) (OutputMap, bool) {
	m, ok := c.byTarget[id]
	return m, ok
}

func (c *ClassProducts) BySource(key model.SourceKey) OutputMap {
	return c.bySource[key]
}

type classEntry struct {
	Target  string              `yaml:"target"`
	Dir     string              `yaml:"dir"`
	Sources map[string][]string `yaml:"sources"`
	Classes []string            `yaml:"classes"`
}

// LoadClassProducts reads a class products file. Relative output directories
// are resolved against the file's directory.
func LoadClassProducts(path string) (*ClassProducts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []classEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse class products %s: %w", path, err)
	}
	base := filepath.Dir(path)
	cp := NewClassProducts()
	for _, e := range entries {
		if e.Target == "" || e.Dir == "" {
			return nil, fmt.Errorf("class products %s: entry needs target and dir", path)
		}
		dir := e.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(base, dir)
		}
		id := model.TargetID(e.Target)
		for src, classes := range e.Sources {
			cp.AddSource(model.SourceKey{Target: id, Path: src}, dir, toArtifacts(classes)...)
		}
		cp.AddTarget(id, dir, toArtifacts(e.Classes)...)
	}
	return cp, nil
}

func toArtifacts(names []string) []model.ArtifactID {
	out := make([]model.ArtifactID, 0, len(names))
	for _, n := range names {
		out = append(out, model.ArtifactID(filepath.ToSlash(n)))
	}
	return out
}
