package buildgraph

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/xab-mack/jvmdeps/internal/model"
)

type manifestTarget struct {
	ID           string             `yaml:"id"`
	Sources      []string           `yaml:"sources"`
	Dependencies []string           `yaml:"dependencies"`
	Packages     []model.PackageRef `yaml:"packages"`
	Package      *model.PackageRef  `yaml:"package"`
	DerivedFrom  string             `yaml:"derivedFrom"`
}

type manifestFile struct {
	SourceRoot    string           `yaml:"sourceRoot"`
	ClassProducts string           `yaml:"classProducts"`
	JarProducts   string           `yaml:"jarProducts"`
	Targets       []manifestTarget `yaml:"targets"`
}

// Manifest is a loaded build manifest. Paths are resolved against the
// manifest's directory.
type Manifest struct {
	Path          string
	SourceRoot    string
	ClassProducts string
	JarProducts   string
	Graph         *Graph
}

func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var mf manifestFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	targets := make([]*Target, 0, len(mf.Targets))
	for _, mt := range mf.Targets {
		if mt.ID == "" {
			return nil, fmt.Errorf("manifest %s: target without id", path)
		}
		t := &Target{
			ID:          model.TargetID(mt.ID),
			Sources:     mt.Sources,
			Packages:    mt.Packages,
			Package:     mt.Package,
			DerivedFrom: model.TargetID(mt.DerivedFrom),
		}
		for _, d := range mt.Dependencies {
			t.Dependencies = append(t.Dependencies, model.TargetID(d))
		}
		targets = append(targets, t)
	}
	g, err := New(targets)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	base := filepath.Dir(path)
	return &Manifest{
		Path:          path,
		SourceRoot:    resolve(base, mf.SourceRoot),
		ClassProducts: resolve(base, mf.ClassProducts),
		JarProducts:   resolve(base, mf.JarProducts),
		Graph:         g,
	}, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
