// Package fixture lays out throwaway build workspaces for tests: targets,
// compiled class files on disk, and package archives.
package fixture

import (
	"path/filepath"
	"testing"

	"github.com/xab-mack/jvmdeps/internal/buildgraph"
	"github.com/xab-mack/jvmdeps/internal/classfile/classfiletest"
	"github.com/xab-mack/jvmdeps/internal/model"
	"github.com/xab-mack/jvmdeps/internal/products"
)

type Workspace struct {
	t       testing.TB
	Dir     string
	Classes *products.ClassProducts
	Jars    *products.JarProducts
	targets []*buildgraph.Target
	byID    map[model.TargetID]*buildgraph.Target
}

func New(t testing.TB) *Workspace {
	t.Helper()
	return &Workspace{
		t:       t,
		Dir:     t.TempDir(),
		Classes: products.NewClassProducts(),
		Jars:    products.NewJarProducts(),
		byID:    map[model.TargetID]*buildgraph.Target{},
	}
}

// Target declares a code target with the given direct dependencies.
func (w *Workspace) Target(id string, deps ...string) *buildgraph.Target {
	t := &buildgraph.Target{ID: model.TargetID(id)}
	for _, d := range deps {
		t.Dependencies = append(t.Dependencies, model.TargetID(d))
	}
	w.targets = append(w.targets, t)
	w.byID[t.ID] = t
	return t
}

// Source adds a source file to target and writes the classes it compiled to.
func (w *Workspace) Source(target, path string, classes ...classfiletest.Class) {
	w.t.Helper()
	t, ok := w.byID[model.TargetID(target)]
	if !ok {
		w.t.Fatalf("fixture: unknown target %s", target)
	}
	t.Sources = append(t.Sources, path)
	dir := w.OutDir(target)
	ids := make([]model.ArtifactID, 0, len(classes))
	for _, c := range classes {
		if err := classfiletest.WriteClass(dir, c); err != nil {
			w.t.Fatalf("fixture: %v", err)
		}
		ids = append(ids, model.ArtifactFromClass(c.Name))
	}
	w.Classes.AddSource(model.SourceKey{Target: t.ID, Path: path}, dir, ids...)
}

func (w *Workspace) OutDir(target string) string {
	return filepath.Join(w.Dir, "out", filepath.FromSlash(target))
}

// PackageTarget declares a package-node target for org:name.
func (w *Workspace) PackageTarget(id, org, name string) *buildgraph.Target {
	t := w.Target(id)
	t.Package = &model.PackageRef{Org: org, Name: name}
	return t
}

// Jar writes an archive for org:name and records it with the resolver products.
func (w *Workspace) Jar(org, name, rev string, classes ...classfiletest.Class) string {
	w.t.Helper()
	dir := filepath.Join(w.Dir, "jars")
	file := name + "-" + rev + ".jar"
	if err := classfiletest.WriteJar(filepath.Join(dir, file), classes...); err != nil {
		w.t.Fatalf("fixture: %v", err)
	}
	w.Jars.Add(products.Resolution{Org: org, Name: name, Rev: rev, Conf: "default", Dir: dir, Files: []string{file}})
	return filepath.Join(dir, file)
}

func (w *Workspace) Graph() *buildgraph.Graph {
	w.t.Helper()
	g, err := buildgraph.New(w.targets)
	if err != nil {
		w.t.Fatalf("fixture: %v", err)
	}
	return g
}

// Class is shorthand for a class named name referencing refs.
func Class(name string, refs ...string) classfiletest.Class {
	return classfiletest.Class{Name: name, Super: "java/lang/Object", Refs: refs}
}
