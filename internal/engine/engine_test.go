package engine

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xab-mack/jvmdeps/internal/buildgraph"
	"github.com/xab-mack/jvmdeps/internal/classfile"
	"github.com/xab-mack/jvmdeps/internal/config"
	"github.com/xab-mack/jvmdeps/internal/fixture"
	"github.com/xab-mack/jvmdeps/internal/model"
)

type countingInspector struct {
	n atomic.Int32
}

func (c *countingInspector) Inspect(data []byte) (model.ArtifactSet, error) {
	c.n.Add(1)
	return classfile.Parser{}.Inspect(data)
}

// a -> b by reference; a also references its own nested class and guava.
func sample(t *testing.T) *fixture.Workspace {
	w := fixture.New(t)
	w.PackageTarget("3rdparty/guava", "com.google.guava", "guava")
	w.Target("a", "3rdparty/guava")
	w.Target("b")
	w.Source("a", "A1.java",
		fixture.Class("com/acme/A", "com/acme/A$Inner", "java/util/List"),
		fixture.Class("com/acme/A$Inner"))
	w.Source("a", "A2.java", fixture.Class("com/acme/A2", "com/acme/B", "com/google/common/collect/Lists"))
	w.Source("b", "B1.java", fixture.Class("com/acme/B"))
	w.Jar("com.google.guava", "guava", "31.1.0", fixture.Class("com/google/common/collect/Lists"))
	return w
}

func newEngine(t *testing.T, w *fixture.Workspace, opts ...Option) *Engine {
	g := w.Graph()
	return New(g, w.Classes, w.Jars.Lookup(g.PackageNodes()), opts...)
}

func TestCompute(t *testing.T) {
	w := sample(t)
	e := newEngine(t, w, WithWorkers(2))

	cg, err := e.Compute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []model.TargetID{"a", "b"}, model.Sorted(cg.Deps["a"]), "self references are left for the checker")
	assert.Empty(t, cg.Deps["b"])
	assert.Equal(t, []model.PackageRef{{Org: "com.google.guava", Name: "guava"}}, model.SortedPackages(cg.PackageDeps["a"]))
	assert.True(t, cg.Unresolved["a"].Has("java/util/List.class"))
	assert.True(t, cg.Unresolved["a"].Has("java/lang/Object.class"))
	assert.Len(t, cg.DeclaredPackages["a"], 1)
	assert.Empty(t, cg.Problems)
	assert.Len(t, cg.Targets, 2)
}

func TestCompute_Memoized(t *testing.T) {
	w := sample(t)
	in := &countingInspector{}
	e := newEngine(t, w, WithInspector(in))

	first, err := e.Compute(context.Background())
	require.NoError(t, err)
	calls := in.n.Load()
	require.Positive(t, calls)

	second, err := e.Compute(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, calls, in.n.Load())
}

func TestCompute_ConcurrentFirstCalls(t *testing.T) {
	w := sample(t)
	in := &countingInspector{}
	e := newEngine(t, w, WithInspector(in))

	var wg sync.WaitGroup
	results := make([]*ComputedGraph, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cg, err := e.Compute(context.Background())
			assert.NoError(t, err)
			results[i] = cg
		}()
	}
	wg.Wait()
	for _, cg := range results {
		assert.Same(t, results[0], cg)
	}
	assert.Equal(t, int32(4), in.n.Load(), "each class file is inspected once")
}

func TestCompute_FailureNotCached(t *testing.T) {
	w := sample(t)
	e := newEngine(t, w)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Compute(ctx)
	require.ErrorIs(t, err, context.Canceled)

	cg, err := e.Compute(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, cg)
}

func TestWithTargets(t *testing.T) {
	w := sample(t)
	in := &countingInspector{}
	e := newEngine(t, w, WithInspector(in), WithTargets("b", "3rdparty/guava"))
	cg, err := e.Compute(context.Background())
	require.NoError(t, err)
	require.Len(t, cg.Targets, 1)
	assert.Equal(t, model.TargetID("b"), cg.Targets[0].ID)
	_, ok := cg.Deps["a"]
	assert.False(t, ok)
	assert.Equal(t, int32(1), in.n.Load(), "only selected sources are inspected")
	assert.True(t, cg.Artifacts.TargetsByArtifact["com/acme/A.class"].Has("a"), "unselected targets still produce")
}

func TestWithTargets_ResolvesIntoUnselectedTargets(t *testing.T) {
	w := sample(t)
	cg, err := newEngine(t, w, WithTargets("a")).Compute(context.Background())
	require.NoError(t, err)
	assert.True(t, cg.Deps["a"].Has("b"))
	assert.False(t, cg.Unresolved["a"].Has("com/acme/B.class"))
}

func TestWithTargets_UnknownTarget(t *testing.T) {
	w := sample(t)
	_, err := newEngine(t, w, WithTargets("a", "typo")).Compute(context.Background())
	require.ErrorIs(t, err, buildgraph.ErrUnknownTarget)
	assert.ErrorContains(t, err, "typo")
}

func TestBlame(t *testing.T) {
	w := sample(t)
	e := newEngine(t, w)

	b, ok, err := e.Blame(context.Background(), "a", "b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Blame{Source: model.SourceKey{Target: "a", Path: "A2.java"}, Artifact: "com/acme/B.class"}, b)

	b, ok, err = e.Blame(context.Background(), "a", "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A1.java", b.Source.Path, "earlier sources win")

	_, ok, err = e.Blame(context.Background(), "b", "a")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = e.Blame(context.Background(), "a", "3rdparty/guava")
	require.NoError(t, err)
	assert.False(t, ok, "package edges cannot be blamed on a target")

	_, _, err = e.Blame(context.Background(), "zzz", "a")
	assert.Error(t, err)
}

func TestBaseline(t *testing.T) {
	diags := []model.Diagnostic{{Fingerprint: "one"}, {Fingerprint: "two"}, {}}
	path := filepath.Join(t.TempDir(), "baseline.json")
	require.NoError(t, WriteBaseline(path, diags[:1]))

	b, err := LoadBaseline(path)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Len())
	assert.True(t, b.Accepts(diags[0]))
	assert.False(t, b.Accepts(diags[2]), "diagnostics without a fingerprint are never accepted")
	assert.Equal(t, []model.Diagnostic{{Fingerprint: "two"}, {}}, FilterByBaseline(diags, b))
	assert.Len(t, diags, 3, "filtering leaves the input alone")

	empty, err := LoadBaseline("")
	require.NoError(t, err)
	assert.Len(t, FilterByBaseline(diags, empty), 3)
}

func TestLoadBaseline_RejectsOtherShapes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"fingerprints":{"one":true}}`), 0o644))
	_, err := LoadBaseline(path)
	assert.ErrorContains(t, err, path)
}

func TestApplyIgnores(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	diags := []model.Diagnostic{
		{Kind: model.KindUnused, Target: "src/legacy/x", Dependency: "b"},
		{Kind: model.KindMissing, Target: "src/legacy/x", Dependency: "b"},
		{Kind: model.KindUndeclaredPackage, Target: "src/app", Package: &model.PackageRef{Org: "o", Name: "n"}},
		{Kind: model.KindUnused, Target: "src/app", Dependency: "c"},
	}
	rules := []config.IgnoreRule{
		{Target: "src/legacy", Kind: "unused-dependency"},
		{Dependency: "o:n"},
		{Dependency: "c", Expires: "2026-02-28"},
	}
	out := ApplyIgnores(diags, rules, now)
	require.Len(t, out, 2)
	assert.Equal(t, model.KindMissing, out[0].Kind)
	assert.Equal(t, model.TargetID("c"), out[1].Dependency, "expired rules no longer apply")

	rules[2].Expires = "2026-03-01"
	assert.Len(t, ApplyIgnores(diags, rules, now), 1, "a rule is valid through its expiry day")
}
