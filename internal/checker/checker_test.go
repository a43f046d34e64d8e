package checker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xab-mack/jvmdeps/internal/buildgraph"
	"github.com/xab-mack/jvmdeps/internal/engine"
	"github.com/xab-mack/jvmdeps/internal/fixture"
	"github.com/xab-mack/jvmdeps/internal/metrics"
	"github.com/xab-mack/jvmdeps/internal/model"
)

func run(t *testing.T, w *fixture.Workspace, p Policy, opts ...engine.Option) (*model.CheckResult, error) {
	t.Helper()
	g := w.Graph()
	eng := engine.New(g, w.Classes, w.Jars.Lookup(g.PackageNodes()), opts...)
	return New(eng, p, nil, metrics.New()).Check(context.Background())
}

// A's class references B's class; edges per declared.
func pair(t *testing.T, declared ...string) *fixture.Workspace {
	w := fixture.New(t)
	w.Target("A", declared...)
	w.Target("B")
	w.Source("A", "A1", fixture.Class("a1", "b1"))
	w.Source("B", "B1", fixture.Class("b1"))
	return w
}

func TestCheck_UndeclaredDependencyFails(t *testing.T) {
	res, err := run(t, pair(t), Policy{CheckMissing: true})
	require.ErrorIs(t, err, ErrDependencyCheckFailed)
	require.NotNil(t, res)
	assert.True(t, res.Failed)
	require.Len(t, res.Diagnostics, 1)

	d := res.Diagnostics[0]
	assert.Equal(t, model.KindMissing, d.Kind)
	assert.Equal(t, model.SeverityError, d.Severity)
	assert.Equal(t, model.TargetID("A"), d.Target)
	assert.Equal(t, model.TargetID("B"), d.Dependency)
	assert.Equal(t, "A1", d.Source)
	assert.Equal(t, model.ArtifactID("b1.class"), d.Artifact)
	assert.Equal(t, "target A has undeclared compilation dependency on B, because source file A1 depends on class b1.class", d.Message)
	assert.NotEmpty(t, d.Fingerprint)
	assert.NotEmpty(t, res.RunID)
}

func TestCheck_SelectedTargetStillSeesUnselectedProducers(t *testing.T) {
	res, err := run(t, pair(t), Policy{CheckMissing: true}, engine.WithTargets("A"))
	require.ErrorIs(t, err, ErrDependencyCheckFailed)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, model.TargetID("A"), res.Diagnostics[0].Target)
	assert.Equal(t, model.TargetID("B"), res.Diagnostics[0].Dependency)
	assert.Equal(t, "A1", res.Diagnostics[0].Source)

	res, err = run(t, pair(t), Policy{CheckMissing: true}, engine.WithTargets("B"))
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics)
}

func TestCheck_UnknownSelectedTarget(t *testing.T) {
	res, err := run(t, pair(t), Policy{CheckMissing: true}, engine.WithTargets("typo"))
	require.ErrorIs(t, err, buildgraph.ErrUnknownTarget)
	assert.NotErrorIs(t, err, ErrDependencyCheckFailed)
	assert.Nil(t, res)
}

func TestCheck_DeclaredDependencyPasses(t *testing.T) {
	res, err := run(t, pair(t, "B"), Policy{CheckMissing: true, CheckUnnecessary: true, CheckIntransitive: model.LevelError})
	require.NoError(t, err)
	assert.False(t, res.Failed)
	assert.Empty(t, res.Diagnostics)
}

func TestCheck_DisabledDoesNothing(t *testing.T) {
	res, err := run(t, pair(t), Policy{CheckMissing: false, CheckUnnecessary: true})
	require.NoError(t, err)
	assert.False(t, res.Failed)
	assert.Empty(t, res.Diagnostics)
}

func TestCheck_UnusedDependencyIsAdvisory(t *testing.T) {
	w := fixture.New(t)
	w.Target("D", "E")
	w.Target("E")
	w.Source("D", "D1", fixture.Class("d1"))
	w.Source("E", "E1", fixture.Class("e1"))

	res, err := run(t, w, Policy{CheckMissing: true, CheckUnnecessary: true})
	require.NoError(t, err)
	assert.False(t, res.Failed)
	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, model.KindUnused, d.Kind)
	assert.Equal(t, model.SeverityWarning, d.Severity)
	assert.Equal(t, model.TargetID("D"), d.Target)
	assert.Equal(t, model.TargetID("E"), d.Dependency)
}

// A -> B -> C declared; A's source references C.
func transitive(t *testing.T) *fixture.Workspace {
	w := fixture.New(t)
	w.Target("A", "B")
	w.Target("B", "C")
	w.Target("C")
	w.Source("A", "A1", fixture.Class("a1", "b1", "c1"))
	w.Source("B", "B1", fixture.Class("b1", "c1"))
	w.Source("C", "C1", fixture.Class("c1"))
	return w
}

func TestCheck_TransitiveSuppression(t *testing.T) {
	cases := []struct {
		level    model.CheckLevel
		wantErr  bool
		wantDiag int
		severity model.Severity
	}{
		{level: model.LevelNone},
		{level: model.LevelWarn, wantDiag: 1, severity: model.SeverityWarning},
		{level: model.LevelError, wantErr: true, wantDiag: 1, severity: model.SeverityError},
	}
	for _, tc := range cases {
		t.Run(string(tc.level), func(t *testing.T) {
			res, err := run(t, transitive(t), Policy{CheckMissing: true, CheckIntransitive: tc.level})
			if tc.wantErr {
				require.ErrorIs(t, err, ErrDependencyCheckFailed)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.wantErr, res.Failed)
			assert.Zero(t, res.Count(model.KindMissing), "C is satisfied transitively")
			require.Len(t, res.Diagnostics, tc.wantDiag)
			if tc.wantDiag > 0 {
				d := res.Diagnostics[0]
				assert.Equal(t, model.KindIntransitive, d.Kind)
				assert.Equal(t, tc.severity, d.Severity)
				assert.Equal(t, model.TargetID("A"), d.Target)
				assert.Equal(t, model.TargetID("C"), d.Dependency)
				assert.Equal(t, "A1", d.Source)
			}
		})
	}
}

func TestCheck_NoSelfDependency(t *testing.T) {
	w := fixture.New(t)
	w.Target("A")
	w.Source("A", "A1", fixture.Class("a1", "a2"))
	w.Source("A", "A2", fixture.Class("a2", "a1"))

	res, err := run(t, w, Policy{CheckMissing: true, CheckIntransitive: model.LevelError, CheckUnnecessary: true})
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics)
}

func TestCheck_ReportsEveryTarget(t *testing.T) {
	w := fixture.New(t)
	w.Target("A")
	w.Target("X")
	w.Target("B")
	w.Source("A", "A1", fixture.Class("a1", "b1"))
	w.Source("X", "X1", fixture.Class("x1", "b1"))
	w.Source("B", "B1", fixture.Class("b1"))

	res, err := run(t, w, Policy{CheckMissing: true})
	require.ErrorIs(t, err, ErrDependencyCheckFailed)
	assert.ErrorContains(t, err, "2 target(s)")
	require.Len(t, res.Diagnostics, 2)
	assert.Equal(t, model.TargetID("A"), res.Diagnostics[0].Target)
	assert.Equal(t, model.TargetID("X"), res.Diagnostics[1].Target)
}

func TestCheck_AmbiguousProducers(t *testing.T) {
	w := fixture.New(t)
	w.Target("A", "B")
	w.Target("B")
	w.Target("Dup")
	w.Source("A", "A1", fixture.Class("a1", "shared"))
	w.Source("B", "B1", fixture.Class("shared"))
	w.Source("Dup", "Dup1", fixture.Class("shared"))

	res, err := run(t, w, Policy{CheckMissing: true})
	require.ErrorIs(t, err, ErrDependencyCheckFailed)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, model.TargetID("Dup"), res.Diagnostics[0].Dependency)
	assert.Equal(t, model.ArtifactID("shared.class"), res.Diagnostics[0].Artifact)
}

func TestCheck_Packages(t *testing.T) {
	w := fixture.New(t)
	w.PackageTarget("3rdparty/guava", "com.google.guava", "guava")
	w.PackageTarget("3rdparty/unused", "org.unused", "unused")
	app := w.Target("app", "3rdparty/unused")
	app.Packages = []model.PackageRef{{Org: "junit", Name: "junit"}}
	w.Target("other", "3rdparty/guava")
	w.Source("app", "App", fixture.Class("app/App", "com/google/common/collect/Lists", "org/junit/Test"))
	w.Source("other", "Other", fixture.Class("other/Other"))
	w.Jar("com.google.guava", "guava", "31.1.0", fixture.Class("com/google/common/collect/Lists"))
	w.Jar("junit", "junit", "4.13", fixture.Class("org/junit/Test"))
	w.Jar("org.unused", "unused", "1.0", fixture.Class("org/unused/Thing"))

	res, err := run(t, w, Policy{CheckMissing: true, CheckUnnecessary: true, CheckPackages: true})
	require.NoError(t, err, "package findings never fail the run")

	var got []string
	for _, d := range res.Diagnostics {
		got = append(got, string(d.Kind)+" "+string(d.Target)+" "+string(d.Dependency)+pkg(d))
	}
	assert.ElementsMatch(t, []string{
		"unused-dependency app 3rdparty/unused",
		"unused-dependency other 3rdparty/guava",
		"undeclared-package app com.google.guava:guava",
	}, got)
}

func TestCheck_UndeclaredPackageNotIndexed(t *testing.T) {
	w := fixture.New(t)
	w.PackageTarget("3rdparty/guava", "com.google.guava", "guava")
	w.Target("app")
	w.Source("app", "App", fixture.Class("app/App", "com/google/common/collect/Lists"))
	w.Jar("com.google.guava", "guava", "31.1.0", fixture.Class("com/google/common/collect/Lists"))

	res, err := run(t, w, Policy{CheckMissing: true, CheckPackages: true})
	require.NoError(t, err)
	assert.Empty(t, res.Diagnostics, "archives no target declares are never opened")
}

func pkg(d model.Diagnostic) string {
	if d.Package == nil {
		return ""
	}
	return d.Package.String()
}

func TestCheck_ComputeError(t *testing.T) {
	w := pair(t)
	g := w.Graph()
	eng := engine.New(g, w.Classes, w.Jars.Lookup(g.PackageNodes()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := New(eng, Policy{CheckMissing: true}, nil, nil).Check(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrDependencyCheckFailed)
	assert.Nil(t, res)
}
