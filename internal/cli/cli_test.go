package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xab-mack/jvmdeps/internal/buildgraph"
	"github.com/xab-mack/jvmdeps/internal/checker"
	"github.com/xab-mack/jvmdeps/internal/config"
	"github.com/xab-mack/jvmdeps/internal/fixture"
	"github.com/xab-mack/jvmdeps/internal/model"
)

const classesYAML = `
- target: A
  dir: out/A
  sources:
    A1.java: [com/acme/a/A1.class]
- target: B
  dir: out/B
  sources:
    B1.java: [com/acme/b/B1.class]
`

const manifestYAML = `
sourceRoot: src
classProducts: classes.yaml
targets:
  - id: A
    sources: [A1.java]
  - id: B
    sources: [B1.java]
`

// setup lays out A referencing B without declaring it and returns the
// manifest path.
func setup(t *testing.T) string {
	t.Helper()
	w := fixture.New(t)
	w.Target("A")
	w.Target("B")
	w.Source("A", "A1.java", fixture.Class("com/acme/a/A1", "com/acme/b/B1"))
	w.Source("B", "B1.java", fixture.Class("com/acme/b/B1"))

	write(t, filepath.Join(w.Dir, "src", "A1.java"), "package com.acme.a;\n\nimport com.acme.b.B1;\n\nclass A1 {}\n")
	write(t, filepath.Join(w.Dir, "classes.yaml"), classesYAML)
	manifest := filepath.Join(w.Dir, "build-manifest.yaml")
	write(t, manifest, manifestYAML)
	return manifest
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func execute(args ...string) (string, error) {
	root := &cobra.Command{Use: "jvmdeps", SilenceUsage: true, SilenceErrors: true}
	AddCommands(root)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCheck_ReportsMissingDependency(t *testing.T) {
	manifest := setup(t)
	out, err := execute("check", "-m", manifest, "--check-missing-deps")
	require.ErrorIs(t, err, checker.ErrDependencyCheckFailed)
	assert.Contains(t, out, "target A has undeclared compilation dependency on B, because source file A1.java depends on class com/acme/b/B1.class (A1.java:3)")
	assert.Contains(t, out, "status: FAILED")
}

func TestCheck_DisabledByDefault(t *testing.T) {
	out, err := execute("check", setup(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Diagnostics: 0")
}

func TestCheck_ConfigAndFlagPrecedence(t *testing.T) {
	manifest := setup(t)
	write(t, filepath.Join(filepath.Dir(manifest), config.FileName), "checkMissingDeps: true\n")

	_, err := execute("check", manifest)
	require.ErrorIs(t, err, checker.ErrDependencyCheckFailed)

	_, err = execute("check", manifest, "--check-missing-deps=false")
	require.NoError(t, err)
}

func TestCheck_IgnoreRule(t *testing.T) {
	manifest := setup(t)
	write(t, filepath.Join(filepath.Dir(manifest), config.FileName), `
checkMissingDeps: true
ignore:
  - target: A
    dependency: B
    reason: migration in progress
`)
	out, err := execute("check", manifest)
	require.NoError(t, err)
	assert.Contains(t, out, "Diagnostics: 0")
}

func TestCheck_Baseline(t *testing.T) {
	manifest := setup(t)
	baseline := filepath.Join(t.TempDir(), "baseline.json")

	_, err := execute("check", manifest, "--check-missing-deps", "--write-baseline", baseline)
	require.NoError(t, err)
	require.FileExists(t, baseline)

	out, err := execute("check", manifest, "--check-missing-deps", "--baseline", baseline)
	require.NoError(t, err, "accepted diagnostics do not fail the run")
	assert.Contains(t, out, "Diagnostics: 0")
}

func TestCheck_JSONAndMetrics(t *testing.T) {
	manifest := setup(t)
	dir := t.TempDir()
	report := filepath.Join(dir, "report.json")
	metricsFile := filepath.Join(dir, "metrics.prom")

	_, err := execute("check", manifest, "--check-missing-deps", "--check-unnecessary-deps",
		"--format", "json", "--out", report, "--metrics-out", metricsFile)
	require.ErrorIs(t, err, checker.ErrDependencyCheckFailed)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	var res model.CheckResult
	require.NoError(t, json.Unmarshal(data, &res))
	assert.True(t, res.Failed)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, model.KindMissing, res.Diagnostics[0].Kind)
	assert.Equal(t, 3, res.Diagnostics[0].Line)

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "jvmdeps_artifacts_inspected_total 2")
	assert.Contains(t, string(prom), `jvmdeps_diagnostics_total{kind="missing-dependency",severity="error"} 1`)
}

func TestCheck_TargetSelection(t *testing.T) {
	manifest := setup(t)
	out, err := execute("check", manifest, "--check-missing-deps", "--target", "A")
	require.ErrorIs(t, err, checker.ErrDependencyCheckFailed)
	assert.Contains(t, out, "target A has undeclared compilation dependency on B")

	_, err = execute("check", manifest, "--check-missing-deps", "--target", "B")
	require.NoError(t, err)

	_, err = execute("check", manifest, "--check-missing-deps", "--target", "typo")
	require.ErrorIs(t, err, buildgraph.ErrUnknownTarget)
}

func TestCheck_SARIF(t *testing.T) {
	out, err := execute("check", setup(t), "--check-missing-deps", "--format", "sarif")
	require.ErrorIs(t, err, checker.ErrDependencyCheckFailed)
	assert.Contains(t, out, `"ruleId": "missing-dependency"`)
}

func TestCheck_InvalidLevel(t *testing.T) {
	_, err := execute("check", setup(t), "--check-intransitive-deps", "sometimes")
	require.Error(t, err)
	assert.NotErrorIs(t, err, checker.ErrDependencyCheckFailed)
}

func TestGraph(t *testing.T) {
	out, err := execute("graph", setup(t), "--format", "json")
	require.NoError(t, err)
	var entries []graphEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, model.TargetID("A"), entries[0].Target)
	assert.Equal(t, []model.TargetID{"B"}, entries[0].Deps)
	assert.Empty(t, entries[1].Deps)

	out, err = execute("graph", setup(t))
	require.NoError(t, err)
	assert.Contains(t, out, "A -> [B]")
}

func TestBlame(t *testing.T) {
	manifest := setup(t)
	out, err := execute("blame", "-m", manifest, "A", "B")
	require.NoError(t, err)
	assert.Equal(t, "source file A1.java of A depends on class com/acme/b/B1.class\n", out)

	out, err = execute("blame", "-m", manifest, "B", "A")
	require.NoError(t, err)
	assert.Contains(t, out, "no class of B references A")

	_, err = execute("blame", "-m", manifest, "nope", "A")
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	manifest := setup(t)
	path := filepath.Join(filepath.Dir(manifest), "out", "A", "com", "acme", "a", "A1.class")
	out, err := execute("inspect", path)
	require.NoError(t, err)
	assert.Contains(t, out, "com/acme/b/B1.class\n")
	assert.Contains(t, out, "java/lang/Object.class\n")
	assert.NotContains(t, out, "com/acme/a/A1.class")
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	_, err := execute("init", "--dir", dir)
	require.NoError(t, err)

	cfg, path, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, config.FileName), path)
	assert.True(t, cfg.CheckMissingDeps)

	_, err = execute("init", "--dir", dir)
	assert.Error(t, err, "existing config is kept")
	_, err = execute("init", "--dir", dir, "--force")
	assert.NoError(t, err)
}

func TestRulesList(t *testing.T) {
	out, err := execute("rules", "list")
	require.NoError(t, err)
	for _, k := range model.Kinds {
		assert.Contains(t, out, string(k))
	}
}
