// Package checker compares computed dependencies with the declared build
// graph and reports missing, transitively satisfied, and unused edges.
package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/xab-mack/jvmdeps/internal/buildgraph"
	"github.com/xab-mack/jvmdeps/internal/engine"
	"github.com/xab-mack/jvmdeps/internal/metrics"
	"github.com/xab-mack/jvmdeps/internal/model"
	"github.com/xab-mack/jvmdeps/internal/util"
)

// ErrDependencyCheckFailed is returned after a complete check that found at
// least one failing condition.
var ErrDependencyCheckFailed = errors.New("missing dependencies detected")

type Policy struct {
	CheckMissing      bool
	CheckIntransitive model.CheckLevel
	CheckUnnecessary  bool
	// CheckPackages reports package references used but not reachable from
	// the declared graph. These findings never fail the run.
	CheckPackages bool
}

// Computer produces the computed dependency graph; *engine.Engine implements it.
type Computer interface {
	Compute(ctx context.Context) (*engine.ComputedGraph, error)
	Graph() *buildgraph.Graph
}

type Checker struct {
	eng     Computer
	policy  Policy
	log     *slog.Logger
	metrics *metrics.Recorder
}

func New(eng Computer, policy Policy, log *slog.Logger, rec *metrics.Recorder) *Checker {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if policy.CheckIntransitive == "" {
		policy.CheckIntransitive = model.LevelNone
	}
	return &Checker{eng: eng, policy: policy, log: log, metrics: rec}
}

// Check diffs computed against declared dependencies for every analyzed
// target. All targets are checked before a failure is reported; on failure
// the full result is returned together with an error wrapping
// ErrDependencyCheckFailed.
func (c *Checker) Check(ctx context.Context) (*model.CheckResult, error) {
	start := time.Now()
	res := &model.CheckResult{RunID: uuid.NewString()}
	if !c.policy.CheckMissing {
		return res, nil
	}
	cg, err := c.eng.Compute(ctx)
	if err != nil {
		return nil, err
	}
	res.Problems = cg.Problems

	failing := 0
	for _, t := range cg.Targets {
		diags, failed, err := c.checkTarget(cg, t)
		if err != nil {
			return nil, err
		}
		if failed {
			failing++
		}
		res.Diagnostics = append(res.Diagnostics, diags...)
	}
	for _, d := range res.Diagnostics {
		c.metrics.Diagnostic(d)
	}
	res.Failed = failing > 0
	res.Elapsed = time.Since(start)
	c.log.Info("dependency check finished",
		"run", res.RunID,
		"targets", len(cg.Targets),
		"diagnostics", len(res.Diagnostics),
		"failingTargets", failing)
	if res.Failed {
		return res, fmt.Errorf("%w in %d target(s)", ErrDependencyCheckFailed, failing)
	}
	return res, nil
}

func (c *Checker) checkTarget(cg *engine.ComputedGraph, t *buildgraph.Target) ([]model.Diagnostic, bool, error) {
	g := c.eng.Graph()
	computed := cg.Deps[t.ID]
	self := model.NewSet(t.ID)

	closure, err := g.Closure(t.ID)
	if err != nil {
		return nil, false, err
	}
	direct := g.DirectDeps(t.ID)
	undeclared := computed.Minus(closure)
	immediate := computed.Minus(direct).Minus(self)

	var (
		diags  []model.Diagnostic
		failed bool
	)
	if len(undeclared) > 0 {
		failed = true
		for _, dep := range model.Sorted(undeclared) {
			diags = append(diags, c.missing(cg, t, dep, model.KindMissing, model.SeverityError))
			delete(immediate, dep)
		}
	}

	if c.policy.CheckIntransitive != model.LevelNone && len(immediate) > 0 {
		sev := model.SeverityWarning
		if c.policy.CheckIntransitive == model.LevelError {
			sev = model.SeverityError
			failed = true
		}
		for _, dep := range model.Sorted(immediate) {
			diags = append(diags, c.missing(cg, t, dep, model.KindIntransitive, sev))
		}
	}

	if c.policy.CheckUnnecessary {
		diags = append(diags, c.unused(cg, t, direct)...)
	}

	if c.policy.CheckPackages {
		undeclaredPkgs := cg.PackageDeps[t.ID].Minus(cg.DeclaredPackages[t.ID])
		for _, ref := range model.SortedPackages(undeclaredPkgs) {
			diags = append(diags, undeclaredPackage(t, ref))
		}
	}
	return diags, failed, nil
}

func (c *Checker) missing(cg *engine.ComputedGraph, t *buildgraph.Target, dep model.TargetID, kind model.DiagnosticKind, sev model.Severity) model.Diagnostic {
	g := c.eng.Graph()
	d := model.Diagnostic{
		Kind:          kind,
		Severity:      sev,
		Target:        t.ID,
		Dependency:    dep,
		DependencyRef: g.Attribution(dep),
		Fingerprint:   util.Fingerprint(string(kind), string(t.ID), string(dep)),
	}
	if kind == model.KindMissing {
		d.Message = fmt.Sprintf("target %s has undeclared compilation dependency on %s", t.ID, d.DependencyRef)
	} else {
		d.Message = fmt.Sprintf("target %s depends on %s which is only declared transitively", t.ID, d.DependencyRef)
	}
	if b, ok := cg.Blame(t, dep); ok {
		d.Source = b.Source.Path
		d.Artifact = b.Artifact
		d.Message += fmt.Sprintf(", because source file %s depends on class %s", b.Source.Path, b.Artifact)
	}
	return d
}

// unused reports declared edges that no reference needs. Declared package
// nodes and package lists are judged against the computed package deps.
func (c *Checker) unused(cg *engine.ComputedGraph, t *buildgraph.Target, direct model.TargetSet) []model.Diagnostic {
	g := c.eng.Graph()
	computed := cg.Deps[t.ID]
	usedPkgs := cg.PackageDeps[t.ID]

	var diags []model.Diagnostic
	for _, dep := range model.Sorted(direct) {
		if dep == t.ID {
			continue
		}
		depTarget, _ := g.Target(dep)
		if depTarget != nil && depTarget.IsPackage() {
			if usedPkgs.Has(*depTarget.Package) {
				continue
			}
		} else if computed.Has(dep) {
			continue
		}
		diags = append(diags, model.Diagnostic{
			Kind:          model.KindUnused,
			Severity:      model.SeverityWarning,
			Target:        t.ID,
			Dependency:    dep,
			DependencyRef: g.Attribution(dep),
			Message:       fmt.Sprintf("target %s declares un-needed dependency on: %s", t.ID, dep),
			Fingerprint:   util.Fingerprint(string(model.KindUnused), string(t.ID), string(dep)),
		})
	}
	for _, ref := range model.SortedPackages(model.NewSet(t.Packages...)) {
		if usedPkgs.Has(ref) {
			continue
		}
		diags = append(diags, model.Diagnostic{
			Kind:        model.KindUnused,
			Severity:    model.SeverityWarning,
			Target:      t.ID,
			Package:     &ref,
			Message:     fmt.Sprintf("target %s declares un-needed package dependency on: %s", t.ID, ref),
			Fingerprint: util.Fingerprint(string(model.KindUnused), string(t.ID), ref.String()),
		})
	}
	return diags
}

func undeclaredPackage(t *buildgraph.Target, ref model.PackageRef) model.Diagnostic {
	return model.Diagnostic{
		Kind:        model.KindUndeclaredPackage,
		Severity:    model.SeverityWarning,
		Target:      t.ID,
		Package:     &ref,
		Message:     fmt.Sprintf("target %s needs to depend on package %s", t.ID, ref),
		Fingerprint: util.Fingerprint(string(model.KindUndeclaredPackage), string(t.ID), ref.String()),
	}
}
