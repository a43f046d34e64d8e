package model

import (
	"fmt"
	"strings"
	"time"
)

// ArtifactSuffix is appended to a class's internal name to form its artifact id.
const ArtifactSuffix = ".class"

type TargetID string

func (t TargetID) String() string { return string(t) }

// ArtifactID names one compiled class, e.g. "com/acme/Foo.class".
type ArtifactID string

func (a ArtifactID) String() string { return string(a) }

// ArtifactFromClass converts an internal class name ("com/acme/Foo") to its artifact id.
func ArtifactFromClass(internalName string) ArtifactID {
	return ArtifactID(internalName + ArtifactSuffix)
}

// ClassName returns the dotted class name of the artifact.
func (a ArtifactID) ClassName() string {
	return strings.ReplaceAll(strings.TrimSuffix(string(a), ArtifactSuffix), "/", ".")
}

// IsArtifact reports whether an archive or directory entry name is a compiled class.
func IsArtifact(name string) bool { return strings.HasSuffix(name, ArtifactSuffix) }

// PackageRef identifies an externally resolved packaged dependency by coordinate.
type PackageRef struct {
	Org  string `json:"org" yaml:"org"`
	Name string `json:"name" yaml:"name"`
}

func (p PackageRef) String() string { return p.Org + ":" + p.Name }

// SourceKey identifies a source file within its owning target.
type SourceKey struct {
	Target TargetID
	Path   string
}

func (s SourceKey) String() string { return fmt.Sprintf("%s:%s", s.Target, s.Path) }

type NodeKind int

const (
	TargetNode NodeKind = iota
	PackageNode
)

// DependencyNode is either a build target or a package reference. Only target
// nodes are walked; package nodes are collected as walk output.
type DependencyNode struct {
	Kind    NodeKind
	Target  TargetID
	Package PackageRef
}

func NewTargetNode(id TargetID) DependencyNode { return DependencyNode{Kind: TargetNode, Target: id} }

func NewPackageNode(id TargetID, ref PackageRef) DependencyNode {
	return DependencyNode{Kind: PackageNode, Target: id, Package: ref}
}

type CheckLevel string

const (
	LevelNone  CheckLevel = "none"
	LevelWarn  CheckLevel = "warn"
	LevelError CheckLevel = "error"
)

func ParseCheckLevel(s string) (CheckLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(LevelNone):
		return LevelNone, nil
	case string(LevelWarn):
		return LevelWarn, nil
	case string(LevelError):
		return LevelError, nil
	default:
		return LevelNone, fmt.Errorf("invalid check level %q (want none|warn|error)", s)
	}
}

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type DiagnosticKind string

const (
	KindMissing           DiagnosticKind = "missing-dependency"
	KindIntransitive      DiagnosticKind = "intransitive-dependency"
	KindUnused            DiagnosticKind = "unused-dependency"
	KindUndeclaredPackage DiagnosticKind = "undeclared-package"
)

// Kinds lists every diagnostic kind in report order.
var Kinds = []DiagnosticKind{KindMissing, KindIntransitive, KindUnused, KindUndeclaredPackage}

// Diagnostic is one finding of the dependency check. Source and Artifact are
// set when the edge could be blamed on a concrete class reference.
type Diagnostic struct {
	Kind          DiagnosticKind `json:"kind"`
	Severity      Severity       `json:"severity"`
	Target        TargetID       `json:"target"`
	Dependency    TargetID       `json:"dependency,omitempty"`
	DependencyRef string         `json:"dependencyRef,omitempty"`
	Package       *PackageRef    `json:"package,omitempty"`
	Source        string         `json:"source,omitempty"`
	Artifact      ArtifactID     `json:"artifact,omitempty"`
	Line          int            `json:"line,omitempty"`
	Message       string         `json:"message"`
	Fingerprint   string         `json:"fingerprint"`
}

// Blamed reports whether the diagnostic carries a source/artifact justification.
func (d Diagnostic) Blamed() bool { return d.Source != "" && d.Artifact != "" }

type ProblemKind string

const (
	ProblemCorruptArtifact    ProblemKind = "corrupt-artifact"
	ProblemUnreadableArtifact ProblemKind = "unreadable-artifact"
	ProblemUnreadableArchive  ProblemKind = "unreadable-archive"
)

// Problem records a localized failure that was recovered during indexing.
type Problem struct {
	Kind    ProblemKind `json:"kind"`
	Path    string      `json:"path"`
	Target  TargetID    `json:"target,omitempty"`
	Package *PackageRef `json:"package,omitempty"`
	Err     string      `json:"error"`
}

type CheckResult struct {
	RunID       string        `json:"runId"`
	Diagnostics []Diagnostic  `json:"diagnostics"`
	Problems    []Problem     `json:"problems,omitempty"`
	Failed      bool          `json:"failed"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Recount recomputes Failed from the error-severity diagnostics left in the result.
func (r *CheckResult) Recount() {
	r.Failed = false
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			r.Failed = true
			return
		}
	}
}

// Count returns the number of diagnostics of the given kind.
func (r *CheckResult) Count(kind DiagnosticKind) int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Kind == kind {
			n++
		}
	}
	return n
}
