package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetOps(t *testing.T) {
	a := NewSet[TargetID]("x", "y", "z")
	b := NewSet[TargetID]("y")

	assert.Equal(t, []TargetID{"x", "z"}, Sorted(a.Minus(b)))
	assert.Len(t, a, 3, "Minus leaves the receiver alone")

	c := b.Clone()
	c.Union(NewSet[TargetID]("w"))
	assert.Equal(t, []TargetID{"w", "y"}, Sorted(c))
	assert.False(t, b.Has("w"))

	var empty TargetSet
	assert.Empty(t, empty.Minus(a))
	assert.False(t, empty.Has("x"))
}

func TestSortedPackages(t *testing.T) {
	s := NewSet(PackageRef{"org.b", "a"}, PackageRef{"org.a", "z"}, PackageRef{"org.a", "b"})
	assert.Equal(t, []PackageRef{{"org.a", "b"}, {"org.a", "z"}, {"org.b", "a"}}, SortedPackages(s))
}

func TestArtifactNames(t *testing.T) {
	a := ArtifactFromClass("com/acme/Outer$Inner")
	assert.Equal(t, ArtifactID("com/acme/Outer$Inner.class"), a)
	assert.Equal(t, "com.acme.Outer$Inner", a.ClassName())
	assert.True(t, IsArtifact("com/acme/Foo.class"))
	assert.False(t, IsArtifact("META-INF/MANIFEST.MF"))
}

func TestParseCheckLevel(t *testing.T) {
	for in, want := range map[string]CheckLevel{"": LevelNone, "none": LevelNone, "WARN": LevelWarn, " error ": LevelError} {
		got, err := ParseCheckLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseCheckLevel("fatal")
	assert.Error(t, err)
}

func TestCheckResult_Recount(t *testing.T) {
	r := &CheckResult{
		Failed: true,
		Diagnostics: []Diagnostic{
			{Kind: KindUnused, Severity: SeverityWarning},
			{Kind: KindIntransitive, Severity: SeverityWarning},
		},
	}
	r.Recount()
	assert.False(t, r.Failed)
	assert.Equal(t, 1, r.Count(KindUnused))

	r.Diagnostics = append(r.Diagnostics, Diagnostic{Kind: KindMissing, Severity: SeverityError})
	r.Recount()
	assert.True(t, r.Failed)
}
