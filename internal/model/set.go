package model

import (
	"cmp"
	"maps"
	"slices"
)

// Set is an unordered collection of comparable values.
type Set[T comparable] map[T]struct{}

func NewSet[T comparable](items ...T) Set[T] {
	s := make(Set[T], len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

func (s Set[T]) Add(items ...T) {
	for _, it := range items {
		s[it] = struct{}{}
	}
}

func (s Set[T]) Has(item T) bool {
	_, ok := s[item]
	return ok
}

// Union adds every member of o to s.
func (s Set[T]) Union(o Set[T]) {
	for it := range o {
		s[it] = struct{}{}
	}
}

// Minus returns a new set with the members of s that are not in o.
func (s Set[T]) Minus(o Set[T]) Set[T] {
	out := make(Set[T], len(s))
	for it := range s {
		if !o.Has(it) {
			out[it] = struct{}{}
		}
	}
	return out
}

func (s Set[T]) Clone() Set[T] { return maps.Clone(s) }

type (
	ArtifactSet = Set[ArtifactID]
	TargetSet   = Set[TargetID]
	PackageSet  = Set[PackageRef]
)

// Sorted returns the members of an ordered set in ascending order.
func Sorted[T cmp.Ordered](s Set[T]) []T {
	return slices.Sorted(maps.Keys(s))
}

// SortedPackages returns package references ordered by org then name.
func SortedPackages(s PackageSet) []PackageRef {
	out := slices.Collect(maps.Keys(s))
	slices.SortFunc(out, func(a, b PackageRef) int {
		if c := cmp.Compare(a.Org, b.Org); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}
