package sets

import (
	"maps"
	"slices"
	"strings"
)

// Set is a simple generic hash set for comparable keys.
// Usage: s := sets.New[string]("a","b"); s.Add("c"); if s.Has("b") {...}
type Set[T comparable] map[T]struct{}

// New creates a set pre-populated with the provided values.
func New[T comparable](vals ...T) Set[T] {
	s := make(Set[T], len(vals))
	for _, v := range vals {
		s[v] = struct{}{}
	}
	return s
}

// Add inserts value into the set.
func (s Set[T]) Add(v T) { s[v] = struct{}{} }

// Has returns true if v is present. A nil set has no members.
func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

// Len returns the number of members.
func (s Set[T]) Len() int { return len(s) }

// Normalized builds a string set, applying fn to every value and dropping empty results.
func Normalized(vals []string, fn func(string) string) Set[string] {
	s := make(Set[string], len(vals))
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if n := fn(v); n != "" {
			s.Add(n)
		}
	}
	return s
}

// Sorted returns the members of a string set in lexical order, for stable logging.
func Sorted(s Set[string]) []string {
	return slices.Sorted(maps.Keys(s))
}
