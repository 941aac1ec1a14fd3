// Package normalization maps loosely written configuration values onto typed enums.
package normalization

import (
	"maps"
	"slices"
	"strings"

	ferrors "git.home.luguber.info/inful/statique/internal/foundation/errors"
)

// Normalizer maps case-insensitive, whitespace-tolerant strings to enum values.
type Normalizer[T comparable] struct {
	name         string
	values       map[string]T
	defaultValue T
}

// NewNormalizer creates a normalizer for the enum called name. Keys are folded to
// lower case; unknown input normalizes to defaultValue.
func NewNormalizer[T comparable](name string, values map[string]T, defaultValue T) *Normalizer[T] {
	folded := make(map[string]T, len(values))
	for k, v := range values {
		folded[fold(k)] = v
	}
	return &Normalizer[T]{name: name, values: folded, defaultValue: defaultValue}
}

// Normalize returns the enum value for raw, or the default when raw is unknown or empty.
func (n *Normalizer[T]) Normalize(raw string) T {
	if v, ok := n.values[fold(raw)]; ok {
		return v
	}
	return n.defaultValue
}

// Parse is Normalize for user input: empty input yields the default, unknown input a
// validation error listing the accepted values.
func (n *Normalizer[T]) Parse(raw string) (T, error) {
	if fold(raw) == "" {
		return n.defaultValue, nil
	}
	if v, ok := n.values[fold(raw)]; ok {
		return v, nil
	}
	var zero T
	return zero, ferrors.ValidationError("invalid "+n.name).
		WithContext("value", raw).
		WithContext("valid", strings.Join(n.ValidKeys(), ", ")).
		Build()
}

// ValidKeys returns the accepted keys in sorted order.
func (n *Normalizer[T]) ValidKeys() []string {
	return slices.Sorted(maps.Keys(n.values))
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
