package schema

import (
	"github.com/tordrt/relcsv/internal/value"
)

// SameShape reports whether two objects share a shape: the same number of
// pairs, and every key of a present in b holding a value of the same kind.
// Nested values are compared by kind only.
func SameShape(a, b value.Value) bool {
	if !a.IsObject() || !b.IsObject() {
		return false
	}
	if a.Len() != b.Len() {
		return false
	}

	for _, p := range a.Pairs() {
		other, ok := b.Lookup(p.Key)
		if !ok {
			return false
		}
		if other.Kind() != p.Value.Kind() {
			return false
		}
	}
	return true
}
