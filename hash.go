package predicate

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint returns a 64-bit hash of the node's printed form.  Structurally
// equal nodes share a fingerprint.
func Fingerprint(n Node) uint64 {
	return xxhash.Sum64String(n.String())
}

// FingerprintString returns the fingerprint of n in base 36, suitable as a map
// or storage key.
func FingerprintString(n Node) string {
	return strconv.FormatUint(Fingerprint(n), 36)
}

// Equal reports whether a and b are structurally equal: the same operation tags
// with the same children and operands.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Op() != b.Op() {
		return false
	}
	return a.String() == b.String()
}

// Terms returns the independently plannable terms of a normalized root: the
// children of an Or, or the root itself.
func Terms(root Node) []Node {
	if or, ok := root.(*Or); ok {
		return or.Children()
	}
	return []Node{root}
}
