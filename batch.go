package predicate

import (
	"runtime"

	"github.com/sourcegraph/conc/iter"
)

// ConvertAll converts every root concurrently, using at most concurrency
// goroutines.  The result at index i is Convert(roots[i]).  A concurrency of
// zero or less uses GOMAXPROCS.
func ConvertAll(roots []Node, concurrency int) []Node {
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	m := iter.Mapper[Node, Node]{MaxGoroutines: concurrency}
	return m.Map(roots, func(n *Node) Node {
		return Convert(*n)
	})
}
