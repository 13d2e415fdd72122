package predicate

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTermIndex(t *testing.T) {
	idx := newTermIndex()
	a, b := uuid.New(), uuid.New()

	x := NewEq(Field("event.a"), Literal(TextValue("x")))
	y := NewEq(Field("event.b"), Literal(IntValue(1)))

	t.Run("It keeps colliding terms of one predicate apart", func(t *testing.T) {
		idx.set(7, a, x)
		idx.set(7, a, y)
		idx.set(7, b, y)
		require.Equal(t, 3, idx.tree.Len())

		found := func(term Node) []uuid.UUID {
			ids := []uuid.UUID{}
			idx.tree.Ascend(termEntry{fingerprint: 7}, func(e termEntry) bool {
				if e.fingerprint != 7 {
					return false
				}
				if Equal(e.term, term) {
					ids = append(ids, e.id)
				}
				return true
			})
			return ids
		}
		require.Equal(t, []uuid.UUID{a}, found(x))
		require.ElementsMatch(t, []uuid.UUID{a, b}, found(y))

		idx.tree.Delete(termEntry{fingerprint: 7, id: a, key: y.String()})
		require.Equal(t, []uuid.UUID{a}, found(x))
		require.Equal(t, []uuid.UUID{b}, found(y))
	})

	t.Run("It finds and removes terms by fingerprint", func(t *testing.T) {
		idx.add(a, x)
		idx.add(b, x)
		require.ElementsMatch(t, []uuid.UUID{a, b}, idx.sharing(x))

		idx.remove(a, x)
		require.Equal(t, []uuid.UUID{b}, idx.sharing(x))
		require.Empty(t, idx.sharing(NewExists(Field("event.c"))))
	})
}
