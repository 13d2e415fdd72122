package predicate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tex is a test expression.
type tex string

func (e tex) Expression() string { return string(e) }

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(NewTreeParser(newEnv()), RegistryOpts{})

	a, err := r.Add(ctx, tex(`event.a == "x" && (event.b == 1 || event.c == 2)`))
	require.NoError(t, err)
	b, err := r.Add(ctx, tex(`event.a == "x" && event.b == 1 || event.d == 3`))
	require.NoError(t, err)

	require.Equal(t, 2, r.Len())

	t.Run("It stores normalized predicates", func(t *testing.T) {
		p, ok := r.Get(a)
		require.True(t, ok)
		require.Equal(t, `event.a == "x" && (event.b == 1 || event.c == 2)`, p.Expression)
		require.Equal(t,
			`or:(and:(eq:(event.a, "x"), eq:(event.b, 1)), and:(eq:(event.a, "x"), eq:(event.c, 2)))`,
			p.Root.String(),
		)
		require.Len(t, p.Terms(), 2)
	})

	t.Run("It finds predicates sharing a term", func(t *testing.T) {
		term := NewAnd(
			NewEq(Field("event.a"), Literal(TextValue("x"))),
			NewEq(Field("event.b"), Literal(IntValue(1))),
		)
		require.ElementsMatch(t, []uuid.UUID{a, b}, r.Sharing(term))

		only := r.Sharing(NewEq(Field("event.d"), Literal(IntValue(3))))
		require.Equal(t, []uuid.UUID{b}, only)

		require.Empty(t, r.Sharing(NewEq(Field("event.d"), Literal(IntValue(4)))))
	})

	t.Run("It removes predicates", func(t *testing.T) {
		require.NoError(t, r.Remove(ctx, a))
		require.Equal(t, 1, r.Len())

		_, ok := r.Get(a)
		require.False(t, ok)

		term := NewAnd(
			NewEq(Field("event.a"), Literal(TextValue("x"))),
			NewEq(Field("event.b"), Literal(IntValue(1))),
		)
		require.Equal(t, []uuid.UUID{b}, r.Sharing(term))
		require.Empty(t, r.Sharing(NewAnd(
			NewEq(Field("event.a"), Literal(TextValue("x"))),
			NewEq(Field("event.c"), Literal(IntValue(2))),
		)))

		require.ErrorIs(t, r.Remove(ctx, a), ErrPredicateNotFound)
	})

	t.Run("It returns parse errors", func(t *testing.T) {
		_, err := r.Add(ctx, tex(`event.a > 1`))
		require.ErrorIs(t, err, ErrUnsupportedExpression)
		require.Equal(t, 1, r.Len())
	})
}

func TestRegistry_Match(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(NewTreeParser(newEnv()), RegistryOpts{Concurrency: 4})

	always, err := r.Add(ctx, tex(`true`))
	require.NoError(t, err)
	negated, err := r.Add(ctx, tex(`!(false && event.a == "x")`))
	require.NoError(t, err)
	_, err = r.Add(ctx, tex(`event.a == "x"`))
	require.NoError(t, err)
	_, err = r.Add(ctx, tex(`false`))
	require.NoError(t, err)

	l := MapLookup(map[string]any{"event": map[string]any{"a": "x"}})

	matched, err := r.Match(ctx, l)
	require.NoError(t, err)
	require.ElementsMatch(t, []uuid.UUID{always, negated}, matched)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = r.Match(cctx, l)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRegistry_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewCachingParser(newEnv(), CachingParserOpts{})
	defer c.Stop()
	r := NewRegistry(c, RegistryOpts{})

	wg := sync.WaitGroup{}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			expr := fmt.Sprintf(`event.a == "%d" && (has(event.b) || event.c != %d)`, i, i)
			_, err := r.Add(ctx, tex(expr))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	require.Equal(t, 50, r.Len())

	shared := r.Sharing(NewAnd(
		NewEq(Field("event.a"), Literal(TextValue("7"))),
		NewExists(Field("event.b")),
	))
	require.Len(t, shared, 1)
}

func TestRegistry_Store(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	r := NewRegistry(NewTreeParser(newEnv()), RegistryOpts{Store: s})
	id, err := r.Add(ctx, tex(`!(has(event.a) || event.b == "y")`))
	require.NoError(t, err)
	removed, err := r.Add(ctx, tex(`event.c == 1`))
	require.NoError(t, err)
	require.NoError(t, r.Remove(ctx, removed))

	stored, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, `and:(absent:(event.a), ne:(event.b, "y"))`, stored.String())

	_, err = s.Get(ctx, removed)
	require.ErrorIs(t, err, ErrPredicateNotFound)

	t.Run("It restores predicates from a store", func(t *testing.T) {
		restored := NewRegistry(NewTreeParser(newEnv()), RegistryOpts{Store: s})
		n, err := restored.Restore(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, n)

		p, ok := restored.Get(id)
		require.True(t, ok)
		require.Empty(t, p.Expression)
		require.Equal(t, stored.String(), p.Root.String())
		require.Equal(t, []uuid.UUID{id}, restored.Sharing(stored))
	})

	t.Run("Restoring without a store is a no-op", func(t *testing.T) {
		n, err := NewRegistry(NewTreeParser(newEnv()), RegistryOpts{}).Restore(ctx)
		require.NoError(t, err)
		require.Zero(t, n)
	})
}

// failingDeletes is a store whose deletes always fail.
type failingDeletes struct {
	*Store
}

func (failingDeletes) Delete(ctx context.Context, id uuid.UUID) error {
	return errors.New("delete failed")
}

func TestRegistry_RemoveStoreFailure(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r := NewRegistry(NewTreeParser(newEnv()), RegistryOpts{Store: failingDeletes{s}})

	id, err := r.Add(ctx, tex(`event.a == "x"`))
	require.NoError(t, err)

	t.Run("A failed store delete leaves the predicate registered", func(t *testing.T) {
		require.EqualError(t, r.Remove(ctx, id), "delete failed")
		require.Equal(t, 1, r.Len())

		_, ok := r.Get(id)
		require.True(t, ok)
		require.Equal(t, []uuid.UUID{id}, r.Sharing(NewEq(Field("event.a"), Literal(TextValue("x")))))

		stored, err := s.Get(ctx, id)
		require.NoError(t, err)
		require.Equal(t, `eq:(event.a, "x")`, stored.String())
	})
}
