package predicate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNodeString(t *testing.T) {
	tests := []struct {
		node     Node
		expected string
	}{
		{True(), "true"},
		{False(), "false"},
		{NewAnd(), "and:()"},
		{NewOr(ex("A"), False()), "or:(exists:(A), false)"},
		{NewNot(ex("A")), "not:(exists:(A))"},
		{NewAbsent(Field("event.data.id")), "absent:(event.data.id)"},
		{NewEq(Field("A"), Literal(TextValue("b"))), `eq:(A, "b")`},
		{NewNe(Field("A"), Literal(IntValue(-12))), "ne:(A, -12)"},
		{NewEq(Field("A"), KeyOrValue{}), "eq:(A, null)"},
		{NewEq(Literal(NoValue), Field("A")), "eq:(null, A)"},
		{NewEq(Field("A"), Literal(List(Text("x"), Int(1), SingleValue{}))), `eq:(A, ["x", 1, null])`},
		{NewExists(Literal(List())), "exists:([])"},
		{NewEq(Field("A"), Literal(TextValue(`say "hi"`))), `eq:(A, "say \"hi\"")`},
	}

	for _, test := range tests {
		require.Equal(t, test.expected, test.node.String())
	}
}

func TestOperation(t *testing.T) {
	require.Equal(t, "starts_with", OpStartsWith.String())
	require.Equal(t, "undefined", Operation(200).String())

	for op := OpUndefined; op <= OpMatches; op++ {
		parsed, ok := parseOperation(op.String())
		require.True(t, ok)
		require.Equal(t, op, parsed)
	}

	_, ok := parseOperation("xor")
	require.False(t, ok)
}

func TestNodeEvaluate(t *testing.T) {
	l := MapLookup(map[string]any{"A": "x"})

	t.Run("Terminals evaluate to their constant", func(t *testing.T) {
		require.True(t, True().Evaluate(l))
		require.False(t, False().Evaluate(l))
	})

	t.Run("Junctions combine their children", func(t *testing.T) {
		require.True(t, NewAnd().Evaluate(l))
		require.True(t, NewAnd(True(), True()).Evaluate(l))
		require.False(t, NewAnd(True(), False()).Evaluate(l))
		require.False(t, NewOr().Evaluate(l))
		require.True(t, NewOr(False(), True()).Evaluate(l))
		require.True(t, NewNot(False()).Evaluate(l))
	})

	t.Run("Leaves have no evaluator and report false", func(t *testing.T) {
		require.False(t, ex("A").Evaluate(l))
		require.False(t, NewAbsent(Field("B")).Evaluate(l))
		require.False(t, NewEq(Field("A"), Literal(TextValue("x"))).Evaluate(l))
		require.False(t, NewNe(Field("A"), Literal(TextValue("y"))).Evaluate(l))
		require.True(t, NewNot(ex("A")).Evaluate(l))
	})
}

func TestAccessors(t *testing.T) {
	a, b := ex("A"), ex("B")
	and := NewAnd(a, b)

	children := and.Children()
	children[0] = b
	require.Equal(t, "and:(exists:(A), exists:(B))", and.String(), "children must be copied")

	eq := NewEq(Field("A"), Literal(IntValue(3)))
	field, ok := eq.Left().AsField()
	require.True(t, ok)
	require.Equal(t, "A", field)

	val, ok := eq.Right().AsValue()
	require.True(t, ok)
	n, ok := val.AsSingle()
	require.True(t, ok)
	i, ok := n.AsInt()
	require.True(t, ok)
	require.EqualValues(t, 3, i)

	_, ok = n.AsText()
	require.False(t, ok)

	list := List(Text("a"), Text("b"))
	items, ok := list.AsList()
	require.True(t, ok)
	items[0] = Text("z")
	require.Equal(t, `["a", "b"]`, list.String())
}

func TestKeyOrValueResolve(t *testing.T) {
	l := LookupFunc(func(field string) Value {
		if field == "A" {
			return IntValue(1)
		}
		return NoValue
	})

	require.Equal(t, IntValue(1), Field("A").Resolve(l))
	require.True(t, Field("B").Resolve(l).IsAbsent())
	require.Equal(t, TextValue("x"), Literal(TextValue("x")).Resolve(l))
	require.True(t, KeyOrValue{}.Resolve(l).IsAbsent())
	require.True(t, Field("A").Resolve(nil).IsAbsent())
}
