package predicate

import "fmt"

// Convert rewrites root into disjunctive normal form: an Or of Ands of leaves.
// The result is one of AlwaysTrue, AlwaysFalse, a single leaf, an And of leaves,
// or an Or whose children are leaves or Ands of leaves.
//
// Convert never modifies root; unchanged subtrees are shared with the result.
// The output size is not bounded: distributing an And over many Ors grows
// exponentially with the number of Ors.
//
// A malformed tree, eg. a Not without a child, is a programming error and
// panics.
func Convert(root Node) Node {
	switch n := root.(type) {
	case *AlwaysTrue, *AlwaysFalse, *Exists, *Absent, *Eq, *Ne:
		return n
	case *Not:
		return negate(n.child)
	case *And:
		converted := make([]Node, len(n.children))
		for i, c := range n.children {
			converted[i] = Convert(c)
		}
		return conjunction(converted)
	case *Or:
		converted := make([]Node, len(n.children))
		for i, c := range n.children {
			converted[i] = Convert(c)
		}
		return disjunction(converted)
	case nil:
		panic("predicate: cannot convert a nil node")
	default:
		panic(fmt.Sprintf("predicate: cannot convert node of type %T", root))
	}
}

// negate returns the normalized negation of n, pushing the negation down to the
// leaves.
func negate(n Node) Node {
	switch c := n.(type) {
	case *AlwaysFalse:
		return True()
	case *AlwaysTrue:
		return False()
	case *Not:
		if c.child == nil {
			panic("predicate: not requires exactly one child")
		}
		return Convert(c.child)
	case *And:
		// !(a && b) == !a || !b
		negated := make([]Node, len(c.children))
		for i, t := range c.children {
			negated[i] = negate(t)
		}
		return disjunction(negated)
	case *Or:
		// !(a || b) == !a && !b
		negated := make([]Node, len(c.children))
		for i, t := range c.children {
			negated[i] = negate(t)
		}
		return conjunction(negated)
	case *Eq:
		return NewNe(c.left, c.right)
	case *Ne:
		return NewEq(c.left, c.right)
	case *Exists:
		return NewAbsent(c.operand)
	case *Absent:
		return NewExists(c.operand)
	case nil:
		panic("predicate: not requires exactly one child")
	default:
		return NewNot(Convert(n))
	}
}

// conjunction combines already normalized children into a normalized And,
// distributing it over any Or children.
func conjunction(children []Node) Node {
	var (
		plain      []Node
		distribute []*Or
	)

	for _, c := range children {
		switch n := c.(type) {
		case *AlwaysTrue:
			continue
		case *AlwaysFalse:
			return False()
		case *And:
			plain = append(plain, n.children...)
		case *Or:
			distribute = append(distribute, n)
		default:
			plain = append(plain, n)
		}
	}

	switch {
	case len(plain) == 0 && len(distribute) == 0:
		return True()
	case len(distribute) == 0 && len(plain) == 1:
		return plain[0]
	case len(plain) == 0 && len(distribute) == 1:
		return distribute[0]
	case len(distribute) == 0:
		return &And{children: plain}
	}

	// (p) && (b || c) && (d || e) becomes
	// (p && b && d) || (p && c && d) || (p && b && e) || (p && c && e).
	// Each Or's children are taken in turn against every term built so far.
	terms := [][]Node{plain}
	for _, or := range distribute {
		next := make([][]Node, 0, len(terms)*len(or.children))
		for _, branch := range or.children {
			for _, term := range terms {
				joined := make([]Node, len(term), len(term)+1)
				copy(joined, term)
				if and, ok := branch.(*And); ok {
					joined = append(joined, and.children...)
				} else {
					joined = append(joined, branch)
				}
				next = append(next, joined)
			}
		}
		terms = next
	}

	out := make([]Node, len(terms))
	for i, t := range terms {
		out[i] = &And{children: t}
	}
	return &Or{children: out}
}

// disjunction combines already normalized children into a normalized Or.  And
// children are kept as-is; an Or is never distributed over an And.
func disjunction(children []Node) Node {
	var out []Node

	for _, c := range children {
		switch n := c.(type) {
		case *AlwaysFalse:
			continue
		case *AlwaysTrue:
			return True()
		case *Or:
			out = append(out, n.children...)
		default:
			out = append(out, n)
		}
	}

	switch len(out) {
	case 0:
		return False()
	case 1:
		return out[0]
	default:
		return &Or{children: out}
	}
}
