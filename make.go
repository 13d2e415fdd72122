package predicate

import "fmt"

var (
	alwaysTrue  = &AlwaysTrue{}
	alwaysFalse = &AlwaysFalse{}
)

// True returns the shared AlwaysTrue node.
func True() *AlwaysTrue { return alwaysTrue }

// False returns the shared AlwaysFalse node.
func False() *AlwaysFalse { return alwaysFalse }

// NewAnd returns a conjunction over children.  The slice is copied; nil
// children panic.
func NewAnd(children ...Node) *And {
	return &And{children: copyChildren(OpAnd, children)}
}

// NewOr returns a disjunction over children.  The slice is copied; nil
// children panic.
func NewOr(children ...Node) *Or {
	return &Or{children: copyChildren(OpOr, children)}
}

// NewNot negates child, which must not be nil.
func NewNot(child Node) *Not {
	if child == nil {
		panic("predicate: not requires exactly one child")
	}
	return &Not{child: child}
}

func NewExists(operand KeyOrValue) *Exists { return &Exists{operand: operand} }

func NewAbsent(operand KeyOrValue) *Absent { return &Absent{operand: operand} }

func NewEq(left, right KeyOrValue) *Eq { return &Eq{left: left, right: right} }

func NewNe(left, right KeyOrValue) *Ne { return &Ne{left: left, right: right} }

func copyChildren(op Operation, children []Node) []Node {
	out := make([]Node, len(children))
	for i, c := range children {
		if c == nil {
			panic(fmt.Sprintf("predicate: nil child %d in %s", i, op))
		}
		out[i] = c
	}
	return out
}
