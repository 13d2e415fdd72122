package predicate

import (
	"strings"
)

// Node is an immutable element of a predicate tree.  The set of node types is
// closed: AlwaysTrue, AlwaysFalse, And, Or, Not, Exists, Absent, Eq and Ne.
//
// Nodes are never modified after construction, so subtrees may be shared freely
// between trees and goroutines.
type Node interface {
	// Op returns the operation tag for the node.
	Op() Operation
	// String returns the canonical printed form of the node, eg.
	// `and:(exists:(A), eq:(B, "x"))`.
	String() string
	// Evaluate evaluates the node using the given lookup.
	Evaluate(l Lookup) bool

	node()
}

// AlwaysTrue is the constant true.
type AlwaysTrue struct{}

// AlwaysFalse is the constant false.
type AlwaysFalse struct{}

// And is a conjunction of zero or more children.
type And struct {
	children []Node
}

// Or is a disjunction of zero or more children.
type Or struct {
	children []Node
}

// Not negates exactly one child.
type Not struct {
	child Node
}

// Exists is true when its operand resolves to a value.
type Exists struct {
	operand KeyOrValue
}

// Absent is true when its operand does not resolve to a value.
type Absent struct {
	operand KeyOrValue
}

// Eq compares two operands for equality.
type Eq struct {
	left, right KeyOrValue
}

// Ne compares two operands for inequality.
type Ne struct {
	left, right KeyOrValue
}

func (*AlwaysTrue) node()  {}
func (*AlwaysFalse) node() {}
func (*And) node()         {}
func (*Or) node()          {}
func (*Not) node()         {}
func (*Exists) node()      {}
func (*Absent) node()      {}
func (*Eq) node()          {}
func (*Ne) node()          {}

func (*AlwaysTrue) Op() Operation  { return OpTrue }
func (*AlwaysFalse) Op() Operation { return OpFalse }
func (*And) Op() Operation         { return OpAnd }
func (*Or) Op() Operation          { return OpOr }
func (*Not) Op() Operation         { return OpNot }
func (*Exists) Op() Operation      { return OpExists }
func (*Absent) Op() Operation      { return OpAbsent }
func (*Eq) Op() Operation          { return OpEq }
func (*Ne) Op() Operation          { return OpNe }

func (*AlwaysTrue) String() string  { return OpTrue.String() }
func (*AlwaysFalse) String() string { return OpFalse.String() }
func (a *And) String() string       { return printNodes(OpAnd, a.children) }
func (o *Or) String() string        { return printNodes(OpOr, o.children) }
func (n *Not) String() string       { return printNodes(OpNot, []Node{n.child}) }
func (e *Exists) String() string    { return printOperands(OpExists, e.operand) }
func (a *Absent) String() string    { return printOperands(OpAbsent, a.operand) }
func (e *Eq) String() string        { return printOperands(OpEq, e.left, e.right) }
func (n *Ne) String() string        { return printOperands(OpNe, n.left, n.right) }

func (*AlwaysTrue) Evaluate(Lookup) bool  { return true }
func (*AlwaysFalse) Evaluate(Lookup) bool { return false }

func (a *And) Evaluate(l Lookup) bool {
	for _, c := range a.children {
		if !c.Evaluate(l) {
			return false
		}
	}
	return true
}

func (o *Or) Evaluate(l Lookup) bool {
	for _, c := range o.children {
		if c.Evaluate(l) {
			return true
		}
	}
	return false
}

func (n *Not) Evaluate(l Lookup) bool { return !n.child.Evaluate(l) }

// NOTE: Leaf predicates have no evaluator yet and always report false.  Leaf
// specific evaluation lands with the matching engines.
func (*Exists) Evaluate(Lookup) bool { return false }
func (*Absent) Evaluate(Lookup) bool { return false }
func (*Eq) Evaluate(Lookup) bool     { return false }
func (*Ne) Evaluate(Lookup) bool     { return false }

// Children returns a copy of the conjunction's children.
func (a *And) Children() []Node { return append([]Node(nil), a.children...) }

// Children returns a copy of the disjunction's children.
func (o *Or) Children() []Node { return append([]Node(nil), o.children...) }

// Child returns the negated node.
func (n *Not) Child() Node { return n.child }

func (e *Exists) Operand() KeyOrValue { return e.operand }
func (a *Absent) Operand() KeyOrValue { return a.operand }

func (e *Eq) Left() KeyOrValue  { return e.left }
func (e *Eq) Right() KeyOrValue { return e.right }
func (n *Ne) Left() KeyOrValue  { return n.left }
func (n *Ne) Right() KeyOrValue { return n.right }

func printNodes(op Operation, children []Node) string {
	b := &strings.Builder{}
	b.WriteString(op.String())
	b.WriteString(":(")
	for i, c := range children {
		if i > 0 {
			b.WriteString(", ")
		}
		if c == nil {
			b.WriteString("null")
			continue
		}
		b.WriteString(c.String())
	}
	b.WriteByte(')')
	return b.String()
}

func printOperands(op Operation, operands ...KeyOrValue) string {
	b := &strings.Builder{}
	b.WriteString(op.String())
	b.WriteString(":(")
	for i, o := range operands {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(o.String())
	}
	b.WriteByte(')')
	return b.String()
}
