package predicate

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
	celast "github.com/google/cel-go/common/ast"
	"github.com/google/cel-go/common/operators"
	"github.com/google/cel-go/common/types"
)

var (
	ErrUnsupportedExpression = fmt.Errorf("unsupported expression")
)

// TreeParser parses an expression into a predicate tree.
type TreeParser interface {
	Parse(ctx context.Context, expr string) (Node, error)
}

// NewTreeParser returns a TreeParser for CEL expressions, eg.
// `event.data.id == "a" && (has(event.data.b) || event.data.c != 1)`.
func NewTreeParser(env *cel.Env) TreeParser {
	return &parser{env: env}
}

type parser struct {
	env *cel.Env
}

func (p *parser) Parse(ctx context.Context, expr string) (Node, error) {
	ast, issues := p.env.Parse(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	return toNode(ast.NativeRep().Expr())
}

func toNode(e celast.Expr) (Node, error) {
	switch e.Kind() {
	case celast.LiteralKind:
		// Bare `true` or `false`.
		if b, ok := e.AsLiteral().(types.Bool); ok {
			if b {
				return True(), nil
			}
			return False(), nil
		}
	case celast.SelectKind:
		// has(event.data.foo) expands into a test-only select.
		sel := e.AsSelect()
		if sel.IsTestOnly() {
			ident, err := selectIdent(sel.Operand())
			if err != nil {
				return nil, err
			}
			return NewExists(Field(ident + "." + sel.FieldName())), nil
		}
	case celast.CallKind:
		return callToNode(e)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedExpression, describe(e))
}

func callToNode(e celast.Expr) (Node, error) {
	call := e.AsCall()
	args := call.Args()

	switch call.FunctionName() {
	case operators.LogicalAnd, operators.LogicalOr:
		children := make([]Node, len(args))
		for n, arg := range args {
			child, err := toNode(arg)
			if err != nil {
				return nil, err
			}
			children[n] = child
		}
		if call.FunctionName() == operators.LogicalAnd {
			return NewAnd(children...), nil
		}
		return NewOr(children...), nil

	case operators.LogicalNot:
		if len(args) != 1 {
			break
		}
		child, err := toNode(args[0])
		if err != nil {
			return nil, err
		}
		return NewNot(child), nil

	case operators.Equals, operators.NotEquals:
		if len(args) != 2 {
			break
		}
		left, err := toOperand(args[0])
		if err != nil {
			return nil, err
		}
		right, err := toOperand(args[1])
		if err != nil {
			return nil, err
		}
		if call.FunctionName() == operators.Equals {
			return NewEq(left, right), nil
		}
		return NewNe(left, right), nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedExpression, describe(e))
}

// toOperand converts an operator argument into either a field or a literal.
func toOperand(e celast.Expr) (KeyOrValue, error) {
	switch e.Kind() {
	case celast.IdentKind, celast.SelectKind:
		ident, err := selectIdent(e)
		if err != nil {
			return KeyOrValue{}, err
		}
		return Field(ident), nil
	case celast.LiteralKind:
		if _, ok := e.AsLiteral().(types.Null); ok {
			return KeyOrValue{}, nil
		}
		s, err := literalScalar(e)
		if err != nil {
			return KeyOrValue{}, err
		}
		return Literal(Single(s)), nil
	case celast.ListKind:
		elems := e.AsList().Elements()
		items := make([]SingleValue, len(elems))
		for n, elem := range elems {
			s, err := literalScalar(elem)
			if err != nil {
				return KeyOrValue{}, err
			}
			items[n] = s
		}
		return Literal(List(items...)), nil
	}
	return KeyOrValue{}, fmt.Errorf("%w: operand %s", ErrUnsupportedExpression, describe(e))
}

func literalScalar(e celast.Expr) (SingleValue, error) {
	if e.Kind() == celast.LiteralKind {
		switch val := e.AsLiteral().Value().(type) {
		case string:
			return Text(val), nil
		case int64:
			return Int(val), nil
		}
	}
	return SingleValue{}, fmt.Errorf("%w: literal %s", ErrUnsupportedExpression, describe(e))
}

// selectIdent walks a select chain from the leaf field upwards to build the full
// ident, eg. "event.data.foo".
func selectIdent(e celast.Expr) (string, error) {
	ident := ""
	for e.Kind() == celast.SelectKind {
		sel := e.AsSelect()
		if ident == "" {
			ident = sel.FieldName()
		} else {
			ident = sel.FieldName() + "." + ident
		}
		e = sel.Operand()
	}
	if e.Kind() != celast.IdentKind {
		return "", fmt.Errorf("%w: operand %s", ErrUnsupportedExpression, describe(e))
	}
	if ident == "" {
		return e.AsIdent(), nil
	}
	return e.AsIdent() + "." + ident, nil
}

func describe(e celast.Expr) string {
	switch e.Kind() {
	case celast.CallKind:
		return fmt.Sprintf("call %q", e.AsCall().FunctionName())
	case celast.IdentKind:
		return fmt.Sprintf("ident %q", e.AsIdent())
	case celast.LiteralKind:
		return fmt.Sprintf("literal %v", e.AsLiteral())
	default:
		return fmt.Sprintf("expression kind %d", e.Kind())
	}
}
