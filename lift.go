package predicate

import (
	"fmt"
	"strconv"
	"strings"
)

// VarPrefix is the ident prefix that lifted literals are replaced with.
const VarPrefix = "vars."

var replace = []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}

// LiftedArgs represents a set of variables that have been lifted from expressions and
// replaced with identifiers, eg `id == "foo"` becomes `id == vars.a`, with "foo" lifted
// as "vars.a".
type LiftedArgs interface {
	Get(val string) (any, bool)
	Map() map[string]any
}

// liftLiterals lifts quoted literals into variables, allowing us to normalize
// expressions to increase cache hit rates.
func liftLiterals(expr string) (string, LiftedArgs) {
	// Escape sequences and triple-quoted strings need CEL's own unquoting, so
	// skip the lifting of literals out of the expression.
	if strings.Contains(expr, `\`) || strings.Contains(expr, `"""`) || strings.Contains(expr, `'''`) {
		return expr, nil
	}
	// Lifted idents would collide with fields already named vars.*, and list
	// literals only hold literal elements.
	if strings.Contains(expr, VarPrefix) || strings.Contains(expr, "[") {
		return expr, nil
	}

	lp := liftParser{expr: expr}
	lifted, args := lp.lift()
	if lp.unterminated || lp.prefixed {
		// Leave invalid expressions for the parser to report, and raw or byte
		// strings for the parser to interpret.
		return expr, nil
	}
	return lifted, args
}

type liftParser struct {
	expr string
	idx  int

	rewritten *strings.Builder

	// varCounter counts the number of variables lifted.
	varCounter int

	vars pointerArgMap

	unterminated bool
	// prefixed is set when a quote directly follows an identifier character,
	// eg. r"raw" or b"bytes".
	prefixed bool
}

func (l *liftParser) lift() (string, LiftedArgs) {
	l.vars = pointerArgMap{
		expr: l.expr,
		vars: map[string]argMapValue{},
	}

	l.rewritten = &strings.Builder{}

	for l.idx < len(l.expr) {
		char := l.expr[l.idx]

		l.idx++

		if (char == '"' || char == '\'') && l.idx > 1 && isIdentChar(l.expr[l.idx-2]) {
			l.prefixed = true
			break
		}

		switch char {
		case '"':
			val := l.consumeString('"')
			l.addLiftedVar(val)
		case '\'':
			val := l.consumeString('\'')
			l.addLiftedVar(val)
		default:
			l.rewritten.WriteByte(char)
		}
	}

	return l.rewritten.String(), l.vars
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (l *liftParser) addLiftedVar(val argMapValue) {
	if l.varCounter >= len(replace) {
		// Out of variable names; leave the literal inline.
		l.rewritten.WriteString(strconv.Quote(val.get(l.expr)))
		return
	}

	letter := replace[l.varCounter]

	l.vars.vars[letter] = val
	l.varCounter++

	l.rewritten.WriteString(VarPrefix + letter)
}

func (l *liftParser) consumeString(quoteChar byte) argMapValue {
	offset := l.idx
	length := 0
	for l.idx < len(l.expr) {
		char := l.expr[l.idx]
		l.idx++

		if char == quoteChar {
			return argMapValue{offset, length}
		}
		length++
	}

	l.unterminated = true
	return argMapValue{offset, length}
}

// pointerArgMap takes the original expression, and adds pointers to the original expression
// in order to grab variables.
//
// It does this by pointing to the offset and length of data within the expression, as opposed
// to extracting the value into a new string.  This greatly reduces memory growth & heap allocations.
type pointerArgMap struct {
	expr string
	vars map[string]argMapValue
}

func (p pointerArgMap) Map() map[string]any {
	res := map[string]any{}
	for k, v := range p.vars {
		res[k] = v.get(p.expr)
	}
	return res
}

func (p pointerArgMap) Get(key string) (any, bool) {
	val, ok := p.vars[key]
	if !ok {
		return nil, false
	}
	return val.get(p.expr), true
}

// argMapValue represents an offset and length for an argument in an expression string
type argMapValue [2]int

func (a argMapValue) get(expr string) string {
	return expr[a[0] : a[0]+a[1]]
}

// bindLiterals replaces fields named by lifted variables with their literal
// values, undoing liftLiterals on a parsed tree.
func bindLiterals(n Node, args LiftedArgs) (Node, error) {
	if args == nil {
		return n, nil
	}

	bindOperand := func(k KeyOrValue) (KeyOrValue, error) {
		field, ok := k.AsField()
		if !ok || !strings.HasPrefix(field, VarPrefix) {
			return k, nil
		}
		val, ok := args.Get(strings.TrimPrefix(field, VarPrefix))
		if !ok {
			return KeyOrValue{}, fmt.Errorf("unbound lifted variable %q", field)
		}
		str, ok := val.(string)
		if !ok {
			return KeyOrValue{}, fmt.Errorf("lifted variable %q is not a string", field)
		}
		return Literal(TextValue(str)), nil
	}

	bindChildren := func(children []Node) ([]Node, error) {
		out := make([]Node, len(children))
		for i, c := range children {
			bound, err := bindLiterals(c, args)
			if err != nil {
				return nil, err
			}
			out[i] = bound
		}
		return out, nil
	}

	switch v := n.(type) {
	case *And:
		children, err := bindChildren(v.children)
		if err != nil {
			return nil, err
		}
		return &And{children: children}, nil
	case *Or:
		children, err := bindChildren(v.children)
		if err != nil {
			return nil, err
		}
		return &Or{children: children}, nil
	case *Not:
		child, err := bindLiterals(v.child, args)
		if err != nil {
			return nil, err
		}
		return NewNot(child), nil
	case *Exists:
		op, err := bindOperand(v.operand)
		if err != nil {
			return nil, err
		}
		return NewExists(op), nil
	case *Absent:
		op, err := bindOperand(v.operand)
		if err != nil {
			return nil, err
		}
		return NewAbsent(op), nil
	case *Eq:
		l, err := bindOperand(v.left)
		if err != nil {
			return nil, err
		}
		r, err := bindOperand(v.right)
		if err != nil {
			return nil, err
		}
		return NewEq(l, r), nil
	case *Ne:
		l, err := bindOperand(v.left)
		if err != nil {
			return nil, err
		}
		r, err := bindOperand(v.right)
		if err != nil {
			return nil, err
		}
		return NewNe(l, r), nil
	default:
		return n, nil
	}
}
