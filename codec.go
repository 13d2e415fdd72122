package predicate

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"unicode/utf8"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	ErrInvalidEncoding = fmt.Errorf("invalid node encoding")
)

// MarshalNode encodes a node tree as a protobuf Struct.
//
// Integers are encoded as decimal strings: Struct numbers are doubles, which
// would lose precision above 2^53.  Struct strings must be valid UTF-8, so text
// and field names that aren't are carried base64 encoded.
func MarshalNode(n Node) ([]byte, error) {
	st, err := structpb.NewStruct(encodeNode(n))
	if err != nil {
		return nil, err
	}
	return proto.Marshal(st)
}

// UnmarshalNode decodes a node tree encoded by MarshalNode.
func UnmarshalNode(byt []byte) (Node, error) {
	st := &structpb.Struct{}
	if err := proto.Unmarshal(byt, st); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEncoding, err)
	}
	return decodeNode(st.AsMap())
}

func encodeNode(n Node) map[string]any {
	m := map[string]any{"op": n.Op().String()}

	switch v := n.(type) {
	case *And:
		m["children"] = encodeChildren(v.children)
	case *Or:
		m["children"] = encodeChildren(v.children)
	case *Not:
		m["child"] = encodeNode(v.child)
	case *Exists:
		m["operand"] = encodeOperand(v.operand)
	case *Absent:
		m["operand"] = encodeOperand(v.operand)
	case *Eq:
		m["left"] = encodeOperand(v.left)
		m["right"] = encodeOperand(v.right)
	case *Ne:
		m["left"] = encodeOperand(v.left)
		m["right"] = encodeOperand(v.right)
	}
	return m
}

func encodeChildren(children []Node) []any {
	out := make([]any, len(children))
	for i, c := range children {
		out[i] = encodeNode(c)
	}
	return out
}

func encodeOperand(k KeyOrValue) map[string]any {
	switch k.kind {
	case OperandField:
		if !utf8.ValidString(k.field) {
			return map[string]any{"field_bytes": base64.StdEncoding.EncodeToString([]byte(k.field))}
		}
		return map[string]any{"field": k.field}
	case OperandValue:
		return map[string]any{"value": encodeValue(k.value)}
	default:
		return map[string]any{}
	}
}

func encodeValue(v Value) map[string]any {
	switch v.kind {
	case ValueSingle:
		return map[string]any{"single": encodeScalar(v.single)}
	case ValueList:
		items := make([]any, len(v.list))
		for i, s := range v.list {
			items[i] = encodeScalar(s)
		}
		return map[string]any{"list": items}
	default:
		return map[string]any{}
	}
}

func encodeScalar(s SingleValue) map[string]any {
	switch s.kind {
	case ScalarText:
		if !utf8.ValidString(s.text) {
			return map[string]any{"bytes": base64.StdEncoding.EncodeToString([]byte(s.text))}
		}
		return map[string]any{"text": s.text}
	case ScalarInt:
		return map[string]any{"int": strconv.FormatInt(s.num, 10)}
	default:
		return map[string]any{}
	}
}

func decodeNode(m map[string]any) (Node, error) {
	name, _ := m["op"].(string)
	op, ok := parseOperation(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown operation %q", ErrInvalidEncoding, name)
	}

	switch op {
	case OpTrue:
		return True(), nil
	case OpFalse:
		return False(), nil
	case OpAnd, OpOr:
		raw, ok := m["children"].([]any)
		if !ok && m["children"] != nil {
			return nil, fmt.Errorf("%w: %s children must be a list", ErrInvalidEncoding, op)
		}
		children := make([]Node, len(raw))
		for i, r := range raw {
			cm, ok := r.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s child %d must be a node", ErrInvalidEncoding, op, i)
			}
			c, err := decodeNode(cm)
			if err != nil {
				return nil, err
			}
			children[i] = c
		}
		if op == OpAnd {
			return &And{children: children}, nil
		}
		return &Or{children: children}, nil
	case OpNot:
		cm, ok := m["child"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: not requires exactly one child", ErrInvalidEncoding)
		}
		c, err := decodeNode(cm)
		if err != nil {
			return nil, err
		}
		return NewNot(c), nil
	case OpExists, OpAbsent:
		k, err := decodeOperand(m["operand"])
		if err != nil {
			return nil, err
		}
		if op == OpExists {
			return NewExists(k), nil
		}
		return NewAbsent(k), nil
	case OpEq, OpNe:
		l, err := decodeOperand(m["left"])
		if err != nil {
			return nil, err
		}
		r, err := decodeOperand(m["right"])
		if err != nil {
			return nil, err
		}
		if op == OpEq {
			return NewEq(l, r), nil
		}
		return NewNe(l, r), nil
	}

	return nil, fmt.Errorf("%w: operation %q has no node type", ErrInvalidEncoding, op)
}

func decodeOperand(raw any) (KeyOrValue, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return KeyOrValue{}, fmt.Errorf("%w: operand must be an object", ErrInvalidEncoding)
	}
	if f, ok := m["field"]; ok {
		name, ok := f.(string)
		if !ok {
			return KeyOrValue{}, fmt.Errorf("%w: field name must be a string", ErrInvalidEncoding)
		}
		return Field(name), nil
	}
	if f, ok := m["field_bytes"]; ok {
		name, err := decodeBytes(f)
		if err != nil {
			return KeyOrValue{}, err
		}
		return Field(name), nil
	}
	if v, ok := m["value"]; ok {
		val, err := decodeValue(v)
		if err != nil {
			return KeyOrValue{}, err
		}
		return Literal(val), nil
	}
	return KeyOrValue{}, nil
}

func decodeValue(raw any) (Value, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return NoValue, fmt.Errorf("%w: value must be an object", ErrInvalidEncoding)
	}
	if s, ok := m["single"]; ok {
		sv, err := decodeScalar(s)
		if err != nil {
			return NoValue, err
		}
		return Single(sv), nil
	}
	if l, ok := m["list"]; ok {
		raw, ok := l.([]any)
		if !ok {
			return NoValue, fmt.Errorf("%w: list value must be a list", ErrInvalidEncoding)
		}
		items := make([]SingleValue, len(raw))
		for i, r := range raw {
			sv, err := decodeScalar(r)
			if err != nil {
				return NoValue, err
			}
			items[i] = sv
		}
		return List(items...), nil
	}
	return NoValue, nil
}

func decodeScalar(raw any) (SingleValue, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return SingleValue{}, fmt.Errorf("%w: scalar must be an object", ErrInvalidEncoding)
	}
	if t, ok := m["text"]; ok {
		str, ok := t.(string)
		if !ok {
			return SingleValue{}, fmt.Errorf("%w: text scalar must be a string", ErrInvalidEncoding)
		}
		return Text(str), nil
	}
	if b, ok := m["bytes"]; ok {
		str, err := decodeBytes(b)
		if err != nil {
			return SingleValue{}, err
		}
		return Text(str), nil
	}
	if i, ok := m["int"]; ok {
		str, _ := i.(string)
		n, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return SingleValue{}, fmt.Errorf("%w: int scalar %q", ErrInvalidEncoding, str)
		}
		return Int(n), nil
	}
	return SingleValue{}, nil
}

func decodeBytes(raw any) (string, error) {
	str, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: bytes must be a string", ErrInvalidEncoding)
	}
	byt, err := base64.StdEncoding.DecodeString(str)
	if err != nil {
		return "", fmt.Errorf("%w: bytes %q", ErrInvalidEncoding, str)
	}
	return string(byt), nil
}
