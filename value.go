package predicate

import (
	"strconv"
	"strings"
)

// ScalarKind is the kind of a SingleValue.
type ScalarKind uint8

const (
	ScalarAbsent ScalarKind = iota
	ScalarText
	ScalarInt
)

// SingleValue is a scalar: absent, text or an integer.  The zero value is absent.
type SingleValue struct {
	kind ScalarKind
	text string
	num  int64
}

// Text returns a text scalar.
func Text(s string) SingleValue { return SingleValue{kind: ScalarText, text: s} }

// Int returns an integer scalar.
func Int(n int64) SingleValue { return SingleValue{kind: ScalarInt, num: n} }

func (s SingleValue) Kind() ScalarKind { return s.kind }

// AsText returns the text held by the scalar, if it holds text.
func (s SingleValue) AsText() (string, bool) { return s.text, s.kind == ScalarText }

// AsInt returns the integer held by the scalar, if it holds an integer.
func (s SingleValue) AsInt() (int64, bool) { return s.num, s.kind == ScalarInt }

func (s SingleValue) IsAbsent() bool { return s.kind == ScalarAbsent }

func (s SingleValue) String() string {
	switch s.kind {
	case ScalarText:
		return strconv.Quote(s.text)
	case ScalarInt:
		return strconv.FormatInt(s.num, 10)
	default:
		return "null"
	}
}

// ValueKind is the kind of a Value.
type ValueKind uint8

const (
	ValueAbsent ValueKind = iota
	ValueSingle
	ValueList
)

// Value is an operand value: absent, a single scalar, or an ordered list of
// scalars for multi-valued fields.  The zero value is absent.
type Value struct {
	kind   ValueKind
	single SingleValue
	list   []SingleValue
}

// NoValue is the absent Value.  Lookups return it for unknown fields.
var NoValue = Value{}

// Single wraps a scalar as a Value.
func Single(s SingleValue) Value { return Value{kind: ValueSingle, single: s} }

// List returns a list Value.  The items are copied.
func List(items ...SingleValue) Value {
	return Value{kind: ValueList, list: append([]SingleValue(nil), items...)}
}

// TextValue is shorthand for Single(Text(s)).
func TextValue(s string) Value { return Single(Text(s)) }

// IntValue is shorthand for Single(Int(n)).
func IntValue(n int64) Value { return Single(Int(n)) }

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsAbsent() bool { return v.kind == ValueAbsent }

// AsSingle returns the scalar held by v, if v is a single value.
func (v Value) AsSingle() (SingleValue, bool) { return v.single, v.kind == ValueSingle }

// AsList returns a copy of the items held by v, if v is a list.
func (v Value) AsList() ([]SingleValue, bool) {
	if v.kind != ValueList {
		return nil, false
	}
	return append([]SingleValue(nil), v.list...), true
}

func (v Value) String() string {
	switch v.kind {
	case ValueSingle:
		return v.single.String()
	case ValueList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "null"
	}
}

// OperandKind is the kind of a KeyOrValue.
type OperandKind uint8

const (
	OperandAbsent OperandKind = iota
	OperandField
	OperandValue
)

// KeyOrValue is a leaf operand: either a named field or an inline literal.  The
// zero value is a wholly absent operand.
type KeyOrValue struct {
	kind  OperandKind
	field string
	value Value
}

// Field returns an operand naming a field, eg. "event.data.id".
func Field(name string) KeyOrValue { return KeyOrValue{kind: OperandField, field: name} }

// Literal returns an inline literal operand.
func Literal(v Value) KeyOrValue { return KeyOrValue{kind: OperandValue, value: v} }

func (k KeyOrValue) Kind() OperandKind { return k.kind }

// AsField returns the field name, if the operand names a field.
func (k KeyOrValue) AsField() (string, bool) { return k.field, k.kind == OperandField }

// AsValue returns the literal, if the operand is a literal.
func (k KeyOrValue) AsValue() (Value, bool) { return k.value, k.kind == OperandValue }

// Resolve returns the operand's value: literals are returned as-is, fields are
// resolved through l.
func (k KeyOrValue) Resolve(l Lookup) Value {
	switch k.kind {
	case OperandField:
		if l == nil {
			return NoValue
		}
		return l.Resolve(k.field)
	case OperandValue:
		return k.value
	default:
		return NoValue
	}
}

// String dumps the operand: field names print bare, literals as values and an
// absent operand as null.
func (k KeyOrValue) String() string {
	switch k.kind {
	case OperandField:
		return k.field
	case OperandValue:
		return k.value.String()
	default:
		return "null"
	}
}
