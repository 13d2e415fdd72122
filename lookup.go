package predicate

import (
	"math"
	"sync"

	"github.com/ohler55/ojg/jp"
)

// Lookup resolves field names to values.  Unknown fields resolve to NoValue;
// Resolve never fails.
type Lookup interface {
	Resolve(field string) Value
}

// LookupFunc adapts a function to a Lookup.
type LookupFunc func(field string) Value

func (f LookupFunc) Resolve(field string) Value { return f(field) }

// MapLookup returns a Lookup over decoded JSON-like data, eg. an event payload.
// Fields are dotted JSONPath expressions such as "event.data.ids[0]".
func MapLookup(data map[string]any) Lookup {
	return &mapLookup{data: data}
}

type mapLookup struct {
	data map[string]any
	// paths caches parsed paths, keyed by field name.
	paths sync.Map
}

func (m *mapLookup) Resolve(field string) Value {
	var x jp.Expr
	if cached, ok := m.paths.Load(field); ok {
		x = cached.(jp.Expr)
	} else {
		parsed, err := jp.ParseString(field)
		if err != nil {
			return NoValue
		}
		m.paths.Store(field, parsed)
		x = parsed
	}

	res := x.Get(m.data)
	if len(res) == 0 {
		return NoValue
	}
	return valueOf(res[0])
}

// valueOf maps a decoded Go value onto a Value.  Anything which isn't a scalar,
// or a slice of scalars, is absent.
func valueOf(v any) Value {
	if s, ok := scalarOf(v); ok {
		return Single(s)
	}

	switch val := v.(type) {
	case []any:
		items := make([]SingleValue, 0, len(val))
		for _, item := range val {
			s, ok := scalarOf(item)
			if !ok {
				return NoValue
			}
			items = append(items, s)
		}
		return List(items...)
	case []string:
		items := make([]SingleValue, len(val))
		for i, item := range val {
			items[i] = Text(item)
		}
		return List(items...)
	case []int64:
		items := make([]SingleValue, len(val))
		for i, item := range val {
			items[i] = Int(item)
		}
		return List(items...)
	}
	return NoValue
}

func scalarOf(v any) (SingleValue, bool) {
	switch val := v.(type) {
	case string:
		return Text(val), true
	case int:
		return Int(int64(val)), true
	case int32:
		return Int(int64(val)), true
	case int64:
		return Int(val), true
	case float64:
		// JSON numbers decode as floats.  Only integral values are representable.
		if val != math.Trunc(val) || val >= 1<<63 || val < -(1<<63) {
			return SingleValue{}, false
		}
		return Int(int64(val)), true
	}
	return SingleValue{}, false
}
