package predicate

// Operation tags the kind of a Node.
//
// Only OpFalse, OpTrue, OpAnd, OpOr, OpNot, OpExists, OpAbsent, OpEq and OpNe
// have node types.  The remaining tags are reserved for leaf kinds which are not
// yet implemented.
type Operation uint8

const (
	OpUndefined Operation = iota
	OpFalse
	OpTrue
	OpAnd
	OpOr
	OpNot
	OpExists
	OpAbsent
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpContains
	OpStartsWith
	OpEndsWith
	OpMatches
)

var opNames = [...]string{
	OpUndefined:  "undefined",
	OpFalse:      "false",
	OpTrue:       "true",
	OpAnd:        "and",
	OpOr:         "or",
	OpNot:        "not",
	OpExists:     "exists",
	OpAbsent:     "absent",
	OpEq:         "eq",
	OpNe:         "ne",
	OpLt:         "lt",
	OpLe:         "le",
	OpGt:         "gt",
	OpGe:         "ge",
	OpContains:   "contains",
	OpStartsWith: "starts_with",
	OpEndsWith:   "ends_with",
	OpMatches:    "matches",
}

func (o Operation) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return opNames[OpUndefined]
}

// parseOperation is the inverse of Operation.String.
func parseOperation(name string) (Operation, bool) {
	for n, s := range opNames {
		if s == name {
			return Operation(n), true
		}
	}
	return OpUndefined, false
}
