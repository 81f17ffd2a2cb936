package domain

import (
	"fmt"
	"math"
	"slices"
	"strconv"
)

// ValueKind is the discriminator of a Value.
type ValueKind string

const (
	KindBool  ValueKind = "bool"
	KindInt   ValueKind = "int"
	KindFloat ValueKind = "float"
	KindName  ValueKind = "name"
	KindSet   ValueKind = "set"
)

// floatTolerance mirrors the "nearly equal" comparison used for float conditions.
const floatTolerance = 1e-8

// Value is a discriminated variable value stored in a Data Bag.
// Only the field matching Kind is meaningful.
type Value struct {
	Kind  ValueKind `json:"kind" yaml:"kind"`
	Bool  bool      `json:"bool,omitempty" yaml:"bool,omitempty"`
	Int   int64     `json:"int,omitempty" yaml:"int,omitempty"`
	Float float64   `json:"float,omitempty" yaml:"float,omitempty"`
	Name  string    `json:"name,omitempty" yaml:"name,omitempty"`
	Set   []string  `json:"set,omitempty" yaml:"set,omitempty"`
}

// Bool builds a boolean value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Int builds an integer value.
func Int(i int64) Value { return Value{Kind: KindInt, Int: i} }

// Float builds a floating point value.
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// Name builds an enumerated name value.
func Name(s string) Value { return Value{Kind: KindName, Name: s} }

// Set builds a set value. Duplicates are dropped, order of first appearance is kept.
func Set(members ...string) Value {
	out := make([]string, 0, len(members))
	for _, m := range members {
		if !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	return Value{Kind: KindSet, Set: out}
}

// IsZero reports whether the value carries no kind at all.
func (v Value) IsZero() bool { return v.Kind == "" }

// Clone returns a deep copy (the set slice is not shared).
func (v Value) Clone() Value {
	if v.Set != nil {
		v.Set = slices.Clone(v.Set)
	}
	return v
}

// Contains reports whether a set value holds member.
func (v Value) Contains(member string) bool {
	return v.Kind == KindSet && slices.Contains(v.Set, member)
}

// Equal compares two values of the same kind. Floats use a small tolerance.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindBool:
		return v.Bool == o.Bool
	case KindInt:
		return v.Int == o.Int
	case KindFloat:
		return math.Abs(v.Float-o.Float) <= floatTolerance
	case KindName:
		return v.Name == o.Name
	case KindSet:
		if len(v.Set) != len(o.Set) {
			return false
		}
		for _, m := range v.Set {
			if !slices.Contains(o.Set, m) {
				return false
			}
		}
		return true
	}
	return true
}

// Compare applies op to v (left) and o (right).
// Ordering operations are only defined for numeric kinds; an int compared to a float
// is promoted. Unsupported combinations return an error.
func (v Value) Compare(op Operation, o Value) (bool, error) {
	if op == OpEqual || op == OpNotEqual {
		l, r := promote(v, o)
		if l.Kind != r.Kind {
			return false, &TypeMismatchError{Want: v.Kind, Got: o.Kind}
		}
		eq := l.Equal(r)
		if op == OpEqual {
			return eq, nil
		}
		return !eq, nil
	}

	l, r := promote(v, o)
	if l.Kind != r.Kind {
		return false, &TypeMismatchError{Want: v.Kind, Got: o.Kind}
	}
	var cmp int
	switch l.Kind {
	case KindInt:
		cmp = compareOrdered(l.Int, r.Int)
	case KindFloat:
		if math.Abs(l.Float-r.Float) <= floatTolerance {
			cmp = 0
		} else {
			cmp = compareOrdered(l.Float, r.Float)
		}
	default:
		return false, fmt.Errorf("operation %q is not defined for %s values", op, l.Kind)
	}

	switch op {
	case OpLess:
		return cmp < 0, nil
	case OpLessOrEqual:
		return cmp <= 0, nil
	case OpGreater:
		return cmp > 0, nil
	case OpGreaterOrEqual:
		return cmp >= 0, nil
	}
	return false, fmt.Errorf("unknown operation %q", op)
}

func promote(l, r Value) (Value, Value) {
	if l.Kind == KindInt && r.Kind == KindFloat {
		return Float(float64(l.Int)), r
	}
	if l.Kind == KindFloat && r.Kind == KindInt {
		return l, Float(float64(r.Int))
	}
	return l, r
}

func compareOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// String renders the value for logs and displays.
func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindName:
		return v.Name
	case KindSet:
		return fmt.Sprintf("%v", v.Set)
	}
	return "<none>"
}

// Operation is a comparison operator used by conditions.
type Operation string

const (
	OpEqual          Operation = "eq"
	OpNotEqual       Operation = "ne"
	OpLess           Operation = "lt"
	OpLessOrEqual    Operation = "le"
	OpGreater        Operation = "gt"
	OpGreaterOrEqual Operation = "ge"
)
