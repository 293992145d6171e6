// Package types defines the value, row, column, and table shapes shared by
// the planner, executor, and storage layers.
package types

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Kind tags a Value's variant. The numeric order of kinds is not used for
// comparison: Compare reports two different non-numeric kinds as
// incomparable.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
)

// Value is the tagged variant Null | Bool | Int | Float | Str.
type Value struct {
	Kind Kind
	Bool bool
	Int  int64
	Flt  float64
	Str  string
}

// Null is the canonical null value.
var Null = Value{Kind: KindNull}

// NewBool, NewInt, NewFloat, NewStr construct Values of the matching kind.
func NewBool(b bool) Value    { return Value{Kind: KindBool, Bool: b} }
func NewInt(i int64) Value    { return Value{Kind: KindInt, Int: i} }
func NewFloat(f float64) Value { return Value{Kind: KindFloat, Flt: f} }
func NewStr(s string) Value   { return Value{Kind: KindStr, Str: s} }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Float returns v's numeric value as a float64, promoting Int to Float.
// Only valid for Int/Float kinds.
func (v Value) Float() float64 {
	if v.Kind == KindInt {
		return float64(v.Int)
	}
	return v.Flt
}

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "NULL"
	case KindBool:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%v", v.Flt)
	case KindStr:
		return v.Str
	default:
		return "?"
	}
}

// TypeName returns the Datatype name this value's kind corresponds to, for
// error messages. Null has no fixed type name of its own.
func (v Value) TypeName() string {
	switch v.Kind {
	case KindBool:
		return "BOOL"
	case KindInt:
		return "INT"
	case KindFloat:
		return "FLOAT"
	case KindStr:
		return "STRING"
	default:
		return "NULL"
	}
}

// Numeric reports whether v's kind is Int or Float.
func (v Value) Numeric() bool { return v.Kind == KindInt || v.Kind == KindFloat }

// Compare orders a and b per the rules in the data model: Null < anything
// non-Null, Null == Null, numeric mixing promotes Int to Float, strings
// compare lexicographically. ok is false when the pair cannot be compared
// (different non-numeric kinds); callers should then treat them as equal
// for sort stability.
func Compare(a, b Value) (cmp int, ok bool) {
	if a.Kind == KindNull && b.Kind == KindNull {
		return 0, true
	}
	if a.Kind == KindNull {
		return -1, true
	}
	if b.Kind == KindNull {
		return 1, true
	}
	if a.Numeric() && b.Numeric() {
		af, bf := a.Float(), b.Float()
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	if a.Kind != b.Kind {
		return 0, false
	}
	switch a.Kind {
	case KindBool:
		if a.Bool == b.Bool {
			return 0, true
		}
		if !a.Bool {
			return -1, true
		}
		return 1, true
	case KindStr:
		switch {
		case a.Str < b.Str:
			return -1, true
		case a.Str > b.Str:
			return 1, true
		default:
			return 0, true
		}
	default:
		return 0, false
	}
}

// Equal reports whether a and b compare equal (incomparable pairs are not
// equal).
func Equal(a, b Value) bool {
	c, ok := Compare(a, b)
	return ok && c == 0
}

// Hash returns a hash of v suitable for bucketing (GROUP BY, HashJoin). A
// per-variant tag byte is mixed in first so values of different kinds never
// collide by accident.
func (v Value) Hash() uint64 {
	var buf [9]byte
	buf[0] = byte(v.Kind)
	switch v.Kind {
	case KindNull:
		return xxhash.Sum64(buf[:1])
	case KindBool:
		if v.Bool {
			buf[1] = 1
		}
		return xxhash.Sum64(buf[:2])
	case KindInt:
		binary.BigEndian.PutUint64(buf[1:], uint64(v.Int))
		return xxhash.Sum64(buf[:9])
	case KindFloat:
		binary.BigEndian.PutUint64(buf[1:], math.Float64bits(v.Flt))
		return xxhash.Sum64(buf[:9])
	case KindStr:
		h := xxhash.New()
		h.Write(buf[:1])
		h.WriteString(v.Str)
		return h.Sum64()
	default:
		return xxhash.Sum64(buf[:1])
	}
}

// Row is an ordered sequence of Values, one per column of its owning table.
type Row []Value

// Clone returns a shallow copy of r (Values are themselves immutable).
func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}
