package types

import (
	"math"
	"strconv"
	"strings"
)

type ScalarKind uint8

const (
	NumberScalar ScalarKind = iota + 1
	TextScalar
	BoolScalar
)

// Scalar is a single cell value. The zero Scalar is not valid; use the
// constructors.
type Scalar struct {
	kind ScalarKind
	num  float64
	text string
	b    bool
}

func NumberValue(v float64) Scalar {
	return Scalar{kind: NumberScalar, num: v}
}

func TextValue(v string) Scalar {
	return Scalar{kind: TextScalar, text: v}
}

func BoolValue(v bool) Scalar {
	return Scalar{kind: BoolScalar, b: v}
}

func (s Scalar) Kind() ScalarKind {
	return s.kind
}

func (s Scalar) IsValid() bool {
	return s.kind != 0
}

func (s Scalar) Number() float64 {
	return s.num
}

func (s Scalar) Text() string {
	return s.text
}

func (s Scalar) Bool() bool {
	return s.b
}

// Float coerces the scalar to a number. Text is parsed after trimming,
// booleans are never numeric and NaN is reported as not coercible.
func (s Scalar) Float() (float64, bool) {
	switch s.kind {
	case NumberScalar:
		if math.IsNaN(s.num) {
			return 0, false
		}
		return s.num, true
	case TextScalar:
		txt := strings.TrimSpace(s.text)
		if txt == "" {
			return 0, false
		}
		v, err := strconv.ParseFloat(txt, 64)
		if err != nil || math.IsNaN(v) {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

// String returns the text form used for key matching and display.
func (s Scalar) String() string {
	switch s.kind {
	case NumberScalar:
		return strconv.FormatFloat(s.num, 'f', -1, 64)
	case TextScalar:
		return s.text
	case BoolScalar:
		return strconv.FormatBool(s.b)
	}
	return ""
}

// Any returns the value as a plain Go value for encoding.
func (s Scalar) Any() any {
	switch s.kind {
	case NumberScalar:
		return s.num
	case TextScalar:
		return s.text
	case BoolScalar:
		return s.b
	}
	return nil
}

// ValueKey is the comparable identity of a Scalar. Numbers compare by
// numeric equality: -0 and +0 share a key and every NaN maps to the same key.
type ValueKey struct {
	kind ScalarKind
	bits uint64
	text string
}

var canonicalNaN = math.Float64bits(math.NaN())

func (s Scalar) Key() ValueKey {
	switch s.kind {
	case NumberScalar:
		switch {
		case math.IsNaN(s.num):
			return ValueKey{kind: NumberScalar, bits: canonicalNaN}
		case s.num == 0:
			return ValueKey{kind: NumberScalar}
		}
		return ValueKey{kind: NumberScalar, bits: math.Float64bits(s.num)}
	case TextScalar:
		return ValueKey{kind: TextScalar, text: s.text}
	case BoolScalar:
		if s.b {
			return ValueKey{kind: BoolScalar, bits: 1}
		}
		return ValueKey{kind: BoolScalar}
	}
	return ValueKey{}
}

func (s Scalar) Equal(other Scalar) bool {
	return s.Key() == other.Key()
}

// Compare orders scalars by kind first (numbers, text, booleans) and then by
// value. NaN sorts before every other number.
func (s Scalar) Compare(other Scalar) int {
	if s.kind != other.kind {
		if s.kind < other.kind {
			return -1
		}
		return 1
	}
	switch s.kind {
	case NumberScalar:
		an, bn := math.IsNaN(s.num), math.IsNaN(other.num)
		switch {
		case an && bn:
			return 0
		case an:
			return -1
		case bn:
			return 1
		case s.num < other.num:
			return -1
		case s.num > other.num:
			return 1
		}
		return 0
	case TextScalar:
		return strings.Compare(s.text, other.text)
	case BoolScalar:
		if s.b == other.b {
			return 0
		}
		if !s.b {
			return -1
		}
		return 1
	}
	return 0
}

type CellKind uint8

const (
	AbsentCell CellKind = iota
	ScalarCell
	MultiCell
)

// CellValue is the raw value of one column in one row: absent, a single
// scalar, or a collection of scalars (tags, categories).
type CellValue struct {
	kind    CellKind
	scalar  Scalar
	members []Scalar
}

func Absent() CellValue {
	return CellValue{}
}

func Number(v float64) CellValue {
	return Single(NumberValue(v))
}

func Text(v string) CellValue {
	return Single(TextValue(v))
}

func Bool(v bool) CellValue {
	return Single(BoolValue(v))
}

func Single(s Scalar) CellValue {
	if !s.IsValid() {
		return Absent()
	}
	return CellValue{kind: ScalarCell, scalar: s}
}

// Multi builds a multi valued cell. Invalid members are dropped.
func Multi(values ...Scalar) CellValue {
	members := make([]Scalar, 0, len(values))
	for _, v := range values {
		if v.IsValid() {
			members = append(members, v)
		}
	}
	return CellValue{kind: MultiCell, members: members}
}

func (c CellValue) Kind() CellKind {
	return c.kind
}

func (c CellValue) IsAbsent() bool {
	return c.kind == AbsentCell
}

func (c CellValue) Scalar() (Scalar, bool) {
	return c.scalar, c.kind == ScalarCell
}

// Members returns the member values of a multi valued cell. The returned
// slice must not be modified.
func (c CellValue) Members() []Scalar {
	if c.kind != MultiCell {
		return nil
	}
	return c.members
}

// Values returns every scalar held by the cell: nothing for an absent cell,
// one value for a scalar cell and the members of a multi cell.
func (c CellValue) Values() []Scalar {
	switch c.kind {
	case ScalarCell:
		return []Scalar{c.scalar}
	case MultiCell:
		return c.members
	}
	return nil
}

// Float coerces a scalar cell to a number. Absent and multi valued cells are
// never coercible.
func (c CellValue) Float() (float64, bool) {
	if c.kind != ScalarCell {
		return 0, false
	}
	return c.scalar.Float()
}

func (c CellValue) Any() any {
	switch c.kind {
	case ScalarCell:
		return c.scalar.Any()
	case MultiCell:
		ret := make([]any, len(c.members))
		for i, m := range c.members {
			ret[i] = m.Any()
		}
		return ret
	}
	return nil
}

// FromAny converts decoded JSON or loosely typed input to a CellValue.
func FromAny(input any) CellValue {
	switch typed := input.(type) {
	case nil:
		return Absent()
	case CellValue:
		return typed
	case []any:
		members := make([]Scalar, 0, len(typed))
		for _, v := range typed {
			if s, ok := scalarFromAny(v); ok {
				members = append(members, s)
			}
		}
		return Multi(members...)
	case []string:
		members := make([]Scalar, len(typed))
		for i, v := range typed {
			members[i] = TextValue(v)
		}
		return Multi(members...)
	case []float64:
		members := make([]Scalar, len(typed))
		for i, v := range typed {
			members[i] = NumberValue(v)
		}
		return Multi(members...)
	}
	if s, ok := scalarFromAny(input); ok {
		return Single(s)
	}
	return Absent()
}

func scalarFromAny(input any) (Scalar, bool) {
	switch typed := input.(type) {
	case float64:
		return NumberValue(typed), true
	case float32:
		return NumberValue(float64(typed)), true
	case int:
		return NumberValue(float64(typed)), true
	case int64:
		return NumberValue(float64(typed)), true
	case int32:
		return NumberValue(float64(typed)), true
	case uint:
		return NumberValue(float64(typed)), true
	case uint64:
		return NumberValue(float64(typed)), true
	case uint32:
		return NumberValue(float64(typed)), true
	case string:
		return TextValue(typed), true
	case bool:
		return BoolValue(typed), true
	case Scalar:
		return typed, typed.IsValid()
	}
	return Scalar{}, false
}
