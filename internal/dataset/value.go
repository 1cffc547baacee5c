package dataset

import (
	"math"
	"strconv"
	"strings"
)

// Kind is the storage kind of a single cell.
type Kind uint8

const (
	Missing Kind = iota
	Int
	Float
	Text
	Bool
)

func (k Kind) String() string {
	switch k {
	case Missing:
		return "missing"
	case Int:
		return "int"
	case Float:
		return "float"
	case Text:
		return "text"
	case Bool:
		return "bool"
	}

	return ""
}

// Value is one cell of a column. Numbers (Int and Float) live in Num,
// text in Str and booleans in B.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
	B    bool
}

func MissingValue() Value {
	return Value{Kind: Missing}
}

func IntValue(v int64) Value {
	return Value{Kind: Int, Num: float64(v)}
}

// FloatValue returns a Float cell. NaN is the missing sentinel and becomes Missing.
func FloatValue(f float64) Value {
	if math.IsNaN(f) {
		return MissingValue()
	}
	return Value{Kind: Float, Num: f}
}

func TextValue(s string) Value {
	return Value{Kind: Text, Str: s}
}

func BoolValue(b bool) Value {
	return Value{Kind: Bool, B: b}
}

func (v Value) IsMissing() bool {
	return v.Kind == Missing
}

// IsNumber reports whether the cell holds an Int or a Float.
func (v Value) IsNumber() bool {
	return v.Kind == Int || v.Kind == Float
}

// number returns the numeric view of the cell; booleans count as 0 and 1.
func (v Value) number() (float64, bool) {
	switch v.Kind {
	case Int, Float:
		return v.Num, true
	case Bool:
		if v.B {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Equal compares two cells the way a dataframe does: missing equals nothing
// (not even missing), numbers compare by value across Int and Float.
func (v Value) Equal(o Value) bool {
	if v.Kind == Missing || o.Kind == Missing {
		return false
	}
	if v.Kind == Text || o.Kind == Text {
		return v.Kind == o.Kind && v.Str == o.Str
	}
	a, _ := v.number()
	b, _ := o.number()
	return a == b
}

// Same is like Equal but treats two missing cells as the same cell.
func (v Value) Same(o Value) bool {
	if v.Kind == Missing && o.Kind == Missing {
		return true
	}
	if v.Kind != o.Kind {
		return false
	}
	return v.Equal(o)
}

// Less orders two cells of compatible kinds. ok is false when the kinds
// cannot be compared (text against a number, or anything against missing).
func (v Value) Less(o Value) (less bool, ok bool) {
	if v.Kind == Missing || o.Kind == Missing {
		return false, false
	}
	if v.Kind == Text || o.Kind == Text {
		if v.Kind != o.Kind {
			return false, false
		}
		return v.Str < o.Str, true
	}
	a, _ := v.number()
	b, _ := o.number()
	return a < b, true
}

// String renders the cell on its own, without column context.
func (v Value) String() string {
	switch v.Kind {
	case Missing:
		return "nan"
	case Int:
		return strconv.FormatInt(int64(v.Num), 10)
	case Float:
		return FormatFloat(v.Num)
	case Text:
		return v.Str
	case Bool:
		if v.B {
			return "True"
		}
		return "False"
	}
	return ""
}

// FormatFloat renders f as the shortest representation that round-trips,
// always carrying a fractional part or an exponent ("5.0", "0.25", "1e+16").
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
