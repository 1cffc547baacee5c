package dataset

import (
	"math"
	"strconv"
)

// DType is the physical type of a whole column, named after the dataframe
// type it corresponds to. It is what the result table records as "column type".
type DType uint8

const (
	DTypeFloat64 DType = iota
	DTypeInt64
	DTypeBool
	DTypeObject
)

func (d DType) String() string {
	switch d {
	case DTypeInt64:
		return "int64"
	case DTypeFloat64:
		return "float64"
	case DTypeBool:
		return "bool"
	case DTypeObject:
		return "object"
	}

	return ""
}

// IsNumeric reports whether the type is a non-boolean number type.
func (d DType) IsNumeric() bool {
	return d == DTypeInt64 || d == DTypeFloat64
}

// Column is a named, ordered sequence of cells. Columns are never changed
// after construction; corruption always builds a new Column.
type Column struct {
	Name   string
	values []Value
	dtype  DType
}

// NewColumn builds a column and infers its type. The column takes ownership
// of values; callers must not modify the slice afterwards.
func NewColumn(name string, values []Value) *Column {
	return &Column{
		Name:   name,
		values: values,
		dtype:  inferDType(values),
	}
}

// inferDType follows dataframe promotion rules: numbers only (or nothing at
// all) is numeric, integral only when no cell is missing; booleans without
// missing cells are bool; everything else is object.
func inferDType(values []Value) DType {
	var ints, floats, bools, others, missing int

	for _, v := range values {
		switch v.Kind {
		case Missing:
			missing++
		case Int:
			ints++
		case Float:
			floats++
		case Bool:
			bools++
		default:
			others++
		}
	}

	switch {
	case others > 0:
		return DTypeObject
	case bools > 0:
		if ints+floats > 0 || missing > 0 {
			return DTypeObject
		}
		return DTypeBool
	case floats > 0 || missing > 0:
		return DTypeFloat64
	case ints > 0:
		return DTypeInt64
	}

	return DTypeFloat64
}

func (c *Column) DType() DType {
	return c.dtype
}

func (c *Column) Len() int {
	return len(c.values)
}

func (c *Column) At(i int) Value {
	return c.values[i]
}

// Values returns a copy of the cells.
func (c *Column) Values() []Value {
	out := make([]Value, len(c.values))
	copy(out, c.values)
	return out
}

// MissingCount returns the number of missing cells.
func (c *Column) MissingCount() int {
	n := 0
	for _, v := range c.values {
		if v.IsMissing() {
			n++
		}
	}
	return n
}

// NonMissing returns the present cells in order.
func (c *Column) NonMissing() []Value {
	out := make([]Value, 0, len(c.values))
	for _, v := range c.values {
		if !v.IsMissing() {
			out = append(out, v)
		}
	}
	return out
}

// Numbers returns the numeric view of the present cells. ok is false when
// the column is not numeric.
func (c *Column) Numbers() (nums []float64, ok bool) {
	if !c.dtype.IsNumeric() {
		return nil, false
	}

	nums = make([]float64, 0, len(c.values))
	for _, v := range c.values {
		if v.IsNumber() {
			nums = append(nums, v.Num)
		}
	}
	return nums, true
}

// Format renders cell i the way it prints as a member of this column:
// integers stored in a float column print as floats.
func (c *Column) Format(i int) string {
	return c.FormatValue(c.values[i])
}

// FormatValue renders v using this column's number formatting.
func (c *Column) FormatValue(v Value) string {
	if v.Kind == Int && c.dtype == DTypeFloat64 {
		return FormatFloat(v.Num)
	}
	return v.String()
}

// FormatNumber renders a number with this column's formatting.
func (c *Column) FormatNumber(f float64) string {
	if c.dtype == DTypeInt64 && f == math.Trunc(f) && !math.IsInf(f, 0) {
		return strconv.FormatInt(int64(f), 10)
	}
	return FormatFloat(f)
}

// Equal reports whether both columns hold the same cells in the same order.
// Two missing cells are considered equal here.
func (c *Column) Equal(o *Column) bool {
	if c.Name != o.Name || len(c.values) != len(o.values) {
		return false
	}
	for i := range c.values {
		if !c.values[i].Same(o.values[i]) {
			return false
		}
	}
	return true
}

// Diff counts the positions whose cells differ between c and o.
// Columns of different length differ in every position past the shorter one.
func (c *Column) Diff(o *Column) int {
	n := len(c.values)
	if len(o.values) > n {
		n = len(o.values)
	}

	changed := 0
	for i := 0; i < n; i++ {
		if i >= len(c.values) || i >= len(o.values) || !c.values[i].Same(o.values[i]) {
			changed++
		}
	}
	return changed
}
