// Package validator decides which metrics and which error generators are
// meaningful for a column, based on the column's dtype class.
package validator

import (
	"sort"

	"github.com/peekknuf/dqsweep/internal/dataset"
)

// Class is the coarse dtype class used for applicability decisions.
type Class uint8

const (
	Unknown Class = iota
	Numeric
	Textual
	Boolean
)

func (c Class) String() string {
	switch c {
	case Numeric:
		return "numeric"
	case Textual:
		return "textual"
	case Boolean:
		return "boolean"
	}

	return "unknown"
}

// Classes lists the known classes in table order.
var Classes = []Class{Numeric, Textual, Boolean}

// ClassOf maps a physical dtype onto its class.
func ClassOf(d dataset.DType) Class {
	switch d {
	case dataset.DTypeInt64, dataset.DTypeFloat64:
		return Numeric
	case dataset.DTypeObject:
		return Textual
	case dataset.DTypeBool:
		return Boolean
	}

	return Unknown
}

// Classify returns the class of a column.
func Classify(c *dataset.Column) Class {
	if c == nil {
		return Unknown
	}
	return ClassOf(c.DType())
}

type set map[string]struct{}

func newSet(names ...string) set {
	s := make(set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Validator answers applicability queries from static membership sets.
// The zero value rejects everything; use New for the standard matrix.
type Validator struct {
	metrics map[Class]set
	errors  map[Class]set
}

// New returns a Validator loaded with the standard applicability matrix.
func New() *Validator {
	return &Validator{
		metrics: map[Class]set{
			Numeric: newSet(
				"completeness", "max", "min", "mean", "median", "mode", "std",
				"skewness", "percentile25", "percentile75", "max size", "min size",
				"avg size", "outliers", "unsortedness", "kendall distance",
				"distinct", "value pattern",
			),
			Textual: newSet(
				"completeness", "distinct", "value pattern", "max value length",
				"min value length", "avg value length", "special charachters pattern",
				"soundex", "caps pattern", "soundex missing values", "date std",
			),
			Boolean: newSet("completeness"),
		},
		errors: map[Class]set{
			Numeric: newSet(
				"explicit missing values", "implicit missing values", "duplicates",
				"extraneous data", "erroneous data", "sort",
			),
			Textual: newSet(
				"explicit missing values", "implicit missing values", "duplicates",
				"replace special characters", "delete special characters",
				"lower case", "change date",
			),
			Boolean: newSet("explicit missing values"),
		},
	}
}

// MetricApplies reports whether the named metric is valid for the class.
// Unknown names and classes fail closed.
func (v *Validator) MetricApplies(metric string, class Class) bool {
	_, ok := v.metrics[class][metric]
	return ok
}

// ErrorApplies reports whether the named error generator is valid for the class.
func (v *Validator) ErrorApplies(errorName string, class Class) bool {
	_, ok := v.errors[class][errorName]
	return ok
}

// CheckMetric is MetricApplies for a concrete column.
func (v *Validator) CheckMetric(metric string, c *dataset.Column) bool {
	return v.MetricApplies(metric, Classify(c))
}

// CheckError is ErrorApplies for a concrete column.
func (v *Validator) CheckError(errorName string, c *dataset.Column) bool {
	return v.ErrorApplies(errorName, Classify(c))
}

// Metrics returns the sorted metric names valid for the class.
func (v *Validator) Metrics(class Class) []string {
	return sortedKeys(v.metrics[class])
}

// Errors returns the sorted error generator names valid for the class.
func (v *Validator) Errors(class Class) []string {
	return sortedKeys(v.errors[class])
}

func sortedKeys(s set) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
