// Package metric holds the data-quality metrics. Every metric reduces one
// column to one scalar and is identified by a unique name, which is also the
// value written to the "metric name" column of the result table.
package metric

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/peekknuf/dqsweep/internal/dataset"
)

const (
	Completeness         = "completeness"
	Max                  = "max"
	Min                  = "min"
	Mean                 = "mean"
	Median               = "median"
	Mode                 = "mode"
	Std                  = "std"
	Skewness             = "skewness"
	Percentile25         = "percentile25"
	Percentile75         = "percentile75"
	MaxSize              = "max size"
	MinSize              = "min size"
	AvgSize              = "avg size"
	Outliers             = "outliers"
	Unsortedness         = "unsortedness"
	KendallDistance      = "kendall distance"
	Distinct             = "distinct"
	ValuePattern         = "value pattern"
	MaxValueLength       = "max value length"
	MinValueLength       = "min value length"
	AvgValueLength       = "avg value length"
	SoundexDuplicates    = "soundex"
	CapsPattern          = "caps pattern"
	SoundexMissingValues = "soundex missing values"
	DateStd              = "date std"

	// SpecialCharsPattern keeps the spelling used by existing result tables.
	SpecialCharsPattern = "special charachters pattern"
)

var (
	ErrTypeMismatch  = errors.New("column type not supported by metric")
	ErrNilColumn     = errors.New("metric needs a single column")
	ErrUnknownMetric = errors.New("unknown metric")
	ErrDuplicateName = errors.New("duplicate metric name")
)

// Scalar is a metric result: a number, or a string for metrics that report
// a value from the column itself.
type Scalar struct {
	Num   float64
	Str   string
	IsStr bool
}

func Number(f float64) Scalar {
	return Scalar{Num: f}
}

func String(s string) Scalar {
	return Scalar{Str: s, IsStr: true}
}

// Float returns the numeric value; ok is false for string results.
func (s Scalar) Float() (float64, bool) {
	if s.IsStr {
		return 0, false
	}
	return s.Num, true
}

// String renders the scalar for the result table. NaN renders empty.
func (s Scalar) String() string {
	if s.IsStr {
		return s.Str
	}
	if math.IsNaN(s.Num) {
		return ""
	}
	abs := math.Abs(s.Num)
	if math.IsInf(s.Num, 0) || (abs != 0 && (abs < 1e-4 || abs >= 1e16)) {
		return strconv.FormatFloat(s.Num, 'g', -1, 64)
	}
	return strconv.FormatFloat(s.Num, 'f', -1, 64)
}

// Metric reduces a column to a scalar.
type Metric interface {
	Name() string
	Compute(c *dataset.Column) (Scalar, error)
}

// ComputeFunc is the body of a metric.
type ComputeFunc func(c *dataset.Column) (Scalar, error)

type metricFunc struct {
	name    string
	compute ComputeFunc
}

// New wraps fn as a Metric named name.
func New(name string, fn ComputeFunc) Metric {
	return &metricFunc{name: name, compute: fn}
}

func (m *metricFunc) Name() string {
	return m.name
}

func (m *metricFunc) Compute(c *dataset.Column) (Scalar, error) {
	if c == nil {
		return Scalar{}, fmt.Errorf("%s: %w", m.name, ErrNilColumn)
	}
	s, err := m.compute(c)
	if err != nil {
		return Scalar{}, fmt.Errorf("%s on column %q: %w", m.name, c.Name, err)
	}
	return s, nil
}

// Registry is an ordered set of metrics with lookup by name.
type Registry struct {
	metrics []Metric
	byName  map[string]Metric
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Metric)}
}

// Register appends m. Names must be unique.
func (r *Registry) Register(m Metric) error {
	if _, ok := r.byName[m.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateName, m.Name())
	}
	r.byName[m.Name()] = m
	r.metrics = append(r.metrics, m)
	return nil
}

func (r *Registry) Lookup(name string) (Metric, bool) {
	m, ok := r.byName[name]
	return m, ok
}

// All returns the metrics in registration order.
func (r *Registry) All() []Metric {
	out := make([]Metric, len(r.metrics))
	copy(out, r.metrics)
	return out
}

func (r *Registry) Names() []string {
	out := make([]string, len(r.metrics))
	for i, m := range r.metrics {
		out[i] = m.Name()
	}
	return out
}

// Select returns the named metrics in the order given, or all of them when
// names is empty.
func (r *Registry) Select(names []string) ([]Metric, error) {
	if len(names) == 0 {
		return r.All(), nil
	}

	out := make([]Metric, 0, len(names))
	for _, n := range names {
		m, ok := r.byName[n]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, n)
		}
		out = append(out, m)
	}
	return out, nil
}

// Default returns a registry holding every built-in metric.
func Default() *Registry {
	r := NewRegistry()
	for _, m := range builtins() {
		if err := r.Register(m); err != nil {
			panic(err)
		}
	}
	return r
}

func builtins() []Metric {
	return []Metric{
		New(Completeness, completeness),
		New(Max, numericStat(maxOf)),
		New(Min, numericStat(minOf)),
		New(Mean, numericStat(mean)),
		New(Median, numericStat(func(x []float64) float64 { return percentile(x, 50) })),
		New(Mode, numericStat(mode)),
		New(Std, numericStat(popStd)),
		New(Skewness, numericStat(skewness)),
		New(Percentile25, numericStat(func(x []float64) float64 { return percentile(x, 25) })),
		New(Percentile75, numericStat(func(x []float64) float64 { return percentile(x, 75) })),
		New(MaxSize, sizeMetric(maxInt)),
		New(MinSize, sizeMetric(minInt)),
		New(AvgSize, sizeMetric(avgInt)),
		New(Outliers, outliers),
		New(Unsortedness, unsortedness),
		New(KendallDistance, kendallDistance),
		New(Distinct, distinct),
		New(ValuePattern, valuePattern),
		New(MaxValueLength, lengthMetric(maxInt)),
		New(MinValueLength, lengthMetric(minInt)),
		New(AvgValueLength, lengthMetric(avgInt)),
		New(SpecialCharsPattern, specialCharsPattern),
		New(SoundexDuplicates, soundexDuplicates),
		New(CapsPattern, capsPattern),
		New(SoundexMissingValues, soundexMissingValues),
		New(DateStd, dateStd),
	}
}
