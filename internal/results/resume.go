package results

import "fmt"

// Key identifies the measurements of one metric on one column of one batch.
type Key struct {
	Batch  string
	Column string
	Metric string
}

// ResumeState records what an earlier run already measured.
type ResumeState struct {
	metrics map[string]struct{}
	keys    map[Key]struct{}
}

func NewResumeState() *ResumeState {
	return &ResumeState{
		metrics: make(map[string]struct{}),
		keys:    make(map[Key]struct{}),
	}
}

// Add marks a row as measured.
func (s *ResumeState) Add(r Row) {
	s.metrics[r.MetricName] = struct{}{}
	s.keys[Key{Batch: r.BatchName, Column: r.ColumnName, Metric: r.MetricName}] = struct{}{}
}

// HasMetric reports whether the metric appears anywhere in the table.
func (s *ResumeState) HasMetric(name string) bool {
	_, ok := s.metrics[name]
	return ok
}

// Has reports whether the metric was measured on this batch and column.
func (s *ResumeState) Has(k Key) bool {
	_, ok := s.keys[k]
	return ok
}

// Metrics is the number of distinct metric names seen.
func (s *ResumeState) Metrics() int {
	return len(s.metrics)
}

// LoadResumeState reads the table at path once. A missing table yields an
// empty state.
func LoadResumeState(path string) (*ResumeState, error) {
	state := NewResumeState()
	err := Scan(path, func(r Row) error {
		state.Add(r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load resume state: %w", err)
	}
	return state, nil
}

// Policy decides which earlier measurements cause a metric to be skipped.
type Policy string

const (
	// PolicyGlobal skips a metric everywhere once its name is in the table.
	PolicyGlobal Policy = "global"
	// PolicyCombination skips only batch, column and metric triples already measured.
	PolicyCombination Policy = "combination"
	// PolicyOff measures everything again.
	PolicyOff Policy = "off"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyGlobal, PolicyCombination, PolicyOff:
		return p, nil
	case "":
		return PolicyGlobal, nil
	}
	return "", fmt.Errorf("unknown resume policy %q", s)
}

// Skip reports whether the policy considers k already measured.
func (s *ResumeState) Skip(p Policy, k Key) bool {
	switch p {
	case PolicyGlobal:
		return s.HasMetric(k.Metric)
	case PolicyCombination:
		return s.Has(k)
	}
	return false
}
