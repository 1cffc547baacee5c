package orchestrator

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peekknuf/dqsweep/internal/dataset"
	"github.com/peekknuf/dqsweep/internal/generator"
	"github.com/peekknuf/dqsweep/internal/journal"
	"github.com/peekknuf/dqsweep/internal/metric"
	"github.com/peekknuf/dqsweep/internal/results"
)

type memorySink struct {
	batches [][]results.Row
	failOn  int
}

func (s *memorySink) Append(rows []results.Row) error {
	if s.failOn > 0 && len(s.batches)+1 == s.failOn {
		return errors.New("disk full")
	}
	s.batches = append(s.batches, rows)
	return nil
}

func (s *memorySink) rows() []results.Row {
	var out []results.Row
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

func metrics(t *testing.T, names ...string) []metric.Metric {
	t.Helper()
	ms, err := metric.Default().Select(names)
	require.NoError(t, err)
	return ms
}

func generators(t *testing.T, names ...string) []generator.Generator {
	t.Helper()
	gs, err := generator.Default().Select(names)
	require.NoError(t, err)
	return gs
}

func intColumn(name string, vals ...int64) *dataset.Column {
	values := make([]dataset.Value, len(vals))
	for i, v := range vals {
		values[i] = dataset.IntValue(v)
	}
	return dataset.NewColumn(name, values)
}

func textColumn(name string, vals ...string) *dataset.Column {
	values := make([]dataset.Value, len(vals))
	for i, v := range vals {
		values[i] = dataset.TextValue(v)
	}
	return dataset.NewColumn(name, values)
}

func records(rows []results.Row) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = r.Record()
	}
	return out
}

func newOrchestrator(t *testing.T, opts Options) *Orchestrator {
	t.Helper()
	if opts.Sink == nil {
		opts.Sink = &memorySink{}
	}
	o, err := New(opts)
	require.NoError(t, err)
	return o
}

func TestOutliersBaselineAndCorruption(t *testing.T) {
	sink := &memorySink{}
	o := newOrchestrator(t, Options{
		Metrics:    metrics(t, metric.Outliers),
		Generators: generators(t, generator.ExplicitMissingValues),
		Fractions:  []float64{0.5},
		Sink:       sink,
		Seed:       1,
	})

	b := &dataset.Batch{Name: "a.csv", Columns: []*dataset.Column{intColumn("price", 1, 2, 3, 4, 5, 100)}}
	sum, err := o.ProcessBatch(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Rows)

	rows := sink.rows()
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"a.csv", "0", "price", "int64", "", "outliers", "100", ""}, rows[0].Record())

	assert.Equal(t, generator.ExplicitMissingValues, rows[1].ErrorName)
	assert.Equal(t, 0.5, rows[1].Fraction)
	assert.Equal(t, "int64", rows[1].ColumnType)
}

func TestErroneousDataMovesOutliers(t *testing.T) {
	sink := &memorySink{}
	o := newOrchestrator(t, Options{
		Metrics:    metrics(t, metric.Outliers),
		Generators: generators(t, generator.ErroneousData),
		Fractions:  []float64{1},
		Sink:       sink,
		Seed:       3,
	})

	b := &dataset.Batch{Name: "a.csv", Columns: []*dataset.Column{intColumn("price", 1, 2, 3, 4, 5, 100)}}
	_, err := o.ProcessBatch(context.Background(), b)
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"a.csv", "0", "price", "int64", "", "outliers", "100", ""},
		{"a.csv", "0", "price", "int64", "erroneous data", "outliers", "10000", "1"},
	}, records(sink.rows()))
}

func TestChangeDateMovesDateStd(t *testing.T) {
	o := newOrchestrator(t, Options{
		Metrics:    metrics(t, metric.DateStd),
		Generators: generators(t, generator.ChangeDate),
		Fractions:  []float64{1},
	})

	col := textColumn("day", "2020-01-05", "2022-03-04", "2021-07-08", "2023-02-01")
	rows, _, err := o.Measure(context.Background(), &dataset.Batch{Name: "d.csv", Columns: []*dataset.Column{col}})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.InDelta(t, math.Sqrt(1.25), rows[0].Value.Num, 1e-9)
	assert.InDelta(t, math.Sqrt(5.1875), rows[1].Value.Num, 1e-9)
	assert.Equal(t, "object", rows[1].ColumnType)
}

func TestValidatorPrunesBooleanColumns(t *testing.T) {
	o := newOrchestrator(t, Options{
		Metrics:    metrics(t, metric.Completeness, metric.Mean),
		Generators: generators(t, generator.ExplicitMissingValues, generator.Sort),
		Fractions:  []float64{0.5},
	})

	col := dataset.NewColumn("flag", []dataset.Value{
		dataset.BoolValue(true), dataset.BoolValue(false), dataset.BoolValue(true), dataset.BoolValue(true),
	})
	rows, sum, err := o.Measure(context.Background(), &dataset.Batch{Name: "b.csv", Columns: []*dataset.Column{col}})
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, []string{"b.csv", "0", "flag", "bool", "", "completeness", "1", ""}, rows[0].Record())
	assert.Equal(t, []string{"b.csv", "0", "flag", "bool", "explicit missing values", "completeness", "0.5", "0.5"}, rows[1].Record())
	assert.Equal(t, 2, sum.Pruned)
}

func TestMetricRecheckedOnCorruptedColumn(t *testing.T) {
	o := newOrchestrator(t, Options{
		Metrics:    metrics(t, metric.Mean),
		Generators: generators(t, generator.ExtraneousData, generator.ErroneousData),
		Fractions:  []float64{0.5},
	})

	rows, sum, err := o.Measure(context.Background(), &dataset.Batch{Name: "n.csv", Columns: []*dataset.Column{intColumn("n", 1, 2, 3, 4)}})
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.True(t, rows[0].IsBaseline())
	assert.Equal(t, generator.ErroneousData, rows[1].ErrorName)
	assert.Equal(t, 1, sum.Pruned)
}

func TestFractionZeroMatchesBaseline(t *testing.T) {
	o := newOrchestrator(t, Options{
		Metrics:    metrics(t, metric.Mean, metric.Std, metric.Completeness),
		Generators: generator.Default().All(),
		Fractions:  []float64{0},
	})

	rows, _, err := o.Measure(context.Background(), &dataset.Batch{Name: "z.csv", Columns: []*dataset.Column{intColumn("n", 4, 8, 15, 16, 23, 42)}})
	require.NoError(t, err)

	baseline := map[string]string{}
	for _, r := range rows {
		if r.IsBaseline() {
			baseline[r.MetricName] = r.Value.String()
			continue
		}
		assert.Equal(t, baseline[r.MetricName], r.Value.String(), "%s / %s", r.MetricName, r.ErrorName)
	}
}

func TestResumePolicies(t *testing.T) {
	state := results.NewResumeState()
	state.Add(results.Row{BatchName: "old.csv", ColumnName: "n", MetricName: metric.Mean})

	batch := &dataset.Batch{Name: "new.csv", Columns: []*dataset.Column{intColumn("n", 1, 2, 3)}}

	tests := map[results.Policy]int{
		results.PolicyGlobal:      1,
		results.PolicyCombination: 2,
		results.PolicyOff:         2,
	}
	for policy, want := range tests {
		t.Run(string(policy), func(t *testing.T) {
			o := newOrchestrator(t, Options{
				Metrics: metrics(t, metric.Mean, metric.Max),
				Resume:  state,
				Policy:  policy,
			})
			rows, _, err := o.Measure(context.Background(), batch)
			require.NoError(t, err)
			assert.Len(t, rows, want)
		})
	}

	o := newOrchestrator(t, Options{Metrics: metrics(t, metric.Mean), Resume: state, Policy: results.PolicyCombination})
	rows, sum, err := o.Measure(context.Background(), &dataset.Batch{Name: "old.csv", Columns: []*dataset.Column{intColumn("n", 1)}})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, 1, sum.ResumeSkips)
}

func TestWorkersDoNotChangeOutput(t *testing.T) {
	batch := &dataset.Batch{Name: "w.csv", Number: 3, Columns: []*dataset.Column{
		intColumn("a", 5, 1, 4, 1, 5, 9, 2, 6),
		textColumn("b", "Alice", "bob", "2021-01-05", "05/01/2021", "x-y", "Carol", "None", "dave"),
		intColumn("c", 10, 20, 30, 40, 50, 60, 70, 80),
	}}

	measure := func(workers int) [][]string {
		o := newOrchestrator(t, Options{
			Metrics:    metric.Default().All(),
			Generators: generator.Default().All(),
			Fractions:  []float64{0.25, 0.5},
			Seed:       99,
			Workers:    workers,
		})
		rows, _, err := o.Measure(context.Background(), batch)
		require.NoError(t, err)
		return records(rows)
	}

	sequential := measure(1)
	assert.NotEmpty(t, sequential)
	assert.Equal(t, sequential, measure(4))
	assert.Equal(t, "a", sequential[0][2])
	assert.Equal(t, "c", sequential[len(sequential)-1][2])
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, ErrNoSink)

	_, err = New(Options{Sink: &memorySink{}, Fractions: []float64{1.2}})
	assert.ErrorIs(t, err, generator.ErrInvalidFraction)
}

func writeBatch(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestRunPersistsBatchesAndJournal(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeBatch(t, dir, "a.csv", "price,name\n1,Alice\n2,bob\n3,Carol\n100,dave\n"),
		writeBatch(t, dir, "b.csv", "price,name\n7,Eve\n8,frank\n"),
	}

	j, err := journal.Open(journal.Config{InMemory: true})
	require.NoError(t, err)
	defer j.Close()

	tablePath := filepath.Join(dir, "out", "result.csv")
	var seen []string
	o := newOrchestrator(t, Options{
		Metrics:    metrics(t, metric.Completeness, metric.Mean, metric.CapsPattern),
		Generators: generators(t, generator.ExplicitMissingValues),
		Fractions:  []float64{0.5},
		Sink:       results.NewSink(tablePath),
		Journal:    j,
		OnBatch:    func(b *dataset.Batch, _ int) { seen = append(seen, b.Name) },
	})

	sum, err := o.Run(context.Background(), paths, dataset.DefaultLoadOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Batches)
	assert.Equal(t, []string{"a.csv", "b.csv"}, seen)

	rows, err := results.ReadAll(tablePath)
	require.NoError(t, err)
	assert.Len(t, rows, sum.Rows)
	assert.Equal(t, 1, rows[len(rows)-1].BatchNumber)

	entries, err := j.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, journal.StateFlushed, e.State)
		assert.Equal(t, o.RunID(), e.RunID)
	}

	state, err := results.LoadResumeState(tablePath)
	require.NoError(t, err)
	resumed := newOrchestrator(t, Options{
		Metrics: metrics(t, metric.Completeness, metric.Mean, metric.CapsPattern),
		Resume:  state,
	})
	again, err := resumed.Run(context.Background(), paths, dataset.DefaultLoadOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, again.Rows)
	assert.Positive(t, again.ResumeSkips)
}

func TestRunKeepsEarlierBatchesOnFailure(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeBatch(t, dir, "a.csv", "n\n1\n2\n"),
		writeBatch(t, dir, "b.csv", "n\n3\n4\n"),
	}

	j, err := journal.Open(journal.Config{InMemory: true})
	require.NoError(t, err)
	defer j.Close()

	sink := &memorySink{failOn: 2}
	o := newOrchestrator(t, Options{Metrics: metrics(t, metric.Mean), Sink: sink, Journal: j})

	sum, err := o.Run(context.Background(), paths, dataset.DefaultLoadOptions())
	require.Error(t, err)
	assert.Equal(t, 1, sum.Batches)
	assert.Len(t, sink.batches, 1)

	incomplete, err := j.Incomplete()
	require.NoError(t, err)
	require.Len(t, incomplete, 1)
	assert.Equal(t, "b.csv", incomplete[0].Batch)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := newOrchestrator(t, Options{Metrics: metrics(t, metric.Mean)})
	_, err := o.Run(ctx, []string{"unused.csv"}, dataset.DefaultLoadOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunKeepsSameFileNamesApart(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2023"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "2024"), 0755))
	paths := []string{
		writeBatch(t, filepath.Join(root, "2023"), "sales.csv", "n\n1\n2\n"),
		writeBatch(t, filepath.Join(root, "2024"), "sales.csv", "n\n3\n4\n"),
	}

	j, err := journal.Open(journal.Config{InMemory: true})
	require.NoError(t, err)
	defer j.Close()

	state := results.NewResumeState()
	state.Add(results.Row{BatchName: "2023/sales.csv", ColumnName: "n", MetricName: metric.Mean})

	sink := &memorySink{}
	o := newOrchestrator(t, Options{
		Metrics: metrics(t, metric.Mean),
		Resume:  state,
		Policy:  results.PolicyCombination,
		Sink:    sink,
		Journal: j,
	})

	load := dataset.DefaultLoadOptions()
	load.Root = root
	sum, err := o.Run(context.Background(), paths, load)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.ResumeSkips)

	rows := sink.rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "2024/sales.csv", rows[0].BatchName)

	entries, err := j.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2023/sales.csv", entries[0].Batch)
	assert.Equal(t, "2024/sales.csv", entries[1].Batch)
}
