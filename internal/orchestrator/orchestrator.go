// Package orchestrator runs the sweep: every metric on every column of every
// batch, first on the clean column and then on each corruption of it at each
// fraction, with the rows of a batch appended to the result table at once.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/peekknuf/dqsweep/internal/dataset"
	"github.com/peekknuf/dqsweep/internal/generator"
	"github.com/peekknuf/dqsweep/internal/metric"
	"github.com/peekknuf/dqsweep/internal/results"
	"github.com/peekknuf/dqsweep/internal/validator"
)

var ErrNoSink = errors.New("orchestrator needs a result sink")

// Appender persists the rows of one batch in a single write.
type Appender interface {
	Append(rows []results.Row) error
}

// Checkpointer records batch progress outside the result table.
type Checkpointer interface {
	Started(runID, batch string, number int) error
	Flushed(runID, batch string, number, rows int) error
}

type Options struct {
	Metrics    []metric.Metric
	Generators []generator.Generator
	Fractions  []float64

	Validator *validator.Validator
	Resume    *results.ResumeState
	Policy    results.Policy

	Sink    Appender
	Journal Checkpointer

	// Seed drives every corruption. Equal seeds give equal tables.
	Seed uint64
	// Workers bounds how many columns of a batch are measured at once.
	Workers int
	RunID   string
	Logger  *slog.Logger

	// OnBatch is called after each batch is persisted.
	OnBatch func(b *dataset.Batch, rows int)
}

// Summary counts what a run did.
type Summary struct {
	RunID       string
	Batches     int
	Rows        int
	ResumeSkips int
	Pruned      int
	Elapsed     time.Duration
}

type Orchestrator struct {
	opts Options
	log  *slog.Logger
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Sink == nil {
		return nil, ErrNoSink
	}
	for _, f := range opts.Fractions {
		if math.IsNaN(f) || f < 0 || f > 1 {
			return nil, fmt.Errorf("%w, got %v", generator.ErrInvalidFraction, f)
		}
	}
	if opts.Validator == nil {
		opts.Validator = validator.New()
	}
	if opts.Resume == nil {
		opts.Resume = results.NewResumeState()
	}
	if opts.Policy == "" {
		opts.Policy = results.PolicyGlobal
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Orchestrator{
		opts: opts,
		log:  opts.Logger.With("run_id", opts.RunID),
	}, nil
}

func (o *Orchestrator) RunID() string {
	return o.opts.RunID
}

// Run loads and processes the files in order; the i-th file is batch i.
// Rows of batches finished before an error stay in the result table.
func (o *Orchestrator) Run(ctx context.Context, paths []string, load dataset.LoadOptions) (Summary, error) {
	start := time.Now()
	sum := Summary{RunID: o.opts.RunID}

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			sum.Elapsed = time.Since(start)
			return sum, err
		}

		batch, err := dataset.Load(path, i, load)
		if err != nil {
			sum.Elapsed = time.Since(start)
			return sum, fmt.Errorf("batch %d: %w", i, err)
		}

		res, err := o.ProcessBatch(ctx, batch)
		sum.ResumeSkips += res.ResumeSkips
		sum.Pruned += res.Pruned
		if err != nil {
			sum.Elapsed = time.Since(start)
			return sum, err
		}
		sum.Batches++
		sum.Rows += res.Rows
	}

	sum.Elapsed = time.Since(start)
	return sum, nil
}

// ProcessBatch measures a batch and appends its rows in one write.
func (o *Orchestrator) ProcessBatch(ctx context.Context, b *dataset.Batch) (Summary, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "orchestrator.ProcessBatch", trace.WithAttributes(
		attribute.String("batch.name", b.Name),
		attribute.Int("batch.number", b.Number),
		attribute.Int("batch.columns", len(b.Columns)),
	))
	defer span.End()

	fail := func(err error) (Summary, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Summary{}, err
	}

	if o.opts.Journal != nil {
		if err := o.opts.Journal.Started(o.opts.RunID, b.Name, b.Number); err != nil {
			return fail(err)
		}
	}

	rows, stats, err := o.Measure(ctx, b)
	if err != nil {
		return fail(fmt.Errorf("batch %s: %w", b.Name, err))
	}

	if err := o.opts.Sink.Append(rows); err != nil {
		return fail(fmt.Errorf("batch %s: %w", b.Name, err))
	}
	rowsWritten.Add(float64(len(rows)))

	if o.opts.Journal != nil {
		if err := o.opts.Journal.Flushed(o.opts.RunID, b.Name, b.Number, len(rows)); err != nil {
			return fail(err)
		}
	}

	elapsed := time.Since(start)
	batchDuration.Observe(elapsed.Seconds())
	span.SetAttributes(attribute.Int("batch.rows", len(rows)))
	o.log.Info("batch flushed",
		"batch", b.Name,
		"number", b.Number,
		"rows", len(rows),
		"resume_skips", stats.ResumeSkips,
		"pruned", stats.Pruned,
		"elapsed", elapsed,
	)

	if o.opts.OnBatch != nil {
		o.opts.OnBatch(b, len(rows))
	}

	stats.Batches = 1
	stats.Rows = len(rows)
	stats.Elapsed = elapsed
	return stats, nil
}

// Measure computes every row of a batch without persisting anything. The
// rows come back in column, metric, error, fraction order regardless of
// how many workers measured them.
func (o *Orchestrator) Measure(ctx context.Context, b *dataset.Batch) ([]results.Row, Summary, error) {
	perColumn := make([][]results.Row, len(b.Columns))
	stats := make([]Summary, len(b.Columns))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Workers)
	for i, col := range b.Columns {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows, s, err := o.measureColumn(gctx, b, col)
			if err != nil {
				return err
			}
			perColumn[i] = rows
			stats[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Summary{}, err
	}

	var total Summary
	n := 0
	for i := range perColumn {
		n += len(perColumn[i])
		total.ResumeSkips += stats[i].ResumeSkips
		total.Pruned += stats[i].Pruned
	}
	rows := make([]results.Row, 0, n)
	for _, r := range perColumn {
		rows = append(rows, r...)
	}
	return rows, total, nil
}

func (o *Orchestrator) measureColumn(ctx context.Context, b *dataset.Batch, col *dataset.Column) ([]results.Row, Summary, error) {
	_, span := tracer.Start(ctx, "orchestrator.measureColumn", trace.WithAttributes(
		attribute.String("column.name", col.Name),
		attribute.String("column.type", col.DType().String()),
	))
	defer span.End()

	var stats Summary
	v := o.opts.Validator
	class := validator.Classify(col)
	typeName := col.DType().String()
	log := o.log.With("batch", b.Name, "column", col.Name)

	row := func(m metric.Metric, value metric.Scalar) results.Row {
		return results.Row{
			BatchName:   b.Name,
			BatchNumber: b.Number,
			ColumnName:  col.Name,
			ColumnType:  typeName,
			MetricName:  m.Name(),
			Value:       value,
			Fraction:    math.NaN(),
		}
	}

	// Baselines first; each active metric collects its own rows so that a
	// corrupted column is built once and shared by all metrics.
	var active []metric.Metric
	var perMetric [][]results.Row
	for _, m := range o.opts.Metrics {
		key := results.Key{Batch: b.Name, Column: col.Name, Metric: m.Name()}
		if o.opts.Resume.Skip(o.opts.Policy, key) {
			stats.ResumeSkips++
			resumeSkips.Inc()
			continue
		}
		if !v.MetricApplies(m.Name(), class) {
			stats.Pruned++
			combinationsPruned.WithLabelValues("metric").Inc()
			continue
		}

		value, err := m.Compute(col)
		if err != nil {
			return failColumn(span, err)
		}
		log.Debug("baseline", "metric", m.Name(), "value", value.String())

		active = append(active, m)
		perMetric = append(perMetric, []results.Row{row(m, value)})
	}

	if len(active) > 0 {
		for _, g := range o.opts.Generators {
			if !v.CheckError(g.Name(), col) {
				n := len(active) * len(o.opts.Fractions)
				stats.Pruned += n
				combinationsPruned.WithLabelValues("error").Add(float64(n))
				continue
			}

			for _, f := range o.opts.Fractions {
				if err := ctx.Err(); err != nil {
					return failColumn(span, err)
				}

				rng := generator.NewRand(o.opts.Seed, strconv.Itoa(b.Number), col.Name, g.Name(), results.FormatFraction(f))
				corrupted, err := g.Corrupt(col, f, rng)
				if err != nil {
					return failColumn(span, err)
				}
				corruptions.WithLabelValues(g.Name()).Inc()

				for i, m := range active {
					if !v.CheckMetric(m.Name(), corrupted) {
						stats.Pruned++
						combinationsPruned.WithLabelValues("corrupted").Inc()
						continue
					}

					value, err := m.Compute(corrupted)
					if err != nil {
						return failColumn(span, err)
					}
					log.Debug("measured",
						"metric", m.Name(),
						"error", g.Name(),
						"fraction", f,
						"value", value.String(),
					)

					r := row(m, value)
					r.ErrorName = g.Name()
					r.Fraction = f
					perMetric[i] = append(perMetric[i], r)
				}
			}
		}
	}

	var rows []results.Row
	for _, r := range perMetric {
		rows = append(rows, r...)
	}
	span.SetAttributes(attribute.Int("column.rows", len(rows)))
	return rows, stats, nil
}

func failColumn(span trace.Span, err error) ([]results.Row, Summary, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return nil, Summary{}, err
}
