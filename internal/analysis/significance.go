// Package analysis reads a finished result table and finds, for every metric
// and error, the smallest fraction at which the corrupted metric values are
// distinguishable from the clean ones under a two-sample Kolmogorov-Smirnov
// test.
package analysis

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/peekknuf/dqsweep/internal/results"
)

const DefaultAlpha = 0.05

// Header is the schema of the significance table.
var Header = []string{"metric", "error", "fraction", "statistic", "p value"}

// Finding is a metric and error pair whose distributions differ at a fraction.
type Finding struct {
	Metric    string
	Error     string
	Fraction  float64
	Statistic float64
	PValue    float64
}

type sampleKey struct {
	metric   string
	err      string
	fraction string
}

// Significant tests every (fraction, metric, error) triple of rows against the
// clean values of the metric and keeps those with p < alpha. Non-numeric
// and empty metric values are ignored.
func Significant(rows []results.Row, alpha float64) []Finding {
	clean := make(map[string][]float64)
	dirty := make(map[sampleKey][]float64)
	var keys []sampleKey

	for _, r := range rows {
		v, ok := r.Value.Float()
		if !ok || math.IsNaN(v) {
			continue
		}
		if r.IsBaseline() {
			clean[r.MetricName] = append(clean[r.MetricName], v)
			continue
		}

		k := sampleKey{metric: r.MetricName, err: r.ErrorName, fraction: results.FormatFraction(r.Fraction)}
		if _, seen := dirty[k]; !seen {
			keys = append(keys, k)
		}
		dirty[k] = append(dirty[k], v)
	}

	var out []Finding
	for _, k := range keys {
		x, y := clean[k.metric], dirty[k]
		if len(x) == 0 || len(y) == 0 {
			continue
		}

		d, p := KSTest(x, y)
		if p >= alpha {
			continue
		}
		f, _ := strconv.ParseFloat(k.fraction, 64)
		out = append(out, Finding{Metric: k.metric, Error: k.err, Fraction: f, Statistic: d, PValue: p})
	}
	return out
}

// MinimumFractions keeps, per metric and error, the finding with the lowest
// fraction. The result is sorted by metric, then error.
func MinimumFractions(findings []Finding) []Finding {
	type pair struct{ metric, err string }
	best := make(map[pair]Finding)

	for _, f := range findings {
		k := pair{f.Metric, f.Error}
		if cur, ok := best[k]; !ok || f.Fraction < cur.Fraction {
			best[k] = f
		}
	}

	out := make([]Finding, 0, len(best))
	for _, f := range best {
		out = append(out, f)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Metric != out[b].Metric {
			return out[a].Metric < out[b].Metric
		}
		return out[a].Error < out[b].Error
	})
	return out
}

// exactLimit bounds len(x)*len(y) for the exact p-value. Larger samples use
// the asymptotic distribution.
const exactLimit = 1_000_000

// KSTest returns the two-sample Kolmogorov-Smirnov statistic of x and y and
// its two-sided p-value, exact for small samples and asymptotic otherwise.
func KSTest(x, y []float64) (d, p float64) {
	if len(x) == 0 || len(y) == 0 {
		return 0, 1
	}

	xs := append([]float64(nil), x...)
	ys := append([]float64(nil), y...)
	sort.Float64s(xs)
	sort.Float64s(ys)

	d = stat.KolmogorovSmirnov(xs, nil, ys, nil)

	if len(xs)*len(ys) <= exactLimit {
		return d, exactP(d, len(xs), len(ys))
	}
	n, m := float64(len(xs)), float64(len(ys))
	en := math.Sqrt(n * m / (n + m))
	return d, kolmogorovQ((en + 0.12 + 0.11/en) * d)
}

// exactP is P(D >= d) for samples of sizes m and n without ties. It walks
// the lattice of merged orderings and keeps the share of paths that never
// reach a gap of d, normalised at each step so nothing overflows.
func exactP(d float64, m, n int) float64 {
	if m > n {
		m, n = n, m
	}
	md, nd := float64(m), float64(n)
	// Just below d on the grid of attainable values 1/(m*n).
	q := (0.5 + math.Floor(d*md*nd-1e-7)) / (md * nd)

	u := make([]float64, n+1)
	for j := range u {
		if float64(j)/nd <= q {
			u[j] = 1
		}
	}
	for i := 1; i <= m; i++ {
		w := float64(i) / float64(i+n)
		if float64(i)/md > q {
			u[0] = 0
		} else {
			u[0] *= w
		}
		for j := 1; j <= n; j++ {
			if math.Abs(float64(i)/md-float64(j)/nd) > q {
				u[j] = 0
			} else {
				u[j] = w*u[j] + u[j-1]
			}
		}
	}
	return clamp(1 - u[n])
}

// kolmogorovQ is the survival function of the Kolmogorov distribution.
func kolmogorovQ(lambda float64) float64 {
	if lambda < 1e-3 {
		return 1
	}

	a2 := -2 * lambda * lambda
	sum, sign, prev := 0.0, 2.0, 0.0
	for j := 1; j <= 100; j++ {
		term := sign * math.Exp(a2*float64(j*j))
		sum += term
		if math.Abs(term) <= 1e-10*prev || math.Abs(term) <= 1e-16*sum {
			return clamp(sum)
		}
		sign = -sign
		prev = math.Abs(term)
	}
	// No convergence means lambda is tiny and the samples are indistinguishable.
	return 1
}

func clamp(p float64) float64 {
	return math.Max(0, math.Min(1, p))
}

// WriteCSV writes findings to path, replacing any earlier table.
func WriteCSV(path string, findings []Finding) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output folder: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create significance table: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		return err
	}
	for _, fd := range findings {
		rec := []string{
			fd.Metric,
			fd.Error,
			results.FormatFraction(fd.Fraction),
			strconv.FormatFloat(fd.Statistic, 'g', 6, 64),
			strconv.FormatFloat(fd.PValue, 'g', 6, 64),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write significance table: %w", err)
	}
	return f.Close()
}
