package analysis

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peekknuf/dqsweep/internal/metric"
	"github.com/peekknuf/dqsweep/internal/results"
)

func baseline(name string, v float64) results.Row {
	return results.Row{MetricName: name, Value: metric.Number(v)}
}

func corrupted(name, errName string, fraction, v float64) results.Row {
	return results.Row{MetricName: name, ErrorName: errName, Fraction: fraction, Value: metric.Number(v)}
}

func TestKSTest(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	d, p := KSTest(x, x)
	assert.InDelta(t, 0.0, d, 1e-12)
	assert.Equal(t, 1.0, p)

	far := []float64{101, 102, 103, 104, 105, 106, 107, 108, 109, 110}
	d, p = KSTest(x, far)
	assert.InDelta(t, 1.0, d, 1e-12)
	// Only the two fully separated orderings out of C(20, 10) reach D = 1.
	assert.InDelta(t, 2.0/184756, p, 1e-12)

	d, p = KSTest([]float64{1}, []float64{2})
	assert.InDelta(t, 1.0, d, 1e-12)
	assert.Equal(t, 1.0, p)

	_, p = KSTest(nil, x)
	assert.Equal(t, 1.0, p)
}

func TestExactP(t *testing.T) {
	// Sizes 3 and 4: 35 orderings, 2 with D = 1 and 8 with D >= 3/4.
	assert.InDelta(t, 2.0/35, exactP(1, 3, 4), 1e-12)
	assert.InDelta(t, 8.0/35, exactP(0.75, 3, 4), 1e-12)
	assert.InDelta(t, exactP(0.75, 3, 4), exactP(0.75, 4, 3), 1e-15)
	assert.Equal(t, 1.0, exactP(0, 5, 5))
}

func TestKSTestLargeSamplesUseAsymptotic(t *testing.T) {
	x := make([]float64, 1001)
	y := make([]float64, 1001)
	for i := range x {
		x[i] = float64(i)
		y[i] = float64(i) + 50
	}

	d, p := KSTest(x, y)
	n := 1001.0
	en := math.Sqrt(n * n / (2 * n))
	assert.InDelta(t, kolmogorovQ((en+0.12+0.11/en)*d), p, 1e-15)
}

func TestKolmogorovQ(t *testing.T) {
	// Reference values of the Kolmogorov survival function.
	assert.InDelta(t, 0.2700, kolmogorovQ(1.0), 1e-3)
	assert.InDelta(t, 0.0500, kolmogorovQ(1.3581), 1e-3)
	assert.Equal(t, 1.0, kolmogorovQ(0))
}

func TestSignificantAndMinimumFractions(t *testing.T) {
	var rows []results.Row
	for i := 0; i < 20; i++ {
		rows = append(rows, baseline("completeness", 1))
		rows = append(rows, corrupted("completeness", "explicit missing values", 0.05, 1))
		rows = append(rows, corrupted("completeness", "explicit missing values", 0.5, 0.5))
		rows = append(rows, corrupted("completeness", "explicit missing values", 0.95, 0.05))
	}
	rows = append(rows, results.Row{MetricName: "outliers", Value: metric.String("a")})

	findings := Significant(rows, DefaultAlpha)
	require.Len(t, findings, 2)
	for _, f := range findings {
		assert.Equal(t, "completeness", f.Metric)
		assert.NotEqual(t, 0.05, f.Fraction)
	}

	minimum := MinimumFractions(findings)
	require.Len(t, minimum, 1)
	assert.Equal(t, 0.5, minimum[0].Fraction)
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "significance.csv")
	findings := []Finding{{Metric: "mean", Error: "sort", Fraction: 0.25, Statistic: 0.5, PValue: 0.01}}

	require.NoError(t, WriteCSV(path, findings))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "metric,error,fraction,statistic,p value", lines[0])
	assert.Equal(t, "mean,sort,0.25,0.5,0.01", lines[1])
}
