package results

import (
	"math"
	"strconv"

	"github.com/peekknuf/dqsweep/internal/metric"
)

// Header is the schema of the result table, in column order.
var Header = []string{
	"batch name", "batch number", "column name", "column type",
	"error name", "metric name", "metric value", "fraction",
}

// Row is one measurement. Baseline rows have no error name and no fraction.
type Row struct {
	BatchName   string
	BatchNumber int
	ColumnName  string
	ColumnType  string
	ErrorName   string
	MetricName  string
	Value       metric.Scalar
	Fraction    float64
}

func (r Row) IsBaseline() bool {
	return r.ErrorName == ""
}

// Record renders the row as CSV fields.
func (r Row) Record() []string {
	fraction := ""
	if !r.IsBaseline() {
		fraction = FormatFraction(r.Fraction)
	}

	return []string{
		r.BatchName,
		strconv.Itoa(r.BatchNumber),
		r.ColumnName,
		r.ColumnType,
		r.ErrorName,
		r.MetricName,
		r.Value.String(),
		fraction,
	}
}

// FormatFraction renders a fraction the way it is stored in the table.
func FormatFraction(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// parseRow is the inverse of Record. Metric values that are not numbers
// come back as strings; empty values come back as NaN.
func parseRow(rec []string) (Row, error) {
	number, err := strconv.Atoi(rec[1])
	if err != nil {
		return Row{}, err
	}

	r := Row{
		BatchName:   rec[0],
		BatchNumber: number,
		ColumnName:  rec[2],
		ColumnType:  rec[3],
		ErrorName:   rec[4],
		MetricName:  rec[5],
		Fraction:    math.NaN(),
	}

	if rec[6] == "" {
		r.Value = metric.Number(math.NaN())
	} else if f, err := strconv.ParseFloat(rec[6], 64); err == nil {
		r.Value = metric.Number(f)
	} else {
		r.Value = metric.String(rec[6])
	}

	if rec[7] != "" {
		f, err := strconv.ParseFloat(rec[7], 64)
		if err != nil {
			return Row{}, err
		}
		r.Fraction = f
	}
	return r, nil
}
