package metric

import (
	"math"
	"sort"

	"github.com/peekknuf/dqsweep/internal/dataset"
)

func numbers(c *dataset.Column) ([]float64, error) {
	nums, ok := c.Numbers()
	if !ok {
		return nil, ErrTypeMismatch
	}
	return nums, nil
}

// numericStat lifts a statistic over the present numbers of a numeric column.
func numericStat(fn func([]float64) float64) ComputeFunc {
	return func(c *dataset.Column) (Scalar, error) {
		nums, err := numbers(c)
		if err != nil {
			return Scalar{}, err
		}
		return Number(fn(nums)), nil
	}
}

func completeness(c *dataset.Column) (Scalar, error) {
	if c.Len() == 0 {
		return Number(0), nil
	}
	present := c.Len() - c.MissingCount()
	return Number(float64(present) / float64(c.Len())), nil
}

// sizeMetric aggregates the printed length of each absolute value. Missing
// cells have size 0.
func sizeMetric(agg func([]int) float64) ComputeFunc {
	return func(c *dataset.Column) (Scalar, error) {
		if !c.DType().IsNumeric() {
			return Scalar{}, ErrTypeMismatch
		}

		sizes := make([]int, c.Len())
		for i := 0; i < c.Len(); i++ {
			v := c.At(i)
			if v.IsMissing() {
				continue
			}
			sizes[i] = len(c.FormatNumber(math.Abs(v.Num)))
		}
		return Number(agg(sizes)), nil
	}
}

// outliers flags values outside the Tukey fences and reports the greatest
// of them compared as text, or 0 when nothing is flagged.
func outliers(c *dataset.Column) (Scalar, error) {
	nums, err := numbers(c)
	if err != nil {
		return Scalar{}, err
	}
	if len(nums) == 0 {
		return Number(0), nil
	}

	s := sorted(nums)
	q1, q3 := quantile(s, 0.25), quantile(s, 0.75)
	iqr := q3 - q1
	lower, upper := q1-1.5*iqr, q3+1.5*iqr

	var flagged []string
	for i := 0; i < c.Len(); i++ {
		v := c.At(i)
		if !v.IsNumber() {
			continue
		}
		if v.Num < lower || v.Num > upper {
			flagged = append(flagged, c.Format(i))
		}
	}
	if len(flagged) == 0 {
		return Number(0), nil
	}

	sort.Strings(flagged)
	return String(flagged[len(flagged)-1]), nil
}
