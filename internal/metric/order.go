package metric

import (
	"math"
	"sort"

	"github.com/peekknuf/dqsweep/internal/dataset"
)

// compareValues orders two cells, falling back to their printed form when
// the kinds are not comparable.
func compareValues(c *dataset.Column, a, b dataset.Value) int {
	if less, ok := a.Less(b); ok {
		if less {
			return -1
		}
		if more, _ := b.Less(a); more {
			return 1
		}
		return 0
	}

	sa, sb := c.FormatValue(a), c.FormatValue(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}

// unsortedness runs a selection sort over the column and returns the number
// of swaps divided by the length. Missing cells sort as 0 in numeric columns
// and, together with "None", as the empty string elsewhere.
func unsortedness(c *dataset.Column) (Scalar, error) {
	if c.Len() == 0 {
		return Number(0), nil
	}

	values := c.Values()
	for i, v := range values {
		switch {
		case c.DType().IsNumeric() && v.IsMissing():
			values[i] = dataset.IntValue(0)
		case c.DType() == dataset.DTypeObject && (v.IsMissing() || isNone(v)):
			values[i] = dataset.TextValue("")
		}
	}

	swaps := 0
	for i := range values {
		minIdx := i
		for j := i + 1; j < len(values); j++ {
			if compareValues(c, values[j], values[minIdx]) < 0 {
				minIdx = j
			}
		}
		if minIdx != i {
			values[i], values[minIdx] = values[minIdx], values[i]
			swaps++
		}
	}
	return Number(float64(swaps) / float64(len(values))), nil
}

// kendallDistance is Kendall's tau-b between the column in sorted order and
// the column as stored. An undefined coefficient, from missing cells or a
// zero denominator, reports 1.
func kendallDistance(c *dataset.Column) (Scalar, error) {
	if c.MissingCount() > 0 || c.Len() < 2 {
		return Number(1), nil
	}

	observed := c.Values()
	if !nativelyOrdered(observed) {
		for i, v := range observed {
			observed[i] = dataset.TextValue(c.FormatValue(v))
		}
	}

	ordered := make([]dataset.Value, len(observed))
	copy(ordered, observed)
	sort.SliceStable(ordered, func(i, j int) bool {
		less, _ := ordered[i].Less(ordered[j])
		return less
	})

	tau, ok := tauB(c, ordered, observed)
	if !ok {
		return Number(1), nil
	}
	return Number(tau), nil
}

// nativelyOrdered reports whether every pair of cells can be ordered natively.
func nativelyOrdered(values []dataset.Value) bool {
	text, other := false, false
	for _, v := range values {
		if v.Kind == dataset.Text {
			text = true
		} else {
			other = true
		}
	}
	return !(text && other)
}

func tauB(c *dataset.Column, x, y []dataset.Value) (float64, bool) {
	n := len(x)
	pairs := float64(n) * float64(n-1) / 2

	var concordant, discordant, tiesX, tiesY float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			cx := compareValues(c, x[i], x[j])
			cy := compareValues(c, y[i], y[j])
			if cx == 0 {
				tiesX++
			}
			if cy == 0 {
				tiesY++
			}
			if cx == 0 || cy == 0 {
				continue
			}
			if cx == cy {
				concordant++
			} else {
				discordant++
			}
		}
	}

	denom := math.Sqrt((pairs - tiesX) * (pairs - tiesY))
	if denom == 0 {
		return 0, false
	}
	return (concordant - discordant) / denom, true
}
