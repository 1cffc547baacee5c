package metric

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func sorted(x []float64) []float64 {
	s := make([]float64, len(x))
	copy(s, x)
	sort.Float64s(s)
	return s
}

func maxOf(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return floats.Max(x)
}

func minOf(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return floats.Min(x)
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return stat.Mean(x, nil)
}

// popStd is the population standard deviation (divisor n).
func popStd(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	_, std := stat.PopMeanStdDev(x, nil)
	return std
}

// skewness is the bias-adjusted sample skewness. It needs three values and
// is zero for a constant sample.
func skewness(x []float64) float64 {
	if len(x) < 3 {
		return math.NaN()
	}
	if floats.Max(x) == floats.Min(x) {
		return 0
	}
	return stat.Skew(x, nil)
}

// percentile interpolates linearly between the closest ranks; p is in [0, 100].
func percentile(x []float64, p float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return quantile(sorted(x), p/100)
}

func quantile(sortedVals []float64, q float64) float64 {
	if len(sortedVals) == 1 {
		return sortedVals[0]
	}

	index := q * float64(len(sortedVals)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))

	if lower == upper {
		return sortedVals[lower]
	}

	weight := index - float64(lower)
	return sortedVals[lower]*(1-weight) + sortedVals[upper]*weight
}

// mode returns the most frequent value; ties go to the smallest.
func mode(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}

	s := sorted(x)
	best, bestCount := s[0], 0
	for i := 0; i < len(s); {
		j := i
		for j < len(s) && s[j] == s[i] {
			j++
		}
		if j-i > bestCount {
			best, bestCount = s[i], j-i
		}
		i = j
	}
	return best
}

func maxInt(x []int) float64 {
	if len(x) == 0 {
		return 0
	}
	m := x[0]
	for _, v := range x[1:] {
		if v > m {
			m = v
		}
	}
	return float64(m)
}

func minInt(x []int) float64 {
	if len(x) == 0 {
		return 0
	}
	m := x[0]
	for _, v := range x[1:] {
		if v < m {
			m = v
		}
	}
	return float64(m)
}

func avgInt(x []int) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := 0
	for _, v := range x {
		sum += v
	}
	return float64(sum) / float64(len(x))
}
