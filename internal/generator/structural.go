package generator

import (
	"math/rand/v2"
	"sort"

	"github.com/peekknuf/dqsweep/internal/dataset"
)

// duplicates copies each sampled cell over its successor. The last row has
// no successor and is left alone, as is any cell equal to the last one.
func duplicates(c *dataset.Column, fraction float64, rng *rand.Rand) []dataset.Value {
	values := c.Values()
	n := len(values)

	for _, i := range sample(n, fraction, rng) {
		if i+1 >= n || values[i].Equal(values[n-1]) {
			continue
		}
		values[i+1] = values[i]
	}
	return values
}

// sortHead drops the missing cells and sorts the leading fraction of what
// remains in place, so the result is shorter than c when c has missing
// cells. A float column stays float even when no missing cell is left.
func sortHead(c *dataset.Column, fraction float64, _ *rand.Rand) []dataset.Value {
	values := make([]dataset.Value, 0, c.Len())
	for _, v := range c.Values() {
		if v.IsMissing() {
			continue
		}
		if c.DType() == dataset.DTypeFloat64 && v.Kind == dataset.Int {
			v = dataset.FloatValue(v.Num)
		}
		values = append(values, v)
	}

	k := int(float64(len(values)) * fraction)
	head := values[:k]
	sort.SliceStable(head, func(a, b int) bool {
		if less, ok := head[a].Less(head[b]); ok {
			return less
		}
		return c.FormatValue(head[a]) < c.FormatValue(head[b])
	})
	return values
}
