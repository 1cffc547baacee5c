package metric

import (
	"github.com/antzucaro/matchr"

	"github.com/peekknuf/dqsweep/internal/dataset"
)

// implicitNumber is the numeric stand-in for a missing value.
const implicitNumber = "99999"

// soundexDuplicates returns 0 when two values share a Soundex code and 1
// otherwise. Missing cells and the implicit missing markers are skipped.
func soundexDuplicates(c *dataset.Column) (Scalar, error) {
	seen := make(map[string]struct{})
	for i := 0; i < c.Len(); i++ {
		if c.At(i).IsMissing() {
			continue
		}
		s := c.Format(i)
		if s == noneMarker || s == implicitNumber {
			continue
		}

		code := matchr.Soundex(s)
		if _, dup := seen[code]; dup {
			return Number(0), nil
		}
		seen[code] = struct{}{}
	}
	return Number(1), nil
}

// soundexMissingValues is the share of values that sound like "None".
func soundexMissingValues(c *dataset.Column) (Scalar, error) {
	if c.Len() == 0 {
		return Number(0), nil
	}

	target := matchr.Soundex(noneMarker)
	hits := 0
	for i := 0; i < c.Len(); i++ {
		if matchr.Soundex(c.Format(i)) == target {
			hits++
		}
	}
	return Number(float64(hits) / float64(c.Len())), nil
}
