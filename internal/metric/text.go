package metric

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"gonum.org/v1/gonum/stat"

	"github.com/peekknuf/dqsweep/internal/dataset"
)

// noneMarker is the textual stand-in for a missing value.
const noneMarker = "None"

var (
	yearFirstDate = regexp.MustCompile(`^[0-9]{4}[^0-9a-zA-Z][0-9]{1,2}[^0-9a-zA-Z][0-9]{1,2}$`)
	yearLastDate  = regexp.MustCompile(`^[0-9]{1,2}[^0-9a-zA-Z][0-9]{1,2}[^0-9a-zA-Z][0-9]{4}$`)
)

func isNone(v dataset.Value) bool {
	return v.Kind == dataset.Text && v.Str == noneMarker
}

// lengthMetric aggregates the rune length of each printed value. Missing
// cells have length 0.
func lengthMetric(agg func([]int) float64) ComputeFunc {
	return func(c *dataset.Column) (Scalar, error) {
		lengths := make([]int, c.Len())
		for i := 0; i < c.Len(); i++ {
			if c.At(i).IsMissing() {
				continue
			}
			lengths[i] = utf8.RuneCountInString(c.Format(i))
		}
		return Number(agg(lengths)), nil
	}
}

// distinctKey folds equal values onto one key: 1, 1.0 and True collapse.
func distinctKey(v dataset.Value) string {
	switch v.Kind {
	case dataset.Text:
		return "s:" + v.Str
	case dataset.Bool:
		if v.B {
			return "n:1"
		}
		return "n:0"
	}
	return "n:" + strconv.FormatFloat(v.Num, 'g', -1, 64)
}

// distinct is the ratio of unique to present values, or 0 when every
// present value is unique.
func distinct(c *dataset.Column) (Scalar, error) {
	present := c.NonMissing()
	if len(present) == 0 {
		return Number(0), nil
	}

	seen := make(map[string]struct{}, len(present))
	for _, v := range present {
		seen[distinctKey(v)] = struct{}{}
	}
	if len(seen) == len(present) {
		return Number(0), nil
	}
	return Number(float64(len(seen)) / float64(len(present))), nil
}

// valuePattern is the share of values that have the most common number of
// space-separated words.
func valuePattern(c *dataset.Column) (Scalar, error) {
	if c.Len() == 0 {
		return Number(0), nil
	}

	counts := make(map[int]int)
	best := 0
	for i := 0; i < c.Len(); i++ {
		words := len(strings.Split(c.Format(i), " "))
		counts[words]++
		if counts[words] > best {
			best = counts[words]
		}
	}
	return Number(float64(best) / float64(c.Len())), nil
}

// specialChars are the separators tracked by the pattern metrics.
const specialChars = "-/@€:"

// specialCharsPattern masks every value down to its special characters,
// with '#' standing for anything else, and returns the share of present
// values that follow the most common mask. "None" markers count towards
// that share; values without special characters have no mask. Returns 1
// when no value has a mask.
func specialCharsPattern(c *dataset.Column) (Scalar, error) {
	present := c.NonMissing()

	patterns := make(map[string]int)
	nones := 0
	for _, v := range present {
		if isNone(v) {
			nones++
			continue
		}

		var b strings.Builder
		specials := 0
		for _, r := range c.FormatValue(v) {
			if strings.ContainsRune(specialChars, r) {
				b.WriteRune(r)
				specials++
			} else {
				b.WriteByte('#')
			}
		}
		if specials > 0 {
			patterns[b.String()]++
		}
	}

	if len(patterns) == 0 {
		return Number(1), nil
	}

	best := 0
	for _, n := range patterns {
		if n > best {
			best = n
		}
	}
	return Number(float64(best+nones) / float64(len(present))), nil
}

// capsPattern is the number of values starting with a capital divided by the
// number of all-lowercase values, or 0 when either group is empty.
func capsPattern(c *dataset.Column) (Scalar, error) {
	caps, smalls := 0, 0
	for i := 0; i < c.Len(); i++ {
		v := c.At(i)
		if v.IsMissing() || isNone(v) {
			continue
		}

		s := c.Format(i)
		first, _ := utf8.DecodeRuneInString(s)
		if s != "" && unicode.IsUpper(first) {
			caps++
		}
		if isLower(s) {
			smalls++
		}
	}

	if caps == 0 || smalls == 0 {
		return Number(0), nil
	}
	return Number(float64(caps) / float64(smalls)), nil
}

// isLower reports whether s has at least one cased letter and no upper or
// title case ones.
func isLower(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsUpper(r) || unicode.IsTitle(r) {
			return false
		}
		if unicode.IsLower(r) {
			cased = true
		}
	}
	return cased
}

// dateStd is the population standard deviation of the leading field of the
// values that look like dates (yyyy-mm-dd or dd-mm-yyyy with any separator).
func dateStd(c *dataset.Column) (Scalar, error) {
	var firsts []float64
	for i := 0; i < c.Len(); i++ {
		v := c.At(i)
		if v.Kind != dataset.Text {
			continue
		}
		if !yearFirstDate.MatchString(v.Str) && !yearLastDate.MatchString(v.Str) {
			continue
		}

		sep := strings.IndexFunc(v.Str, func(r rune) bool { return r < '0' || r > '9' })
		n, err := strconv.Atoi(v.Str[:sep])
		if err != nil {
			continue
		}
		firsts = append(firsts, float64(n))
	}

	if len(firsts) == 0 {
		return Number(0), nil
	}
	_, std := stat.PopMeanStdDev(firsts, nil)
	if math.IsNaN(std) {
		return Number(0), nil
	}
	return Number(std), nil
}
