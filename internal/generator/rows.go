package generator

import (
	"math/rand/v2"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/peekknuf/dqsweep/internal/dataset"
)

const (
	noneMarker     = "None"
	implicitNumber = 99999
)

// noise is appended to values by the extraneous data generator.
var noise = []string{
	"fsfsdfsf", "sdf gsfh fgjf", "dfgdf gdfgd", "hnhklköjkhkg", "lj dfks knb",
	"hklhkh", "lpujhf", "fadsdvb", "65767", "365 lkh", "0897899", "24254",
	"7878089", "2235435", "fgkjhvb kjk", "879izukhj", "23 4edg", "768", "576897gh",
}

var (
	// replaceableChars may be swapped for one another.
	replaceableChars = []string{"-", "/", ":"}
	// deletableChars are dropped by the delete generator.
	deletableChars = []string{"-", "/", "@", "€", ":"}

	datePrefix = regexp.MustCompile(`^[0-9]+[^0-9a-zA-Z][0-9]+[^0-9a-zA-Z][0-9]+`)
	yearFirst  = regexp.MustCompile(`^[0-9]{4}[^0-9a-zA-Z][0-9]{1,2}[^0-9a-zA-Z][0-9]{1,2}$`)
	yearLast   = regexp.MustCompile(`^[0-9]{1,2}[^0-9a-zA-Z][0-9]{1,2}[^0-9a-zA-Z][0-9]{4}`)
)

func explicitMissing(_ *dataset.Column, _ dataset.Value, _ *rand.Rand) dataset.Value {
	return dataset.MissingValue()
}

// implicitMissing writes the stand-in a human would type for "no value".
func implicitMissing(c *dataset.Column, _ dataset.Value, _ *rand.Rand) dataset.Value {
	if c.DType().IsNumeric() {
		return dataset.IntValue(implicitNumber)
	}
	return dataset.TextValue(noneMarker)
}

func extraneous(c *dataset.Column, v dataset.Value, rng *rand.Rand) dataset.Value {
	return dataset.TextValue(c.FormatValue(v) + " " + noise[rng.IntN(len(noise))])
}

// replaceSpecial swaps the first separator of a text value, if it is one of
// the replaceable characters, for another one at every occurrence.
func replaceSpecial(_ *dataset.Column, v dataset.Value, rng *rand.Rand) dataset.Value {
	if v.Kind != dataset.Text {
		return v
	}

	idx := strings.IndexFunc(v.Str, func(r rune) bool { return !isASCIIAlnum(r) })
	if idx < 0 {
		return v
	}
	_, size := utf8.DecodeRuneInString(v.Str[idx:])
	sep := v.Str[idx : idx+size]

	others := make([]string, 0, len(replaceableChars)-1)
	found := false
	for _, ch := range replaceableChars {
		if ch == sep {
			found = true
			continue
		}
		others = append(others, ch)
	}
	if !found {
		return v
	}
	return dataset.TextValue(strings.ReplaceAll(v.Str, sep, others[rng.IntN(len(others))]))
}

func deleteSpecial(_ *dataset.Column, v dataset.Value, _ *rand.Rand) dataset.Value {
	if v.Kind != dataset.Text {
		return v
	}
	s := v.Str
	for _, ch := range deletableChars {
		s = strings.ReplaceAll(s, ch, "")
	}
	return dataset.TextValue(s)
}

func lowerCase(_ *dataset.Column, v dataset.Value, _ *rand.Rand) dataset.Value {
	if v.Kind != dataset.Text {
		return v
	}
	return dataset.TextValue(strings.ToLower(v.Str))
}

// changeDate rotates the fields of a date so that a leading year moves to
// the end and a trailing year moves to the front.
func changeDate(_ *dataset.Column, v dataset.Value, _ *rand.Rand) dataset.Value {
	if v.Kind != dataset.Text || !datePrefix.MatchString(v.Str) {
		return v
	}

	idx := strings.IndexFunc(v.Str, func(r rune) bool { return r < '0' || r > '9' })
	_, size := utf8.DecodeRuneInString(v.Str[idx:])
	sep := v.Str[idx : idx+size]

	parts := strings.Split(v.Str, sep)
	if len(parts) != 3 {
		return v
	}

	switch {
	case yearFirst.MatchString(v.Str):
		return dataset.TextValue(parts[1] + sep + parts[2] + sep + parts[0])
	case yearLast.MatchString(v.Str):
		return dataset.TextValue(parts[2] + sep + parts[0] + sep + parts[1])
	}
	return v
}

// erroneous scales numbers by 100, keeping their kind.
func erroneous(_ *dataset.Column, v dataset.Value, _ *rand.Rand) dataset.Value {
	switch v.Kind {
	case dataset.Int:
		return dataset.IntValue(int64(v.Num) * 100)
	case dataset.Float:
		return dataset.FloatValue(v.Num * 100)
	case dataset.Bool:
		if v.B {
			return dataset.IntValue(100)
		}
		return dataset.IntValue(0)
	}
	return v
}

func isASCIIAlnum(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
