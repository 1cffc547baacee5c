package dataset

const sniffBytes = 64 * 1024

// IsValidDelimiter checks if a rune is a supported field delimiter.
func IsValidDelimiter(delim rune) bool {
	return delim == ',' || delim == ';' || delim == '\t' || delim == '|'
}

// DetectDelimiter picks the most frequent candidate delimiter in the first
// five lines of sample. Ties resolve in candidate order; comma wins when
// nothing is found.
func DetectDelimiter(sample []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	counts := make(map[rune]int, len(candidates))

	lines := 0
	inQuote := false
	for i := 0; i < len(sample) && lines < 5; i++ {
		c := sample[i]
		if c == '"' {
			inQuote = !inQuote
			continue
		}
		if inQuote {
			continue
		}
		if c == '\n' {
			lines++
			continue
		}
		for _, d := range candidates {
			if c == byte(d) {
				counts[d]++
			}
		}
	}

	best, bestCount := ',', 0
	for _, d := range candidates {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}

// ParseDelimiter converts a configured delimiter name into a rune.
// "auto" (or empty) yields zero, which asks the loader to detect it.
func ParseDelimiter(s string) (rune, bool) {
	switch s {
	case "", "auto":
		return 0, true
	case "tab", `\t`:
		return '\t', true
	}

	r := []rune(s)
	if len(r) != 1 || !IsValidDelimiter(r[0]) {
		return 0, false
	}
	return r[0], true
}
