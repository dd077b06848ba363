package feature

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Listing numbers arrive as free text ("1450", "2br", " 3.5 "); only the
// leading numeric prefix counts.
var (
	floatPrefix = regexp.MustCompile(`^[+-]?(?:Infinity|\d+\.?\d*(?:[eE][+-]?\d+)?|\.\d+(?:[eE][+-]?\d+)?)`)
	intPrefix   = regexp.MustCompile(`^[+-]?\d+`)
)

// ParseFloat parses the leading decimal number of s, ignoring leading
// whitespace and trailing garbage. It returns NaN when s has no numeric prefix.
func ParseFloat(s string) float64 {
	m := floatPrefix.FindString(strings.TrimLeft(s, " \t\n\r\v\f"))
	if m == "" {
		return math.NaN()
	}
	switch m {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		// Out-of-range literals saturate.
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f
		}
		return math.NaN()
	}
	return f
}

// ParseInt parses the leading base-10 integer of s, ignoring leading
// whitespace and trailing garbage ("1000.7" is 1000).
func ParseInt(s string) (int64, bool) {
	m := intPrefix.FindString(strings.TrimLeft(s, " \t\n\r\v\f"))
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
