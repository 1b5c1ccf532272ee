package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Truncate cuts `s` down to at most `max` runes. Truncated strings end with "...".
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 3 {
		return string([]rune(s)[:max])
	}
	return string([]rune(s)[:max-3]) + "..."
}

// FormatAmount renders `v` with thousands separators and, when it has cents, 2 decimals: 25000 -> "25,000".
func FormatAmount(v float64) string {
	neg := v < 0
	v = math.Abs(v)
	whole, frac := math.Modf(v)
	cents := int64(math.Round(frac * 100))
	if cents == 100 {
		whole++
		cents = 0
	}

	digits := strconv.FormatInt(int64(whole), 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	if cents > 0 {
		fmt.Fprintf(&b, ".%02d", cents)
	}
	return b.String()
}

// ParseAmount parses an extracted amount, thousands separators included.
func ParseAmount(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}
