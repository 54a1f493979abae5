package tax

import (
	"strconv"
	"strings"
)

// CleanCurrency parses user-entered Naira amounts leniently. It strips the ₦
// sign, an "NGN" prefix or suffix, thousands separators, and whitespace.
// Ambiguous input (multiple decimal points, stray letters, empty string)
// yields 0 rather than an error so a half-filled form never blocks the
// calculator.
func CleanCurrency(raw string) float64 {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "₦", "")
	s = strings.ReplaceAll(s, ",", "")
	upper := strings.ToUpper(s)
	upper = strings.TrimPrefix(upper, "NGN")
	upper = strings.TrimSuffix(upper, "NGN")
	s = strings.TrimSpace(upper)
	if s == "" || strings.Count(s, ".") > 1 {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// FormatNaira renders an amount with the ₦ sign, thousands separators and two
// decimals for summaries and emails.
func FormatNaira(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	intPart, frac := s, "00"
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i+1:]
	}
	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	out := "₦" + b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}
