package domain

import (
	"strconv"
	"strings"
)

// CurrencyNOK is the only currency the marketplace charges in.
const CurrencyNOK = "NOK"

// FormatNOK renders an øre amount the Norwegian way: space as thousands
// separator, comma as decimal separator, "kr" suffix (e.g. "1 234,50 kr").
func FormatNOK(ore int64) string {
	neg := ore < 0
	if neg {
		ore = -ore
	}
	kr := strconv.FormatInt(ore/100, 10)
	cents := ore % 100

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range kr {
		if i > 0 && (len(kr)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	if cents < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(cents, 10))
	b.WriteString(" kr")
	return b.String()
}

// PercentOf returns pct percent of ore, rounded down.
func PercentOf(ore int64, pct int) int64 {
	if ore <= 0 || pct <= 0 {
		return 0
	}
	return ore * int64(pct) / 100
}
