// Package numfmt formats population values for labels and tooltips.
package numfmt

import (
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

var compactUnits = []struct {
	scale  float64
	suffix string
}{
	{1e12, "T"},
	{1e9, "B"},
	{1e6, "M"},
	{1e3, "K"},
}

// Compact formats v in short English notation with at most two fraction
// digits: 950, 1.5K, 12.35M, 1.2B.
func Compact(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	if v < 0 {
		return "-" + Compact(-v)
	}

	for i, u := range compactUnits {
		if v < u.scale {
			continue
		}
		scaled := round2(v / u.scale)
		// 999_999 rounds to 1000K; promote to the next larger unit.
		if scaled >= 1000 && i > 0 {
			prev := compactUnits[i-1]
			return trimFloat(round2(v/prev.scale)) + prev.suffix
		}
		return trimFloat(scaled) + u.suffix
	}

	scaled := round2(v)
	if scaled >= 1000 {
		return "1K"
	}
	return trimFloat(scaled)
}

// Grouped formats v with thousands separators and at most three fraction
// digits, e.g. 216,422,446.
func Grouped(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	r := math.Round(v*1000) / 1000
	if r == math.Trunc(r) && math.Abs(r) < 1<<62 {
		return humanize.Comma(int64(r))
	}
	return humanize.Commaf(r)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func trimFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
