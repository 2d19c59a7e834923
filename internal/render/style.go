package render

import (
	"github.com/sells-group/popmap/internal/quartile"
)

// DefaultPalette holds the fill color of each quartile, lightest first.
var DefaultPalette = [quartile.NumBuckets]string{"#DAD2F0", "#AE9AE8", "#654FA3", "#3D2A73"}

const (
	mutedFill    = "#e5e5e5"
	mutedOpacity = 0.15
	mutedStroke  = "rgba(200,200,200,0.3)"

	baseOpacity     = 0.8
	baseStroke      = "rgba(255,255,255,0.5)"
	baseStrokeWidth = 0.5

	hoverStroke      = "#EEE7E0"
	hoverStrokeWidth = 2.0

	// BarColor fills the comparison card bars.
	BarColor = "#3B82F6"
)

// Style is the paint applied to one country path.
type Style struct {
	Fill        string
	FillOpacity float64
	Stroke      string
	StrokeWidth float64
}

// Filter is the legend quartile filter. The zero value shows every quartile.
type Filter struct {
	Bucket quartile.Bucket
	On     bool
}

// Only returns a filter that emphasises bucket b.
func Only(b quartile.Bucket) Filter {
	return Filter{Bucket: b, On: true}
}

// Includes reports whether bucket b is drawn in full color.
func (f Filter) Includes(b quartile.Bucket) bool {
	return !f.On || f.Bucket == b
}

// FeatureStyle returns the paint for a country in bucket b.
func FeatureStyle(palette [quartile.NumBuckets]string, b quartile.Bucket, f Filter, hovered bool) Style {
	var s Style
	if f.Includes(b) {
		s = Style{
			Fill:        palette[b],
			FillOpacity: baseOpacity,
			Stroke:      baseStroke,
			StrokeWidth: baseStrokeWidth,
		}
	} else {
		s = Style{
			Fill:        mutedFill,
			FillOpacity: mutedOpacity,
			Stroke:      mutedStroke,
			StrokeWidth: baseStrokeWidth,
		}
	}
	if hovered {
		s.Stroke = hoverStroke
		s.StrokeWidth = hoverStrokeWidth
	}
	return s
}

// PaletteFrom converts configured colors into a palette, falling back to
// DefaultPalette for missing entries.
func PaletteFrom(colors []string) [quartile.NumBuckets]string {
	p := DefaultPalette
	for i := 0; i < len(colors) && i < quartile.NumBuckets; i++ {
		if colors[i] != "" {
			p[i] = colors[i]
		}
	}
	return p
}
