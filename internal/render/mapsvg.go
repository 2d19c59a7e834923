package render

import (
	"html/template"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/popmap/internal/numfmt"
	"github.com/sells-group/popmap/internal/quartile"
)

const (
	oceanFill    = "#CFEBF3"
	legendTitle  = "Population Quartiles"
	legendHeight = 96
	legendRow    = 28
)

// Feature is one country on the map.
type Feature struct {
	Name     string
	Geometry *geom.MultiPolygon
	// Bucket is the quartile of the country; countries without data use 0.
	Bucket  quartile.Bucket
	Tooltip string
	// Href, when set, wraps the country in a link.
	Href string
}

// Label is the population marker placed at a clicked country.
type Label struct {
	Text     string
	Lon, Lat float64
}

// MapModel is everything needed to draw the choropleth.
type MapModel struct {
	Width, Height, Padding int
	Bounds                 *geom.Bounds
	Palette                [quartile.NumBuckets]string
	Features               []Feature
	Ranges                 [quartile.NumBuckets]quartile.Range
	Filter                 Filter
	Hover                  string
	Label                  *Label
	// Zoom, when set, is fitted with ZoomPadding if that shows it closer
	// than Bounds does.
	Zoom *geom.Bounds
	// LegendHrefs, when set, turn legend entries into links.
	LegendHrefs [quartile.NumBuckets]string
}

type pathView struct {
	Name    string
	D       string
	Tooltip string
	Href    string
	Style   Style
}

type legendView struct {
	X, Y   int
	Color  string
	Text   string
	Active bool
	Href   string
}

type labelView struct {
	X, Y string
	Text string
}

type mapView struct {
	Width, Height int
	MapHeight     int
	Ocean         string
	Paths         []pathView
	Label         *labelView
	Title         string
	LegendY       int
	Legend        []legendView
}

var mapTmpl = template.Must(template.New("map").Parse(
	`<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}" font-family="sans-serif">
<defs><clipPath id="map-area"><rect x="0" y="0" width="{{.Width}}" height="{{.MapHeight}}" rx="8"/></clipPath></defs>
<rect x="0" y="0" width="{{.Width}}" height="{{.MapHeight}}" rx="8" fill="{{.Ocean}}" fill-opacity="0.6"/>
<g class="countries" clip-path="url(#map-area)">
{{range .Paths}}{{if .Href}}<a href="{{.Href}}">{{end}}<path d="{{.D}}" fill-rule="evenodd" fill="{{.Style.Fill}}" fill-opacity="{{.Style.FillOpacity}}" stroke="{{.Style.Stroke}}" stroke-width="{{.Style.StrokeWidth}}" data-country="{{.Name}}"><title>{{.Tooltip}}</title></path>{{if .Href}}</a>{{end}}
{{end}}</g>
{{with .Label}}<g class="population-label" clip-path="url(#map-area)"><text x="{{.X}}" y="{{.Y}}" font-size="12" text-anchor="middle" paint-order="stroke" stroke="#ffffff" stroke-opacity="0.53" stroke-width="4">{{.Text}}</text></g>
{{end}}<g class="legend">
<text x="16" y="{{.LegendY}}" font-size="14" font-weight="600">{{.Title}}</text>
{{range .Legend}}{{if .Href}}<a href="{{.Href}}">{{end}}<g class="legend-entry{{if .Active}} active{{end}}" opacity="{{if .Active}}1{{else}}0.6{{end}}"><rect x="{{.X}}" y="{{.Y}}" width="16" height="16" rx="2" fill="{{.Color}}"/><text x="{{.X}}" y="{{.Y}}" dx="24" dy="13" font-size="13">{{.Text}}</text></g>{{if .Href}}</a>{{end}}
{{end}}</g>
</svg>
`))

// MapSVG writes the choropleth for m to w.
func MapSVG(w io.Writer, m MapModel) error {
	proj := NewProjection(m.Bounds, m.Width, m.Height, m.Padding)
	if m.Zoom != nil {
		proj = proj.ZoomTo(m.Zoom)
	}

	view := mapView{
		Width:     m.Width,
		Height:    m.Height + legendHeight,
		MapHeight: m.Height,
		Ocean:     oceanFill,
		Title:     legendTitle,
		LegendY:   m.Height + 24,
	}

	// The hovered country is drawn last so its outline sits on top.
	var hovered *pathView
	for _, f := range m.Features {
		if f.Geometry == nil {
			continue
		}
		b := f.Bucket
		if !b.Valid() {
			b = 0
		}
		pv := pathView{
			Name:    f.Name,
			D:       PathData(f.Geometry, proj),
			Tooltip: f.Tooltip,
			Href:    f.Href,
			Style:   FeatureStyle(m.Palette, b, m.Filter, f.Name == m.Hover),
		}
		if f.Name == m.Hover && hovered == nil {
			hovered = &pv
			continue
		}
		view.Paths = append(view.Paths, pv)
	}
	if hovered != nil {
		view.Paths = append(view.Paths, *hovered)
	}

	if m.Label != nil {
		x, y := proj.Point(m.Label.Lon, m.Label.Lat)
		view.Label = &labelView{X: coord(x), Y: coord(y), Text: m.Label.Text}
	}

	for i := range quartile.NumBuckets {
		r := m.Ranges[i]
		view.Legend = append(view.Legend, legendView{
			X:      16 + (i%2)*(m.Width/2),
			Y:      m.Height + 36 + (i/2)*legendRow,
			Color:  m.Palette[i],
			Text:   LegendText(r),
			Active: m.Filter.On && int(m.Filter.Bucket) == i,
			Href:   m.LegendHrefs[i],
		})
	}

	if err := mapTmpl.Execute(w, view); err != nil {
		return eris.Wrap(err, "render: execute map template")
	}
	return nil
}

// LegendText formats a quartile range as "1.2M – 3.4M".
func LegendText(r quartile.Range) string {
	return numfmt.Compact(r.Min) + " – " + numfmt.Compact(r.Max)
}

// PathData converts a MultiPolygon into SVG path data. Every ring becomes a
// closed subpath; holes rely on the evenodd fill rule.
func PathData(mp *geom.MultiPolygon, proj Projection) string {
	var sb strings.Builder
	for i := range mp.NumPolygons() {
		poly := mp.Polygon(i)
		for j := range poly.NumLinearRings() {
			ring := poly.LinearRing(j).Coords()
			if len(ring) < 3 {
				continue
			}
			for k, c := range ring {
				x, y := proj.Point(c.X(), c.Y())
				if k == 0 {
					sb.WriteByte('M')
				} else {
					sb.WriteByte('L')
				}
				sb.WriteString(coord(x))
				sb.WriteByte(',')
				sb.WriteString(coord(y))
			}
			sb.WriteByte('Z')
		}
	}
	return sb.String()
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
