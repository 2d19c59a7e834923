// Package mapview holds the interactive state of one choropleth page and
// turns it into render models.
package mapview

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/popmap/internal/boundary"
	"github.com/sells-group/popmap/internal/numfmt"
	"github.com/sells-group/popmap/internal/population"
	"github.com/sells-group/popmap/internal/quartile"
	"github.com/sells-group/popmap/internal/render"
	"github.com/sells-group/popmap/internal/selection"
)

// ErrInvalidQuartile is returned for a legend index outside 0..3.
var ErrInvalidQuartile = eris.New("mapview: invalid quartile")

// FeatureHandler receives pointer events for a country feature.
type FeatureHandler interface {
	OnFeatureClick(name string)
	OnFeatureHover(name string)
}

// Canvas is the pixel size of the map.
type Canvas struct {
	Width, Height, Padding int
}

// Options configure a Page.
type Options struct {
	Canvas    Canvas
	Palette   [quartile.NumBuckets]string
	Selection []string
	// OnChange is called with the new selection after each effective pick.
	OnChange func([]string)
}

// Page is the state of one map page: the shared read-only data plus the
// selection, hovered country, clicked label, zoomed country and legend
// filter. A Page is driven from a single goroutine.
type Page struct {
	table     *population.Table
	buckets   quartile.Result
	countries *boundary.Collection

	canvas  Canvas
	palette [quartile.NumBuckets]string
	tracker *selection.Tracker

	hover  string
	label  string
	zoom   string
	filter render.Filter
}

var _ FeatureHandler = (*Page)(nil)

// NewPage builds a page over the given data.
func NewPage(table *population.Table, buckets quartile.Result, countries *boundary.Collection, opts Options) *Page {
	return &Page{
		table:     table,
		buckets:   buckets,
		countries: countries,
		canvas:    opts.Canvas,
		palette:   opts.Palette,
		tracker:   selection.NewTracker(opts.Selection, opts.OnChange),
	}
}

// OnFeatureClick selects the country, moves the population label to it and
// zooms in on it when it would appear larger than it does now.
func (p *Page) OnFeatureClick(name string) {
	name = p.resolve(name)
	p.tracker.Pick(name)
	p.ShowLabel(name)
	p.zoomCloser(name)
}

// OnFeatureHover highlights the country. An empty name clears the highlight.
func (p *Page) OnFeatureHover(name string) {
	p.hover = p.resolve(name)
}

// ShowLabel places the population label on name. Countries without data or
// outline remove the label instead.
func (p *Page) ShowLabel(name string) {
	p.label = ""
	c, ok := p.countries.Find(name)
	if !ok {
		return
	}
	if _, ok := p.table.Value(c.Name); !ok {
		return
	}
	p.label = c.Name
}

// SetZoom fits the view to name regardless of the current zoom. An empty or
// unknown name shows the whole map again.
func (p *Page) SetZoom(name string) {
	p.zoom = ""
	if c, ok := p.countries.Find(name); ok && c.Geometry != nil {
		p.zoom = c.Name
	}
}

// zoomCloser zooms to name only if that shows it larger than the current view.
func (p *Page) zoomCloser(name string) {
	c, ok := p.countries.Find(name)
	if !ok || c.Geometry == nil {
		return
	}
	cur := p.projection()
	if cur.ZoomTo(c.Bounds()).Scale() > cur.Scale() {
		p.zoom = c.Name
	}
}

// projection returns the projection the map is currently drawn with.
func (p *Page) projection() render.Projection {
	proj := render.NewProjection(p.countries.Bounds(), p.canvas.Width, p.canvas.Height, p.canvas.Padding)
	if c, ok := p.countries.Lookup(p.zoom); ok {
		proj = proj.ZoomTo(c.Bounds())
	}
	return proj
}

// resolve maps a loosely spelled country name onto its outline name. Names
// without an outline are returned unchanged.
func (p *Page) resolve(name string) string {
	if c, ok := p.countries.Find(name); ok {
		return c.Name
	}
	return name
}

// ToggleQuartile emphasises bucket b, or shows every bucket again when b is
// already active.
func (p *Page) ToggleQuartile(b quartile.Bucket) error {
	if !b.Valid() {
		return eris.Wrapf(ErrInvalidQuartile, "mapview: quartile %d", int(b))
	}
	if p.filter.On && p.filter.Bucket == b {
		p.filter = render.Filter{}
		return nil
	}
	p.filter = render.Only(b)
	return nil
}

// ActiveQuartile returns the emphasised bucket, if any.
func (p *Page) ActiveQuartile() (quartile.Bucket, bool) {
	return p.filter.Bucket, p.filter.On
}

// Selection returns the selected countries, oldest first.
func (p *Page) Selection() []string {
	return p.tracker.Current()
}

// Hover returns the highlighted country.
func (p *Page) Hover() string {
	return p.hover
}

// Label returns the country carrying the population label.
func (p *Page) Label() string {
	return p.label
}

// Zoom returns the country the view is fitted to, or "" for the whole map.
func (p *Page) Zoom() string {
	return p.zoom
}

// Tooltip returns "Name: 1.2M", or "Name: n/a" when the population is
// unknown.
func (p *Page) Tooltip(name string) string {
	v, ok := p.table.Value(name)
	if !ok {
		return name + ": n/a"
	}
	return name + ": " + numfmt.Compact(v)
}

// BucketOf returns the bucket used to color name. Countries without data
// fall back to the first bucket.
func (p *Page) BucketOf(name string) quartile.Bucket {
	if b, ok := p.buckets.BucketOf(name); ok {
		return b
	}
	if row, ok := p.table.Lookup(name); ok {
		if b, ok := p.buckets.BucketOf(row.Country); ok {
			return b
		}
	}
	return 0
}

// MapModel returns the choropleth for the current state.
func (p *Page) MapModel() render.MapModel {
	m := render.MapModel{
		Width:   p.canvas.Width,
		Height:  p.canvas.Height,
		Padding: p.canvas.Padding,
		Bounds:  p.countries.Bounds(),
		Palette: p.palette,
		Ranges:  p.buckets.Ranges,
		Filter:  p.filter,
		Hover:   p.hover,
	}
	for _, c := range p.countries.Countries() {
		m.Features = append(m.Features, render.Feature{
			Name:     c.Name,
			Geometry: c.Geometry,
			Bucket:   p.BucketOf(c.Name),
			Tooltip:  p.Tooltip(c.Name),
		})
	}
	if c, ok := p.countries.Lookup(p.zoom); ok {
		m.Zoom = c.Bounds()
	}
	if p.label != "" {
		c, _ := p.countries.Lookup(p.label)
		v, _ := p.table.Value(p.label)
		lon, lat := c.Center()
		m.Label = &render.Label{Text: numfmt.Compact(v), Lon: lon, Lat: lat}
	}
	return m
}

// CardModel returns the comparison card for the current selection.
func (p *Page) CardModel() render.CardModel {
	var m render.CardModel
	for _, name := range p.tracker.Current() {
		v, ok := p.table.Value(name)
		m.Rows = append(m.Rows, render.CardRow{Country: name, Value: v, HasData: ok})
	}
	return m
}

// Fingerprint identifies the rendered output of the page state. Pages over
// the same data with equal fingerprints render identical documents.
func (p *Page) Fingerprint() string {
	var sb strings.Builder
	sb.WriteString("sel=")
	sb.WriteString(strings.Join(p.tracker.Current(), "\x1f"))
	sb.WriteString(";hover=")
	sb.WriteString(p.hover)
	sb.WriteString(";label=")
	sb.WriteString(p.label)
	sb.WriteString(";zoom=")
	sb.WriteString(p.zoom)
	sb.WriteString(";active=")
	if p.filter.On {
		sb.WriteString(strconv.Itoa(int(p.filter.Bucket)))
	}
	return sb.String()
}

// CardFingerprint identifies the rendered comparison card.
func (p *Page) CardFingerprint() string {
	return "sel=" + strings.Join(p.tracker.Current(), "\x1f")
}
