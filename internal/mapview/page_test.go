package mapview

import (
	"math"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/popmap/internal/boundary"
	"github.com/sells-group/popmap/internal/population"
	"github.com/sells-group/popmap/internal/quartile"
	"github.com/sells-group/popmap/internal/render"
)

func square(lon, lat, size float64) *geom.MultiPolygon {
	return geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{{{
		{lon, lat}, {lon + size, lat}, {lon + size, lat + size}, {lon, lat + size}, {lon, lat},
	}}})
}

func newTestPage(t *testing.T, opts Options) *Page {
	t.Helper()
	table := population.NewTable([]population.Row{
		{Country: "Brazil", Value: 216422446},
		{Country: "Chile", Value: 19629590},
		{Country: "Perú", Value: 34352719},
		{Country: "Uruguay", Value: 3423108},
		{Country: "Bolivia", Value: math.NaN()},
	})
	countries := boundary.NewCollection([]boundary.Country{
		{Name: "Brazil", Geometry: square(-60, -20, 10)},
		{Name: "Chile", Geometry: square(-72, -40, 4)},
		{Name: "Peru", Geometry: square(-78, -14, 6)},
		{Name: "Uruguay", Geometry: square(-58, -34, 2)},
		{Name: "Bolivia", Geometry: square(-66, -20, 4)},
		{Name: "Guyana", Geometry: square(-60, 2, 2)},
	})
	if opts.Canvas == (Canvas{}) {
		opts.Canvas = Canvas{Width: 300, Height: 300, Padding: 10}
	}
	if opts.Palette == ([quartile.NumBuckets]string{}) {
		opts.Palette = render.DefaultPalette
	}
	return NewPage(table, table.Buckets(), countries, opts)
}

func TestPage_ImplementsFeatureHandler(t *testing.T) {
	var h FeatureHandler = newTestPage(t, Options{})
	h.OnFeatureHover("Chile")
	h.OnFeatureClick("Chile")
	assert.Equal(t, []string{"Chile"}, h.(*Page).Selection())
}

func TestPage_ClickSelects(t *testing.T) {
	var changes [][]string
	p := newTestPage(t, Options{OnChange: func(sel []string) { changes = append(changes, sel) }})

	p.OnFeatureClick("Chile")
	p.OnFeatureClick("Brazil")
	p.OnFeatureClick("Brazil")
	p.OnFeatureClick("Peru")

	assert.Equal(t, []string{"Brazil", "Peru"}, p.Selection())
	assert.Equal(t, [][]string{{"Chile"}, {"Chile", "Brazil"}, {"Brazil", "Peru"}}, changes)
}

func TestPage_ClickMovesLabel(t *testing.T) {
	p := newTestPage(t, Options{})

	p.OnFeatureClick("Chile")
	assert.Equal(t, "Chile", p.Label())

	// No data: the label is removed, the selection still changes.
	p.OnFeatureClick("Bolivia")
	assert.Empty(t, p.Label())
	assert.Equal(t, []string{"Chile", "Bolivia"}, p.Selection())

	// Folded name match.
	p.OnFeatureClick("Peru")
	assert.Equal(t, "Peru", p.Label())
}

func TestPage_Hover(t *testing.T) {
	p := newTestPage(t, Options{})
	p.OnFeatureHover("Chile")
	assert.Equal(t, "Chile", p.Hover())
	assert.Equal(t, "Chile", p.MapModel().Hover)

	p.OnFeatureHover("")
	assert.Empty(t, p.Hover())
}

func TestPage_HoverResolvesFoldedName(t *testing.T) {
	p := newTestPage(t, Options{})

	p.OnFeatureHover("peru")
	assert.Equal(t, "Peru", p.Hover())
	assert.Equal(t, "Peru", p.MapModel().Hover)

	p.OnFeatureHover(" CHILE ")
	assert.Equal(t, "Chile", p.Hover())

	// Names without an outline are kept as given.
	p.OnFeatureHover("Atlantis")
	assert.Equal(t, "Atlantis", p.Hover())
}

func TestPage_ClickZoomsCloser(t *testing.T) {
	p := newTestPage(t, Options{})
	assert.Empty(t, p.Zoom())
	assert.Nil(t, p.MapModel().Zoom)

	p.OnFeatureClick("uruguay")
	assert.Equal(t, "Uruguay", p.Zoom())
	assert.Equal(t, []string{"Uruguay"}, p.Selection())

	// Brazil would show less detail than the current view, so the view stays.
	p.OnFeatureClick("Brazil")
	assert.Equal(t, "Uruguay", p.Zoom())

	m := p.MapModel()
	require.NotNil(t, m.Zoom)
	assert.InDelta(t, -58, m.Zoom.Min(0), 1e-9)
	assert.InDelta(t, -32, m.Zoom.Max(1), 1e-9)
	// The full extent is still the base the zoom is compared against.
	assert.InDelta(t, -78, m.Bounds.Min(0), 1e-9)
}

func TestPage_ClickZoomsWithoutData(t *testing.T) {
	p := newTestPage(t, Options{})

	p.OnFeatureClick("Bolivia")
	assert.Equal(t, "Bolivia", p.Zoom())
	assert.Empty(t, p.Label())

	// No outline: nothing to zoom to.
	p.OnFeatureClick("Atlantis")
	assert.Equal(t, "Bolivia", p.Zoom())
}

func TestPage_SetZoom(t *testing.T) {
	p := newTestPage(t, Options{})

	p.SetZoom("Brazil")
	assert.Equal(t, "Brazil", p.Zoom())

	// Clicking a smaller country still zooms further in from Brazil.
	p.OnFeatureClick("Uruguay")
	assert.Equal(t, "Uruguay", p.Zoom())

	p.SetZoom("Atlantis")
	assert.Empty(t, p.Zoom())

	p.SetZoom("BRAZIL")
	assert.Equal(t, "Brazil", p.Zoom())

	p.SetZoom("")
	assert.Empty(t, p.Zoom())
	assert.Nil(t, p.MapModel().Zoom)
}

func TestPage_ToggleQuartile(t *testing.T) {
	p := newTestPage(t, Options{})

	_, on := p.ActiveQuartile()
	assert.False(t, on)

	require.NoError(t, p.ToggleQuartile(2))
	b, on := p.ActiveQuartile()
	assert.True(t, on)
	assert.Equal(t, quartile.Bucket(2), b)

	require.NoError(t, p.ToggleQuartile(1))
	b, _ = p.ActiveQuartile()
	assert.Equal(t, quartile.Bucket(1), b)

	require.NoError(t, p.ToggleQuartile(1))
	_, on = p.ActiveQuartile()
	assert.False(t, on)

	err := p.ToggleQuartile(4)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidQuartile))
}

func TestPage_Tooltip(t *testing.T) {
	p := newTestPage(t, Options{})

	assert.Equal(t, "Brazil: 216.42M", p.Tooltip("Brazil"))
	assert.Equal(t, "Peru: 34.35M", p.Tooltip("Peru"))
	assert.Equal(t, "Bolivia: n/a", p.Tooltip("Bolivia"))
	assert.Equal(t, "Guyana: n/a", p.Tooltip("Guyana"))
}

func TestPage_BucketOf(t *testing.T) {
	p := newTestPage(t, Options{})

	// Four available values: one per bucket.
	assert.Equal(t, quartile.Bucket(0), p.BucketOf("Uruguay"))
	assert.Equal(t, quartile.Bucket(1), p.BucketOf("Chile"))
	assert.Equal(t, quartile.Bucket(2), p.BucketOf("Peru"))
	assert.Equal(t, quartile.Bucket(3), p.BucketOf("Brazil"))
	assert.Equal(t, quartile.Bucket(0), p.BucketOf("Guyana"))
	assert.Equal(t, quartile.Bucket(0), p.BucketOf("Bolivia"))
}

func TestPage_MapModel(t *testing.T) {
	p := newTestPage(t, Options{})
	require.NoError(t, p.ToggleQuartile(3))
	p.OnFeatureClick("Brazil")

	m := p.MapModel()
	assert.Equal(t, 300, m.Width)
	assert.Equal(t, 10, m.Padding)
	assert.Equal(t, render.DefaultPalette, m.Palette)
	assert.Equal(t, render.Only(3), m.Filter)
	require.Len(t, m.Features, 6)
	assert.Equal(t, "Peru", m.Features[2].Name)
	assert.Equal(t, quartile.Bucket(2), m.Features[2].Bucket)
	assert.Equal(t, "Peru: 34.35M", m.Features[2].Tooltip)

	require.NotNil(t, m.Label)
	assert.Equal(t, "216.42M", m.Label.Text)
	assert.InDelta(t, -55, m.Label.Lon, 1e-9)
	assert.InDelta(t, -15, m.Label.Lat, 1e-9)

	assert.InDelta(t, -78, m.Bounds.Min(0), 1e-9)
	assert.InDelta(t, 4, m.Bounds.Max(1), 1e-9)

	require.NotNil(t, m.Zoom)
	assert.InDelta(t, -60, m.Zoom.Min(0), 1e-9)
	assert.InDelta(t, -10, m.Zoom.Max(1), 1e-9)
}

func TestPage_CardModel(t *testing.T) {
	p := newTestPage(t, Options{Selection: []string{"Bolivia", "Peru"}})

	m := p.CardModel()
	assert.Equal(t, []render.CardRow{
		{Country: "Bolivia", Value: 0, HasData: false},
		{Country: "Peru", Value: 34352719, HasData: true},
	}, m.Rows)

	empty := newTestPage(t, Options{}).CardModel()
	assert.Empty(t, empty.Rows)
}

func TestPage_Fingerprint(t *testing.T) {
	a := newTestPage(t, Options{Selection: []string{"Chile"}})
	b := newTestPage(t, Options{})
	b.OnFeatureClick("Chile")
	b.ShowLabel("")
	b.SetZoom("")

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Equal(t, a.CardFingerprint(), b.CardFingerprint())

	require.NoError(t, b.ToggleQuartile(0))
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
	assert.Equal(t, a.CardFingerprint(), b.CardFingerprint())

	a.OnFeatureHover("Chile")
	assert.Contains(t, a.Fingerprint(), "hover=Chile")

	a.SetZoom("Peru")
	assert.Contains(t, a.Fingerprint(), "zoom=Peru")
}
