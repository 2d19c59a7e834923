// Package boundary loads country outlines from GeoJSON or shapefiles.
package boundary

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/popmap/internal/population"
)

// DefaultNameProperty is the feature property holding the country name in
// Natural Earth derived data.
const DefaultNameProperty = "sovereignt"

// ErrUnsupportedGeometry marks features whose geometry is not areal.
var ErrUnsupportedGeometry = eris.New("boundary: unsupported geometry")

// Country is the outline of one country. Features sharing a name are merged
// into a single MultiPolygon.
type Country struct {
	Name     string
	Geometry *geom.MultiPolygon
	// AreaKm2 is the spherical surface area of Geometry.
	AreaKm2 float64
}

// Bounds returns the lon/lat bounding box of the country.
func (c Country) Bounds() *geom.Bounds {
	if c.Geometry == nil {
		return geom.NewBounds(geom.XY)
	}
	return c.Geometry.Bounds()
}

// Center returns the center of the bounding box as (lon, lat).
func (c Country) Center() (float64, float64) {
	b := c.Bounds()
	if b.IsEmpty() {
		return 0, 0
	}
	return (b.Min(0) + b.Max(0)) / 2, (b.Min(1) + b.Max(1)) / 2
}

// Collection is an ordered, read-only set of countries.
type Collection struct {
	countries []Country
	index     map[string]int
	folded    map[string]int
}

// builder accumulates polygons per name, preserving first-seen order.
type builder struct {
	names []string
	polys map[string][][][]geom.Coord
}

func newBuilder() *builder {
	return &builder{polys: make(map[string][][][]geom.Coord)}
}

func (b *builder) add(name string, polygons ...[][]geom.Coord) {
	if _, ok := b.polys[name]; !ok {
		b.names = append(b.names, name)
	}
	b.polys[name] = append(b.polys[name], polygons...)
}

func (b *builder) build() (*Collection, error) {
	countries := make([]Country, 0, len(b.names))
	for _, name := range b.names {
		mp, err := geom.NewMultiPolygon(geom.XY).SetCoords(b.polys[name])
		if err != nil {
			return nil, eris.Wrapf(err, "boundary: build geometry for %s", name)
		}
		countries = append(countries, Country{
			Name:     name,
			Geometry: mp,
			AreaKm2:  AreaKm2(mp),
		})
	}
	return NewCollection(countries), nil
}

// NewCollection indexes countries by name. Later duplicates are dropped.
func NewCollection(countries []Country) *Collection {
	c := &Collection{
		countries: make([]Country, 0, len(countries)),
		index:     make(map[string]int, len(countries)),
		folded:    make(map[string]int, len(countries)),
	}
	for _, country := range countries {
		if _, ok := c.index[country.Name]; ok {
			continue
		}
		c.index[country.Name] = len(c.countries)
		key := population.FoldKey(country.Name)
		if _, ok := c.folded[key]; !ok {
			c.folded[key] = len(c.countries)
		}
		c.countries = append(c.countries, country)
	}
	return c
}

// Len returns the number of countries.
func (c *Collection) Len() int {
	return len(c.countries)
}

// Countries returns the countries in source order.
func (c *Collection) Countries() []Country {
	out := make([]Country, len(c.countries))
	copy(out, c.countries)
	return out
}

// Lookup returns the country with the exact name.
func (c *Collection) Lookup(name string) (Country, bool) {
	i, ok := c.index[name]
	if !ok {
		return Country{}, false
	}
	return c.countries[i], true
}

// Find returns the country with the exact name, falling back to a match
// that ignores case, accents and spacing.
func (c *Collection) Find(name string) (Country, bool) {
	if country, ok := c.Lookup(name); ok {
		return country, true
	}
	i, ok := c.folded[population.FoldKey(name)]
	if !ok {
		return Country{}, false
	}
	return c.countries[i], true
}

// Names returns country names in source order.
func (c *Collection) Names() []string {
	out := make([]string, len(c.countries))
	for i, country := range c.countries {
		out[i] = country.Name
	}
	return out
}

// Bounds returns the lon/lat bounding box of every country.
func (c *Collection) Bounds() *geom.Bounds {
	b := geom.NewBounds(geom.XY)
	for _, country := range c.countries {
		if country.Geometry != nil {
			b.Extend(country.Geometry)
		}
	}
	return b
}
