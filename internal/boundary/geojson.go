package boundary

import (
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/popmap/internal/fetcher"
)

// ParseGeoJSON reads a FeatureCollection and groups Polygon and MultiPolygon
// features by the nameProp property. Features without a name or with other
// geometry types are skipped.
func ParseGeoJSON(r io.Reader, nameProp string) (*Collection, error) {
	if nameProp == "" {
		nameProp = DefaultNameProperty
	}

	fc, err := fetcher.DecodeJSON[geojson.FeatureCollection](r)
	if err != nil {
		return nil, eris.Wrap(err, "boundary: decode geojson")
	}

	b := newBuilder()
	var skipped int
	for i, f := range fc.Features {
		name := featureName(f, nameProp)
		if name == "" {
			skipped++
			zap.L().Debug("boundary: feature without name",
				zap.Int("feature", i),
				zap.String("property", nameProp),
			)
			continue
		}

		polys, err := polygonsOf(f.Geometry)
		if err != nil {
			skipped++
			zap.L().Debug("boundary: skipping feature",
				zap.String("name", name),
				zap.Error(err),
			)
			continue
		}
		b.add(name, polys...)
	}

	if skipped > 0 {
		zap.L().Debug("boundary: skipped geojson features", zap.Int("skipped", skipped))
	}

	return b.build()
}

func featureName(f *geojson.Feature, prop string) string {
	if f == nil || f.Properties == nil {
		return ""
	}
	switch v := f.Properties[prop].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// polygonsOf returns the polygon coordinates of an areal geometry.
func polygonsOf(g geom.T) ([][][]geom.Coord, error) {
	switch t := g.(type) {
	case *geom.Polygon:
		if t.NumLinearRings() == 0 {
			return nil, nil
		}
		return [][][]geom.Coord{t.Coords()}, nil
	case *geom.MultiPolygon:
		return t.Coords(), nil
	case nil:
		return nil, eris.Wrap(ErrUnsupportedGeometry, "boundary: missing geometry")
	default:
		return nil, eris.Wrapf(ErrUnsupportedGeometry, "boundary: geometry %T", g)
	}
}
