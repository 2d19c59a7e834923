package boundary

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// ParseShapefile reads polygon records from a shapefile and its .dbf,
// naming each by the nameField attribute (case-insensitive).
func ParseShapefile(shpPath string, nameField string) (*Collection, error) {
	if nameField == "" {
		nameField = DefaultNameProperty
	}

	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	nameIdx := -1
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(name, nameField) {
			nameIdx = i
			break
		}
	}
	if nameIdx < 0 {
		return nil, eris.Errorf("boundary: shapefile %s has no %q field", shpPath, nameField)
	}

	b := newBuilder()
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		name := strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		if name == "" {
			skipped++
			continue
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		polys := shapePolygons(poly)
		if len(polys) == 0 {
			skipped++
			continue
		}
		b.add(name, polys...)
	}

	if skipped > 0 {
		zap.L().Debug("boundary: skipped shapefile records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}

	return b.build()
}

// shapePolygons splits shapefile parts into polygons. Shapefile outer rings
// wind clockwise and holes counter-clockwise; each hole joins the polygon of
// the outer ring before it.
func shapePolygons(p *shp.Polygon) [][][]geom.Coord {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var polys [][][]geom.Coord
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if start < 0 || end > int32(len(p.Points)) || end-start < 4 {
			zap.L().Debug("boundary: skipping malformed ring", zap.Int32("part", i))
			continue
		}

		ring := make([]geom.Coord, 0, end-start)
		for j := start; j < end; j++ {
			ring = append(ring, geom.Coord{p.Points[j].X, p.Points[j].Y})
		}

		if signedArea(ring) > 0 && len(polys) > 0 {
			// Counter-clockwise: a hole in the current polygon.
			last := len(polys) - 1
			polys[last] = append(polys[last], ring)
			continue
		}
		polys = append(polys, [][]geom.Coord{ring})
	}
	return polys
}

// signedArea is the planar shoelace area; positive for counter-clockwise rings.
func signedArea(ring []geom.Coord) float64 {
	var sum float64
	for i := range ring {
		j := (i + 1) % len(ring)
		sum += ring[i][0]*ring[j][1] - ring[j][0]*ring[i][1]
	}
	return sum / 2
}
