package boundary

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/twpayne/go-geom"
)

// earthRadiusKm is the mean Earth radius.
const earthRadiusKm = 6371.0088

// AreaKm2 returns the spherical area of a MultiPolygon whose coordinates are
// lon/lat degrees. Holes are subtracted from their polygon.
func AreaKm2(mp *geom.MultiPolygon) float64 {
	if mp == nil {
		return 0
	}
	var total float64
	for _, poly := range mp.Coords() {
		var a float64
		for i, ring := range poly {
			ra := ringArea(ring)
			if i == 0 {
				a += ra
			} else {
				a -= ra
			}
		}
		total += math.Max(a, 0)
	}
	return total
}

// ringArea is the area enclosed by ring on the unit sphere, scaled to km².
// Orientation is ignored; the smaller of the two regions is used.
func ringArea(ring []geom.Coord) float64 {
	pts := make([]s2.Point, 0, len(ring))
	for i, c := range ring {
		if i == len(ring)-1 && len(ring) > 1 && c[0] == ring[0][0] && c[1] == ring[0][1] {
			break
		}
		p := s2.PointFromLatLng(s2.LatLngFromDegrees(c[1], c[0]))
		if n := len(pts); n > 0 && pts[n-1] == p {
			continue
		}
		pts = append(pts, p)
	}
	if len(pts) < 3 {
		return 0
	}

	loop := s2.LoopFromPoints(pts)
	loop.Normalize()
	return loop.Area() * earthRadiusKm * earthRadiusKm
}
