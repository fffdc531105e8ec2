package arcgis

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/Sudo-Ivan/geodata-converter/pkg/utils"
)

// Orb converts an Esri JSON geometry. Polygon rings follow the Esri winding
// rule: clockwise rings are exteriors, counter-clockwise rings are holes.
// Empty geometries yield nil.
func (g *Geometry) Orb() orb.Geometry {
	if g == nil {
		return nil
	}
	switch {
	case g.X != nil && g.Y != nil:
		x, y := float64(*g.X), float64(*g.Y)
		if math.IsNaN(x) || math.IsNaN(y) {
			return nil
		}
		return orb.Point{x, y}
	case len(g.Points) > 0:
		return orb.MultiPoint(toPoints(g.Points))
	case len(g.Paths) == 1:
		return orb.LineString(toPoints(g.Paths[0]))
	case len(g.Paths) > 1:
		ml := make(orb.MultiLineString, len(g.Paths))
		for i, p := range g.Paths {
			ml[i] = toPoints(p)
		}
		return ml
	case len(g.Rings) > 0:
		rings := make([]orb.Ring, 0, len(g.Rings))
		for _, r := range g.Rings {
			if len(r) == 0 {
				continue
			}
			rings = append(rings, toPoints(r))
		}
		return utils.PolygonsFromRings(rings, orb.CW)
	}
	return nil
}

func toPoints(coords [][]float64) []orb.Point {
	pts := make([]orb.Point, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		pts = append(pts, orb.Point{c[0], c[1]})
	}
	return pts
}
