// Package utils holds geometry helpers shared by the readers: ring handling
// for formats that encode polygons as flat ring lists, and WKT conversion.
package utils

import (
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// GeometryToWKT converts a geometry to a WKT string.
// Returns empty string if geometry is nil.
func GeometryToWKT(g orb.Geometry) string {
	if g == nil {
		return ""
	}
	return wkt.MarshalString(g)
}

// GeometryFromWKT parses a WKT string. Blank input yields a nil geometry.
func GeometryFromWKT(s string) (orb.Geometry, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	return wkt.Unmarshal(s)
}

// CloseRing returns r with its first point appended when the ring is open.
func CloseRing(r orb.Ring) orb.Ring {
	if len(r) == 0 || r.Closed() {
		return r
	}
	return append(r, r[0])
}

// PolygonsFromRings groups a flat ring list into polygons. A ring whose
// winding matches outer starts a new polygon; any other ring is a hole of the
// polygon started before it. Esri JSON and shapefiles both use clockwise
// outer rings.
//
// The result is nil, an orb.Polygon, or an orb.MultiPolygon.
func PolygonsFromRings(rings []orb.Ring, outer orb.Orientation) orb.Geometry {
	var polys orb.MultiPolygon
	for _, r := range rings {
		if len(r) == 0 {
			continue
		}
		r = CloseRing(r)

		o := r.Orientation()
		if o == outer || o == 0 || len(polys) == 0 {
			polys = append(polys, orb.Polygon{r})
			continue
		}
		last := len(polys) - 1
		polys[last] = append(polys[last], r)
	}

	switch len(polys) {
	case 0:
		return nil
	case 1:
		return polys[0]
	default:
		return polys
	}
}

// Rings flattens a polygonal geometry into its rings, rewinding them so that
// outer rings have the requested orientation and holes the opposite one.
func Rings(g orb.Geometry, outer orb.Orientation) []orb.Ring {
	var polys []orb.Polygon
	switch v := g.(type) {
	case orb.Polygon:
		polys = []orb.Polygon{v}
	case orb.MultiPolygon:
		polys = v
	default:
		return nil
	}

	var rings []orb.Ring
	for _, p := range polys {
		for i, r := range p {
			r = CloseRing(r.Clone())
			want := outer
			if i > 0 {
				want = -outer
			}
			if o := r.Orientation(); o != 0 && o != want {
				r.Reverse()
			}
			rings = append(rings, r)
		}
	}
	return rings
}
