package gearth

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/Sudo-Ivan/geodata-converter/pkg/dataset"
)

// Placemark is one KML feature read as a plain vector record.
type Placemark struct {
	Name        string
	Description string
	Geometry    orb.Geometry
}

// Layer is the plain vector reading of a KML document: every Placemark in
// document order. KML coordinates are always WGS 84.
type Layer struct {
	Name       string
	Placemarks []Placemark
}

// Geometries implements dataset.Reference.
func (l *Layer) Geometries() []orb.Geometry {
	out := make([]orb.Geometry, len(l.Placemarks))
	for i, p := range l.Placemarks {
		out[i] = p.Geometry
	}
	return out
}

// CRS implements dataset.Reference.
func (l *Layer) CRS() dataset.CRS {
	return dataset.WGS84
}

// Len returns the number of features.
func (l *Layer) Len() int {
	return len(l.Placemarks)
}

// LoadLayer parses doc with p and reads it as a plain layer.
func LoadLayer(doc *Document, p Parser) (*Layer, error) {
	root, err := p.Parse(doc.Text)
	if err != nil {
		return nil, err
	}
	return ReadLayer(root), nil
}

// ReadLayer collects the Placemarks below root.
func ReadLayer(root Node) *Layer {
	l := &Layer{}
	for _, d := range root.FindAll("document") {
		if name, ok := directText(d, "name"); ok {
			l.Name = name
			break
		}
	}

	for _, pm := range root.FindAll("placemark") {
		p := Placemark{}
		p.Name, _ = directText(pm, "name")
		p.Description, _ = directText(pm, "description")
		for _, c := range pm.Children() {
			if g, ok := readGeometry(c); ok {
				p.Geometry = g
				break
			}
		}
		l.Placemarks = append(l.Placemarks, p)
	}
	return l
}

func readGeometry(n Node) (orb.Geometry, bool) {
	switch n.Tag() {
	case "point":
		pts := coordinatesOf(n)
		if len(pts) == 0 {
			return nil, true
		}
		return pts[0], true

	case "linestring", "linearring":
		return orb.LineString(coordinatesOf(n)), true

	case "polygon":
		return readPolygon(n), true

	case "multigeometry":
		return readMulti(n), true
	}
	return nil, false
}

func readPolygon(n Node) orb.Geometry {
	var poly orb.Polygon
	for _, c := range n.Children() {
		if c.Tag() != "outerboundaryis" {
			continue
		}
		for _, ring := range c.FindAll("linearring") {
			poly = append(poly, orb.Ring(coordinatesOf(ring)))
			break
		}
	}
	if len(poly) == 0 {
		return nil
	}
	for _, c := range n.Children() {
		if c.Tag() != "innerboundaryis" {
			continue
		}
		for _, ring := range c.FindAll("linearring") {
			poly = append(poly, orb.Ring(coordinatesOf(ring)))
		}
	}
	return poly
}

func readMulti(n Node) orb.Geometry {
	var parts []orb.Geometry
	for _, c := range n.Children() {
		if g, ok := readGeometry(c); ok && g != nil {
			parts = append(parts, g)
		}
	}
	if len(parts) == 0 {
		return orb.Collection{}
	}

	switch parts[0].(type) {
	case orb.Point:
		mp := orb.MultiPoint{}
		for _, g := range parts {
			p, ok := g.(orb.Point)
			if !ok {
				return orb.Collection(parts)
			}
			mp = append(mp, p)
		}
		return mp
	case orb.LineString:
		ml := orb.MultiLineString{}
		for _, g := range parts {
			l, ok := g.(orb.LineString)
			if !ok {
				return orb.Collection(parts)
			}
			ml = append(ml, l)
		}
		return ml
	case orb.Polygon:
		mp := orb.MultiPolygon{}
		for _, g := range parts {
			p, ok := g.(orb.Polygon)
			if !ok {
				return orb.Collection(parts)
			}
			mp = append(mp, p)
		}
		return mp
	}
	return orb.Collection(parts)
}

// coordinatesOf parses the first coordinates element below n. Tuples are
// "lon,lat[,alt]" separated by whitespace; altitude is dropped and malformed
// tuples are skipped.
func coordinatesOf(n Node) []orb.Point {
	var text string
	if n.Tag() == "coordinates" {
		text = n.Text()
	} else if found := n.FindAll("coordinates"); len(found) > 0 {
		text = found[0].Text()
	}

	var pts []orb.Point
	for _, tuple := range strings.Fields(text) {
		parts := strings.Split(tuple, ",")
		if len(parts) < 2 {
			continue
		}
		lon, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			continue
		}
		lat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			continue
		}
		pts = append(pts, orb.Point{lon, lat})
	}
	return pts
}
