package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"

	"github.com/Sudo-Ivan/geodata-converter/pkg/dataset"
	"github.com/Sudo-Ivan/geodata-converter/pkg/utils"
)

// Shapefile reads a .shp with its .dbf attributes and .prj projection.
type Shapefile struct{}

// Read implements Reader.
func (Shapefile) Read(path string) (*dataset.Dataset, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile %s: %w", path, err)
	}
	defer func() { _ = r.Close() }()

	fields := r.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.String()
	}

	ds := &dataset.Dataset{Table: dataset.NewTable()}
	for r.Next() {
		n, s := r.Shape()
		row := dataset.Row{}
		for j, f := range fields {
			if v, ok := dbfValue(r.ReadAttribute(n, j), f); ok {
				row[names[j]] = v
			}
		}
		ds.Table.Append(row, names...)
		ds.Geometries = append(ds.Geometries, fromShape(s))
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("failed to read shapefile %s: %w", path, err)
	}

	ds.CRS = readProjection(strings.TrimSuffix(path, filepath.Ext(path)) + ".prj")
	return ds, nil
}

func dbfValue(raw string, f shp.Field) (any, bool) {
	raw = strings.Trim(raw, " \x00")
	if raw == "" {
		return nil, false
	}
	switch f.Fieldtype {
	case 'N', 'F':
		if f.Precision == 0 {
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
				return n, true
			}
		}
		if x, err := strconv.ParseFloat(raw, 64); err == nil {
			return x, true
		}
	case 'L':
		switch strings.ToUpper(raw) {
		case "T", "Y":
			return true, true
		case "F", "N":
			return false, true
		}
	}
	return raw, true
}

func fromShape(s shp.Shape) orb.Geometry {
	switch v := s.(type) {
	case *shp.Point:
		return orb.Point{v.X, v.Y}
	case *shp.PointZ:
		return orb.Point{v.X, v.Y}
	case *shp.PointM:
		return orb.Point{v.X, v.Y}
	case *shp.MultiPoint:
		return orb.MultiPoint(orbPoints(v.Points))
	case *shp.PolyLine:
		return lines(v.Parts, v.Points)
	case *shp.PolyLineZ:
		return lines(v.Parts, v.Points)
	case *shp.Polygon:
		return polygons(v.Parts, v.Points)
	case *shp.PolygonZ:
		return polygons(v.Parts, v.Points)
	}
	return nil
}

func orbPoints(pts []shp.Point) []orb.Point {
	out := make([]orb.Point, len(pts))
	for i, p := range pts {
		out[i] = orb.Point{p.X, p.Y}
	}
	return out
}

func splitParts(parts []int32, pts []shp.Point) [][]orb.Point {
	out := make([][]orb.Point, 0, len(parts))
	for i, start := range parts {
		end := int32(len(pts))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start > end || int(end) > len(pts) {
			continue
		}
		out = append(out, orbPoints(pts[start:end]))
	}
	return out
}

func lines(parts []int32, pts []shp.Point) orb.Geometry {
	split := splitParts(parts, pts)
	if len(split) == 1 {
		return orb.LineString(split[0])
	}
	ml := make(orb.MultiLineString, len(split))
	for i, p := range split {
		ml[i] = p
	}
	return ml
}

func polygons(parts []int32, pts []shp.Point) orb.Geometry {
	split := splitParts(parts, pts)
	rings := make([]orb.Ring, len(split))
	for i, p := range split {
		rings[i] = p
	}
	return utils.PolygonsFromRings(rings, orb.CW)
}

var (
	prjNamePattern = regexp.MustCompile(`^\s*(?:PROJCS|GEOGCS|PROJCRS|GEOGCRS)\s*\[\s*"([^"]+)"`)
	wgs84Names     = map[string]bool{"GCS_WGS_1984": true, "WGS 84": true, "WGS84": true, "WGS_1984": true}
)

func readProjection(path string) dataset.CRS {
	data, err := os.ReadFile(path)
	if err != nil {
		return dataset.CRS{}
	}
	wkt := strings.TrimSpace(string(data))
	m := prjNamePattern.FindStringSubmatch(wkt)
	if m == nil {
		return dataset.CRS{WKT: wkt}
	}
	if wgs84Names[m[1]] {
		return dataset.CRS{Name: dataset.WGS84.Name, WKT: wkt}
	}
	return dataset.CRS{Name: m[1], WKT: wkt}
}
