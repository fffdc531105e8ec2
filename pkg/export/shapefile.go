package export

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"

	"github.com/Sudo-Ivan/geodata-converter/pkg/dataset"
	"github.com/Sudo-Ivan/geodata-converter/pkg/utils"
)

// Shapefile writes the .shp/.shx/.dbf triplet plus .prj and .cpg sidecars.
// All geometries must share one shapefile type; features without geometry
// cannot be represented.
type Shapefile struct{}

// Write implements Writer. path is the .shp file to create.
func (Shapefile) Write(ds *dataset.Dataset, path string) error {
	shapeType, err := shapeTypeOf(ds.Geometries)
	if err != nil {
		return err
	}

	w, err := shp.Create(path, shapeType)
	if err != nil {
		return fmt.Errorf("failed to create shapefile %s: %w", path, err)
	}
	defer w.Close()

	fields, kinds := dbfFields(ds.Table)
	if err := w.SetFields(fields); err != nil {
		return fmt.Errorf("failed to write DBF fields: %w", err)
	}

	cols := ds.Table.Columns
	for i, g := range ds.Geometries {
		w.Write(toShape(g, shapeType))

		if len(cols) == 0 {
			if err := w.WriteAttribute(i, 0, i); err != nil {
				return err
			}
			continue
		}
		for j, col := range cols {
			v, ok := ds.Table.Rows[i][col]
			if !ok || v == nil {
				continue
			}
			if err := w.WriteAttribute(i, j, dbfValue(v, kinds[j], fields[j])); err != nil {
				return fmt.Errorf("failed to write attribute %s of feature %d: %w", col, i, err)
			}
		}
	}

	base := strings.TrimSuffix(path, ".shp")
	if err := writeProjection(base+".prj", ds.CRS); err != nil {
		return err
	}
	return os.WriteFile(base+".cpg", []byte("UTF-8"), 0o644)
}

func writeProjection(path string, crs dataset.CRS) error {
	wkt := crs.WKT
	if wkt == "" && crs.IsWGS84() {
		wkt = dataset.WGS84WKT
	}
	if wkt == "" {
		return nil
	}
	return os.WriteFile(path, []byte(wkt), 0o644)
}

func shapeTypeOf(geoms []orb.Geometry) (shp.ShapeType, error) {
	shapeType := shp.NULL
	for _, g := range geoms {
		var t shp.ShapeType
		switch g.(type) {
		case orb.Point:
			t = shp.POINT
		case orb.MultiPoint:
			t = shp.MULTIPOINT
		case orb.LineString, orb.MultiLineString:
			t = shp.POLYLINE
		case orb.Polygon, orb.MultiPolygon, orb.Bound:
			t = shp.POLYGON
		default:
			return 0, &UnsupportedGeometryError{Format: FormatShapefile, Type: geometryType(g)}
		}

		switch {
		case shapeType == shp.NULL || shapeType == t:
			shapeType = t
		case (shapeType == shp.POINT && t == shp.MULTIPOINT) || (shapeType == shp.MULTIPOINT && t == shp.POINT):
			shapeType = shp.MULTIPOINT
		default:
			return 0, &UnsupportedGeometryError{Format: FormatShapefile, Type: "mixed " + geometryType(g)}
		}
	}
	if shapeType == shp.NULL {
		shapeType = shp.POINT
	}
	return shapeType, nil
}

func toShape(g orb.Geometry, shapeType shp.ShapeType) shp.Shape {
	switch v := g.(type) {
	case orb.Point:
		if shapeType == shp.MULTIPOINT {
			return multiPoint(orb.MultiPoint{v})
		}
		return &shp.Point{X: v.X(), Y: v.Y()}
	case orb.MultiPoint:
		return multiPoint(v)
	case orb.LineString:
		return shp.NewPolyLine([][]shp.Point{shpPoints(v)})
	case orb.MultiLineString:
		parts := make([][]shp.Point, len(v))
		for i, l := range v {
			parts[i] = shpPoints(l)
		}
		return shp.NewPolyLine(parts)
	case orb.Bound:
		return toShape(v.ToPolygon(), shapeType)
	case orb.Polygon, orb.MultiPolygon:
		rings := utils.Rings(v, orb.CW)
		parts := make([][]shp.Point, len(rings))
		for i, r := range rings {
			parts[i] = shpPoints(r)
		}
		poly := shp.Polygon(*shp.NewPolyLine(parts))
		return &poly
	}
	return &shp.Null{}
}

func shpPoints(pts []orb.Point) []shp.Point {
	out := make([]shp.Point, len(pts))
	for i, p := range pts {
		out[i] = shp.Point{X: p.X(), Y: p.Y()}
	}
	return out
}

func multiPoint(mp orb.MultiPoint) *shp.MultiPoint {
	b := mp.Bound()
	return &shp.MultiPoint{
		Box:       shp.Box{MinX: b.Min.X(), MinY: b.Min.Y(), MaxX: b.Max.X(), MaxY: b.Max.Y()},
		NumPoints: int32(len(mp)),
		Points:    shpPoints(mp),
	}
}

// dbfFields derives DBF field descriptors from the table columns. Names are
// cut to the DBF limit and made unique.
func dbfFields(t *dataset.Table) ([]shp.Field, []valueKind) {
	if len(t.Columns) == 0 {
		return []shp.Field{shp.NumberField("FID", 10)}, []valueKind{kindInt}
	}

	fields := make([]shp.Field, len(t.Columns))
	kinds := make([]valueKind, len(t.Columns))
	used := map[string]bool{}
	for i, col := range t.Columns {
		name := dbfName(col, used)
		kinds[i] = columnKind(t, col)
		switch kinds[i] {
		case kindInt:
			fields[i] = shp.NumberField(name, 18)
		case kindFloat:
			fields[i] = shp.FloatField(name, 24, 8)
		case kindBool:
			fields[i] = shp.StringField(name, 5)
		default:
			fields[i] = shp.StringField(name, stringWidth(t, col))
		}
	}
	return fields, kinds
}

func dbfName(col string, used map[string]bool) string {
	name := strings.ReplaceAll(strings.TrimSpace(col), " ", "_")
	if name == "" {
		name = "FIELD"
	}
	name = truncateUTF8(name, DBFNameLimit)
	base := name
	for n := 1; used[strings.ToUpper(name)]; n++ {
		suffix := "_" + strconv.Itoa(n)
		name = truncateUTF8(base, DBFNameLimit-len(suffix)) + suffix
	}
	used[strings.ToUpper(name)] = true
	return name
}

func stringWidth(t *dataset.Table, col string) uint8 {
	width := 1
	for i := range t.Rows {
		if n := len(t.StringValue(i, col)); n > width {
			width = n
		}
	}
	if width > DBFStringLimit {
		width = DBFStringLimit
	}
	return uint8(width)
}

func dbfValue(v any, kind valueKind, field shp.Field) any {
	switch kind {
	case kindInt:
		return toInt(v)
	case kindFloat:
		return toFloat(v)
	}
	return truncateUTF8(dataset.FormatValue(v), int(field.Size))
}
