package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/paulmach/orb"
	"github.com/tdewolff/minify/v2"
	minifyxml "github.com/tdewolff/minify/v2/xml"
	kml "github.com/twpayne/go-kml"

	"github.com/Sudo-Ivan/geodata-converter/pkg/dataset"
)

// KML writes a Google Earth document. Every column is stored as SimpleData
// under one Schema so the attributes survive a round trip.
type KML struct {
	Minify bool
}

// Write implements Writer.
func (k KML) Write(ds *dataset.Dataset, path string) (err error) {
	if err := requireWGS84(FormatKML, ds); err != nil {
		return err
	}
	root, err := kmlRoot(ds)
	if err != nil {
		return err
	}

	f, closeFile, err := createFile(path)
	if err != nil {
		return err
	}
	defer closeFile(&err)

	if !k.Minify {
		return root.WriteIndent(f, "", "  ")
	}
	var buf bytes.Buffer
	if err := root.Write(&buf); err != nil {
		return err
	}
	m := minify.New()
	m.AddFunc("text/xml", minifyxml.Minify)
	return m.Minify("text/xml", f, &buf)
}

// KMZ writes a KML document as doc.kml inside a zip archive.
type KMZ struct{}

// Write implements Writer.
func (KMZ) Write(ds *dataset.Dataset, path string) (err error) {
	if err := requireWGS84(FormatKMZ, ds); err != nil {
		return err
	}
	root, err := kmlRoot(ds)
	if err != nil {
		return err
	}

	f, closeFile, err := createFile(path)
	if err != nil {
		return err
	}
	defer closeFile(&err)

	zw := zip.NewWriter(f)
	w, err := zw.Create(KMZDocumentEntry)
	if err != nil {
		return err
	}
	if err := root.WriteIndent(w, "", "  "); err != nil {
		return err
	}
	return zw.Close()
}

var schemaIDPattern = regexp.MustCompile(`[^A-Za-z0-9_]+`)

func kmlRoot(ds *dataset.Dataset) (*kml.CompoundElement, error) {
	name := ds.Name
	if name == "" {
		name = "layer"
	}
	schemaID := schemaIDPattern.ReplaceAllString(name, "_")

	fields := make([]kml.Element, 0, len(ds.Table.Columns))
	for _, col := range ds.Table.Columns {
		fields = append(fields, kml.SimpleField(col, kmlFieldType(ds.Table, col)))
	}

	folder := kml.Folder(kml.Name(name))
	for i, g := range ds.Geometries {
		pm := kml.Placemark(kml.Name(getFeatureName(ds.Table.Rows[i])))
		if desc := ds.Table.StringValue(i, KeyDescription); desc != "" {
			pm.Add(kml.Description(desc))
		}

		var data []kml.Element
		for _, col := range ds.Table.Columns {
			if v, ok := ds.Table.Rows[i][col]; ok && v != nil {
				data = append(data, kml.SimpleData(col, dataset.FormatValue(v)))
			}
		}
		pm.Add(kml.ExtendedData(kml.SchemaData("#"+schemaID, data...)))

		if g != nil {
			geom, err := kmlGeometry(g)
			if err != nil {
				return nil, err
			}
			pm.Add(geom)
		}
		folder.Add(pm)
	}

	doc := kml.Document(
		kml.Name(name),
		kml.Schema(schemaID, schemaID, fields...),
		folder,
	)
	return kml.KML(doc), nil
}

func kmlFieldType(t *dataset.Table, col string) string {
	switch columnKind(t, col) {
	case kindInt:
		return "int"
	case kindFloat:
		return "double"
	case kindBool:
		return "bool"
	}
	return "string"
}

func kmlCoordinates(pts []orb.Point) kml.Element {
	coords := make([]kml.Coordinate, len(pts))
	for i, p := range pts {
		coords[i] = kml.Coordinate{Lon: p.Lon(), Lat: p.Lat()}
	}
	return kml.Coordinates(coords...)
}

func kmlGeometry(g orb.Geometry) (kml.Element, error) {
	switch v := g.(type) {
	case orb.Point:
		return kml.Point(kmlCoordinates([]orb.Point{v})), nil
	case orb.LineString:
		return kml.LineString(kmlCoordinates(v)), nil
	case orb.Ring:
		return kml.LinearRing(kmlCoordinates(v)), nil
	case orb.Polygon:
		if len(v) == 0 {
			return nil, &UnsupportedGeometryError{Format: FormatKML, Type: "empty Polygon"}
		}
		parts := []kml.Element{kml.OuterBoundaryIs(kml.LinearRing(kmlCoordinates(v[0])))}
		for _, hole := range v[1:] {
			parts = append(parts, kml.InnerBoundaryIs(kml.LinearRing(kmlCoordinates(hole))))
		}
		return kml.Polygon(parts...), nil
	case orb.Bound:
		return kmlGeometry(v.ToPolygon())
	case orb.MultiPoint:
		return multiGeometry(len(v), func(i int) orb.Geometry { return v[i] })
	case orb.MultiLineString:
		return multiGeometry(len(v), func(i int) orb.Geometry { return v[i] })
	case orb.MultiPolygon:
		return multiGeometry(len(v), func(i int) orb.Geometry { return v[i] })
	case orb.Collection:
		return multiGeometry(len(v), func(i int) orb.Geometry { return v[i] })
	}
	return nil, &UnsupportedGeometryError{Format: FormatKML, Type: fmt.Sprintf("%T", g)}
}

func multiGeometry(n int, part func(int) orb.Geometry) (kml.Element, error) {
	children := make([]kml.Element, 0, n)
	for i := 0; i < n; i++ {
		el, err := kmlGeometry(part(i))
		if err != nil {
			return nil, err
		}
		children = append(children, el)
	}
	return kml.MultiGeometry(children...), nil
}

// getFeatureName extracts a suitable name from a row's attributes.
func getFeatureName(row dataset.Row) string {
	for _, key := range []string{"name", "Name", "NAME", "title", "Title", "TITLE", "OBJECTID", "FID"} {
		if val, ok := row[key]; ok && val != nil {
			return dataset.FormatValue(val)
		}
	}
	return KeyFeature
}

// formatProperties formats the attributes of row i as "key: value" pairs.
// The result is plain text; callers escape it for their markup.
func formatProperties(t *dataset.Table, i int, separator ...string) string {
	sep := "; "
	if len(separator) > 0 {
		sep = separator[0]
	}
	var parts []string
	for _, k := range t.Columns {
		v, ok := t.Rows[i][k]
		if !ok || v == nil {
			continue
		}
		parts = append(parts, k+": "+dataset.FormatValue(v))
	}
	return strings.Join(parts, sep)
}

// escapeXML escapes XML special characters in a string.
func escapeXML(s string) string {
	return strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&apos;",
		"/", "&#x2F;",
	).Replace(s)
}
