package gearth

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// descriptionKML builds a document whose Placemarks carry their attributes in
// Google Earth style nested description tables.
func descriptionKML(n int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
<Document>
<name>test</name>
`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<Placemark>
<name>Site %d</name>
<description><![CDATA[<html><body><table border="1">
<tr><th colspan="2">Site %d</th></tr>
<tr><td><table>
<tr><td>ID</td><td>%d</td></tr>
<tr><td>Owner</td><td>Owner %d</td></tr>
<tr><td>Status</td><td>active</td></tr>
</table></td></tr>
</table></body></html>]]></description>
<Point><coordinates>%d.5,%d.25,0</coordinates></Point>
</Placemark>
`, i, i, i, i, i, i)
	}
	b.WriteString("</Document>\n</kml>\n")
	return b.String()
}

// structuredKML builds a document whose Placemarks carry SchemaData records.
func structuredKML(n int) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
<Document id="root_doc">
<Schema name="parcels" id="parcels">
	<SimpleField name="ID" type="int"></SimpleField>
	<SimpleField name="Owner" type="string"></SimpleField>
</Schema>
<Folder><name>parcels</name>
`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, `<Placemark>
	<name>Parcel %d</name>
	<ExtendedData><SchemaData schemaUrl="#parcels">
		<SimpleData name="ID">%d</SimpleData>
		<SimpleData name="Owner">Owner %d</SimpleData>
	</SchemaData></ExtendedData>
	<Polygon><outerBoundaryIs><LinearRing><coordinates>0,0 %d,0 %d,1 0,1 0,0</coordinates></LinearRing></outerBoundaryIs></Polygon>
</Placemark>
`, i, i, i, i+1, i+1)
	}
	b.WriteString("</Folder>\n</Document>\n</kml>\n")
	return b.String()
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", p, err)
	}
	return p
}

// writeKMZ packs the given entries into a .kmz file.
func writeKMZ(t *testing.T, entries map[string]string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "test.kmz")
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return p
}
