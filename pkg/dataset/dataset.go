// Copyright (c) 2025 Sudo-Ivan
// Licensed under the MIT License

// Package dataset holds the unified attribute table plus geometry model shared
// by every reader and writer in the converter.
package dataset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/paulmach/orb"
)

// CRS identifies a coordinate reference system. Name is an authority code
// such as "EPSG:4326"; WKT is the full definition when the source carried one.
type CRS struct {
	Name string
	WKT  string
}

// WGS84 is the geographic CRS every Google Earth document is expressed in.
var WGS84 = CRS{Name: "EPSG:4326", WKT: WGS84WKT}

// WGS84WKT is the ESRI flavoured definition written next to shapefiles.
const WGS84WKT = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// IsZero reports whether the CRS is unknown.
func (c CRS) IsZero() bool {
	return c.Name == "" && c.WKT == ""
}

// IsWGS84 reports whether the CRS names WGS 84 geographic coordinates.
func (c CRS) IsWGS84() bool {
	switch strings.ToUpper(c.Name) {
	case "EPSG:4326", "WGS84", "WGS 84", "OGC:CRS84", "URN:OGC:DEF:CRS:OGC:1.3:CRS84", "URN:OGC:DEF:CRS:EPSG::4326":
		return true
	}
	return false
}

func (c CRS) String() string {
	if c.Name != "" {
		return c.Name
	}
	if c.WKT != "" {
		return "custom"
	}
	return "unknown"
}

// Row maps attribute names to values. A field the feature does not carry is
// an absent key rather than a nil value.
type Row map[string]any

// Table is an ordered set of columns plus rows. Column order is the order in
// which names were first seen.
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// Append adds a row, extending the column list with any names not seen before.
// The order of keys inside one row follows the order argument when given.
func (t *Table) Append(row Row, order ...string) {
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		seen[c] = true
	}
	for _, k := range order {
		if _, ok := row[k]; ok && !seen[k] {
			t.Columns = append(t.Columns, k)
			seen[k] = true
		}
	}
	for _, k := range sortedKeys(row) {
		if !seen[k] {
			t.Columns = append(t.Columns, k)
			seen[k] = true
		}
	}
	t.Rows = append(t.Rows, row)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether name is one of the table columns.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// StringValue renders the value of column in row i. Absent keys and nil
// values render as the empty string.
func (t *Table) StringValue(i int, column string) string {
	v, ok := t.Rows[i][column]
	if !ok || v == nil {
		return ""
	}
	return FormatValue(v)
}

// FormatValue renders an attribute value as text.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if x == float64(int64(x)) && x < 1e15 && x > -1e15 {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%v", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// Dataset is a table of attributes paired positionally with geometries and a
// single CRS.
type Dataset struct {
	Name       string
	Table      *Table
	Geometries []orb.Geometry
	CRS        CRS
}

// Len returns the number of features.
func (d *Dataset) Len() int {
	return len(d.Geometries)
}

// Validate checks that attributes and geometries line up.
func (d *Dataset) Validate() error {
	if d.Table.Len() != len(d.Geometries) {
		return &RowCountMismatchError{Rows: d.Table.Len(), Features: len(d.Geometries)}
	}
	return nil
}

func sortedKeys(row Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
