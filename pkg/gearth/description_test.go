package gearth

import (
	"errors"
	"testing"
)

func layerWith(descs ...string) *Layer {
	l := &Layer{}
	for _, d := range descs {
		l.Placemarks = append(l.Placemarks, Placemark{Description: d})
	}
	return l
}

func TestDescriptionTablesSelection(t *testing.T) {
	tests := []struct {
		name      string
		desc      string
		wantOwner string
	}{
		{
			name:      "single table uses index zero",
			desc:      `<table><tr><td>Owner</td><td>single</td></tr></table>`,
			wantOwner: "single",
		},
		{
			name:      "two tables use the last",
			desc:      `<table><tr><td>Owner</td><td>first</td></tr></table><table><tr><td>Owner</td><td>second</td></tr></table>`,
			wantOwner: "second",
		},
		{
			name: "nested layout table uses the inner one",
			desc: `<table><tr><th colspan="2">Header</th></tr><tr><td>
				<table><tr><td>Owner</td><td>inner</td></tr></table>
			</td></tr></table>`,
			wantOwner: "inner",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := DescriptionTables(layerWith(tt.desc), HTMLParser{})
			if err != nil {
				t.Fatalf("DescriptionTables() error = %v", err)
			}
			if tbl.Len() != 1 {
				t.Fatalf("Len() = %d; want 1", tbl.Len())
			}
			if got := tbl.Rows[0]["Owner"]; got != tt.wantOwner {
				t.Errorf("Owner = %v; want %q", got, tt.wantOwner)
			}
		})
	}
}

func TestDescriptionTablesTranspose(t *testing.T) {
	desc := `<table>
		<thead><tr><th>Field</th><th>Value</th></tr></thead>
		<tr><td>ID</td><td>7</td><td>8</td></tr>
		<tr><td>Name</td><td>  Big   Oak </td><td>Elm</td></tr>
		<tr><td></td><td>ignored</td></tr>
		<tr><td>Note</td><td>short</td></tr>
		<tr><td>Wide</td><td colspan="2">both</td></tr>
	</table>`

	tbl, err := DescriptionTables(layerWith(desc), HTMLParser{})
	if err != nil {
		t.Fatalf("DescriptionTables() error = %v", err)
	}

	wantCols := []string{"ID", "Name", "Note", "Wide"}
	if len(tbl.Columns) != len(wantCols) {
		t.Fatalf("Columns = %v; want %v", tbl.Columns, wantCols)
	}
	for i, c := range wantCols {
		if tbl.Columns[i] != c {
			t.Errorf("Columns[%d] = %q; want %q", i, tbl.Columns[i], c)
		}
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d; want 2 records from two value columns", tbl.Len())
	}
	if tbl.Rows[0]["Name"] != "Big Oak" || tbl.Rows[1]["Name"] != "Elm" {
		t.Errorf("Name values = %v, %v", tbl.Rows[0]["Name"], tbl.Rows[1]["Name"])
	}
	if _, ok := tbl.Rows[1]["Note"]; ok {
		t.Error("ragged cell should be an absent key")
	}
	if tbl.Rows[1]["Wide"] != "both" {
		t.Errorf("colspan not expanded: Wide = %v", tbl.Rows[1]["Wide"])
	}
}

func TestDescriptionTablesConcatenates(t *testing.T) {
	l := layerWith(
		`<table><tr><td>A</td><td>1</td></tr></table>`,
		`<table><tr><td>B</td><td>2</td></tr></table>`,
	)
	tbl, err := DescriptionTables(l, HTMLParser{})
	if err != nil {
		t.Fatalf("DescriptionTables() error = %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d; want 2", tbl.Len())
	}
	if _, ok := tbl.Rows[0]["B"]; ok {
		t.Error("first record should not carry the second feature's field")
	}
	if len(tbl.Columns) != 2 {
		t.Errorf("Columns = %v; want union [A B]", tbl.Columns)
	}
}

func TestDescriptionTablesErrors(t *testing.T) {
	t.Run("no table", func(t *testing.T) {
		_, err := DescriptionTables(layerWith("<p>plain text</p>"), HTMLParser{})
		var indexErr *TableIndexError
		if !errors.As(err, &indexErr) {
			t.Fatalf("error = %v; want TableIndexError", err)
		}
		if !Recoverable(err) {
			t.Error("TableIndexError should be recoverable")
		}
	})

	t.Run("empty description", func(t *testing.T) {
		_, err := DescriptionTables(layerWith(""), HTMLParser{})
		var indexErr *TableIndexError
		if !errors.As(err, &indexErr) {
			t.Fatalf("error = %v; want TableIndexError", err)
		}
	})

	t.Run("duplicate header", func(t *testing.T) {
		_, err := DescriptionTables(layerWith(`<table><tr><td>A</td><td>1</td></tr><tr><td>A</td><td>2</td></tr></table>`), HTMLParser{})
		var valueErr *InvalidValueError
		if !errors.As(err, &valueErr) {
			t.Fatalf("error = %v; want InvalidValueError", err)
		}
	})

	t.Run("header rows only", func(t *testing.T) {
		_, err := DescriptionTables(layerWith(`<table><tr><th>A</th><th>B</th></tr></table>`), HTMLParser{})
		var valueErr *InvalidValueError
		if !errors.As(err, &valueErr) {
			t.Fatalf("error = %v; want InvalidValueError", err)
		}
	})
}
