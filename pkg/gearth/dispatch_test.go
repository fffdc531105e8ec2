package gearth

import (
	"errors"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/Sudo-Ivan/geodata-converter/pkg/dataset"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(DefaultOptions())
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}
	return d
}

func traceString(states []State) string {
	parts := make([]string, len(states))
	for i, s := range states {
		parts[i] = s.String()
	}
	return strings.Join(parts, ">")
}

func TestDispatcherScenario(t *testing.T) {
	d := newTestDispatcher(t)
	res, err := d.ReadFile(writeTemp(t, "test.kml", descriptionKML(5)))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	ds := res.Dataset
	if ds.Table.Len() != 5 || ds.Len() != 5 {
		t.Fatalf("got %d rows and %d geometries; want 5 and 5", ds.Table.Len(), ds.Len())
	}
	for _, c := range []string{"ID", "Owner", "Status"} {
		if !ds.Table.HasColumn(c) {
			t.Errorf("column %q missing from %v", c, ds.Table.Columns)
		}
	}
	if ds.CRS != dataset.WGS84 {
		t.Errorf("CRS = %v; want EPSG:4326", ds.CRS)
	}
	if ds.Table.Rows[3]["Owner"] != "Owner 3" {
		t.Errorf("row 3 Owner = %v; want Owner 3", ds.Table.Rows[3]["Owner"])
	}
	if p, ok := ds.Geometries[3].(orb.Point); !ok || p != (orb.Point{3.5, 3.25}) {
		t.Errorf("geometry 3 = %v; want POINT(3.5 3.25)", ds.Geometries[3])
	}
	if res.Strategy != "description" || res.FellBack {
		t.Errorf("strategy = %s fallback = %v; want description without fallback", res.Strategy, res.FellBack)
	}
	if got := traceString(res.Trace); got != "INSPECT>TRY_PRIMARY>SUCCESS" {
		t.Errorf("trace = %s", got)
	}
	if ds.Name != "test" {
		t.Errorf("Name = %q; want test", ds.Name)
	}
}

func TestDispatcherMarkupBackends(t *testing.T) {
	for _, markup := range []string{"html", "xml"} {
		t.Run(markup, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Markup = markup
			d, err := NewDispatcher(opts)
			if err != nil {
				t.Fatalf("NewDispatcher() error = %v", err)
			}

			res, err := d.ReadFile(writeTemp(t, "test.kml", descriptionKML(5)))
			if err != nil {
				t.Fatalf("ReadFile() error = %v", err)
			}
			if res.Strategy != "description" || res.FellBack {
				t.Errorf("strategy = %s fallback = %v; want description without fallback", res.Strategy, res.FellBack)
			}
			if res.Dataset.Table.Len() != 5 {
				t.Fatalf("rows = %d; want 5", res.Dataset.Table.Len())
			}
			if got := res.Dataset.Table.Rows[4]["Owner"]; got != "Owner 4" {
				t.Errorf("row 4 Owner = %v; want Owner 4", got)
			}
		})
	}
}

func TestDispatcherStructured(t *testing.T) {
	d := newTestDispatcher(t)
	res, err := d.ReadFile(writeKMZ(t, map[string]string{"doc.kml": structuredKML(4)}))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if res.Strategy != "structured" {
		t.Errorf("strategy = %s; want structured", res.Strategy)
	}
	if res.Dataset.Table.Len() != 4 || res.Dataset.Len() != 4 {
		t.Errorf("got %d rows and %d geometries; want 4 and 4", res.Dataset.Table.Len(), res.Dataset.Len())
	}
	if res.Dataset.Table.Rows[2]["Name"] != "Parcel 2" {
		t.Errorf("row 2 Name = %v; want Parcel 2", res.Dataset.Table.Rows[2]["Name"])
	}
	if _, ok := res.Dataset.Geometries[0].(orb.Polygon); !ok {
		t.Errorf("geometry 0 = %T; want orb.Polygon", res.Dataset.Geometries[0])
	}
}

func TestExtractorsAreExclusive(t *testing.T) {
	xml := XMLParser{}
	structured := StructuredStrategy{XML: xml, Options: DefaultStructuredOptions()}
	description := DescriptionStrategy{Document: xml, Table: HTMLParser{}}

	t.Run("structured only", func(t *testing.T) {
		doc := &Document{Path: "s.kml", Text: structuredKML(3)}
		ds, err := structured.Extract(doc)
		if err != nil {
			t.Fatalf("structured Extract() error = %v", err)
		}
		if ds.Table.Len() != 3 {
			t.Errorf("rows = %d; want 3", ds.Table.Len())
		}
		if _, err := description.Extract(doc); err == nil {
			t.Error("description Extract() succeeded on a structured-only document")
		}
	})

	t.Run("description only", func(t *testing.T) {
		doc := &Document{Path: "d.kml", Text: descriptionKML(3)}
		ds, err := description.Extract(doc)
		if err != nil {
			t.Fatalf("description Extract() error = %v", err)
		}
		if ds.Table.Len() != 3 {
			t.Errorf("rows = %d; want 3", ds.Table.Len())
		}
		_, err = structured.Extract(doc)
		if !errors.Is(err, ErrNoStructuredRows) {
			t.Errorf("structured Extract() error = %v; want ErrNoStructuredRows", err)
		}
	})
}

type stubStrategy struct {
	name  string
	err   error
	calls int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Extract(*Document) (*dataset.Dataset, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &dataset.Dataset{Name: s.name, Table: dataset.NewTable()}, nil
}

func TestDispatcherTransitions(t *testing.T) {
	mismatch := &dataset.RowCountMismatchError{Rows: 1, Features: 2}
	tests := []struct {
		name            string
		text            string
		structuredErr   error
		descriptionErr  error
		wantStrategy    string
		wantTrace       string
		wantErr         bool
		wantStructured  int
		wantDescription int
	}{
		{
			name:            "marker selects structured",
			text:            "<kml><SchemaData/></kml>",
			wantStrategy:    "structured",
			wantTrace:       "INSPECT>TRY_PRIMARY>SUCCESS",
			wantStructured:  1,
			wantDescription: 0,
		},
		{
			name:            "no marker selects description",
			text:            "<kml/>",
			wantStrategy:    "description",
			wantTrace:       "INSPECT>TRY_PRIMARY>SUCCESS",
			wantStructured:  0,
			wantDescription: 1,
		},
		{
			name:            "recoverable error swaps once",
			text:            "<kml/>",
			descriptionErr:  &TableIndexError{},
			wantStrategy:    "structured",
			wantTrace:       "INSPECT>TRY_PRIMARY>TRY_FALLBACK>SUCCESS",
			wantStructured:  1,
			wantDescription: 1,
		},
		{
			name:            "both fail without third attempt",
			text:            "<kml><schemadata/></kml>",
			structuredErr:   &MarkupParseError{Backend: "xml", Err: errNoRoot},
			descriptionErr:  &TableIndexError{},
			wantTrace:       "INSPECT>TRY_PRIMARY>TRY_FALLBACK>FAILED",
			wantErr:         true,
			wantStructured:  1,
			wantDescription: 1,
		},
		{
			name:            "row count mismatch is fatal",
			text:            "<kml/>",
			descriptionErr:  mismatch,
			wantTrace:       "INSPECT>TRY_PRIMARY>FAILED",
			wantErr:         true,
			wantStructured:  0,
			wantDescription: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &stubStrategy{name: "structured", err: tt.structuredErr}
			dsc := &stubStrategy{name: "description", err: tt.descriptionErr}
			fallbacks := 0
			d := &Dispatcher{
				Structured:  s,
				Description: dsc,
				OnFallback:  func(string, error) { fallbacks++ },
			}

			res, err := d.Run(&Document{Path: "x.kml", Text: tt.text})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Run() error = %v; wantErr %v", err, tt.wantErr)
			}
			if got := traceString(res.Trace); got != tt.wantTrace {
				t.Errorf("trace = %s; want %s", got, tt.wantTrace)
			}
			if !tt.wantErr && res.Strategy != tt.wantStrategy {
				t.Errorf("strategy = %s; want %s", res.Strategy, tt.wantStrategy)
			}
			if s.calls != tt.wantStructured || dsc.calls != tt.wantDescription {
				t.Errorf("calls structured=%d description=%d; want %d and %d",
					s.calls, dsc.calls, tt.wantStructured, tt.wantDescription)
			}
			if res.FellBack != (fallbacks == 1) {
				t.Errorf("FellBack = %v but OnFallback called %d times", res.FellBack, fallbacks)
			}
		})
	}

	t.Run("fatal error keeps its type", func(t *testing.T) {
		d := &Dispatcher{
			Structured:  &stubStrategy{name: "structured"},
			Description: &stubStrategy{name: "description", err: mismatch},
		}
		_, err := d.Run(&Document{Path: "x.kml", Text: "<kml/>"})
		var mm *dataset.RowCountMismatchError
		if !errors.As(err, &mm) {
			t.Errorf("Run() error = %v; want RowCountMismatchError", err)
		}
	})
}

func TestDispatcherRowCountMismatch(t *testing.T) {
	// one description holds two value columns, so it yields two records
	text := strings.Replace(descriptionKML(2),
		"<tr><td>ID</td><td>0</td></tr>",
		"<tr><td>ID</td><td>0</td><td>extra</td></tr>", 1)

	d := newTestDispatcher(t)
	_, err := d.ReadText("mismatch.kml", text)
	var mm *dataset.RowCountMismatchError
	if !errors.As(err, &mm) {
		t.Fatalf("ReadText() error = %v; want RowCountMismatchError", err)
	}
	if mm.Rows != 3 || mm.Features != 2 {
		t.Errorf("mismatch = %+v; want 3 rows for 2 features", mm)
	}
}

func TestDispatcherEmptyDocument(t *testing.T) {
	d := newTestDispatcher(t)
	res, err := d.ReadText("empty.kml", `<kml><Document><Schema name="s"/></Document></kml>`)
	if err != nil {
		t.Fatalf("ReadText() error = %v", err)
	}
	if res.Dataset.Len() != 0 {
		t.Errorf("Len() = %d; want 0", res.Dataset.Len())
	}
}
