package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/Sudo-Ivan/geodata-converter/pkg/dataset"
	"github.com/Sudo-Ivan/geodata-converter/pkg/utils"
)

// Geometry columns recognised in CSV input, in order of preference.
var (
	wktColumns = []string{"WKT_Geometry", "WKT", "geometry"}
	lonColumns = []string{"lon", "lng", "longitude", "x"}
	latColumns = []string{"lat", "latitude", "y"}
)

// CSV reads delimited text. Geometry comes from a WKT column or from a
// longitude/latitude pair; other cells stay strings.
type CSV struct{}

// Read implements Reader.
func (CSV) Read(path string) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	ds, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV %s: %w", path, err)
	}
	return ds, nil
}

// ReadCSV parses CSV records from r.
func ReadCSV(r io.Reader) (*dataset.Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &dataset.Dataset{Table: dataset.NewTable()}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	wktIdx := findColumn(header, wktColumns)
	lonIdx, latIdx := -1, -1
	if wktIdx < 0 {
		lonIdx, latIdx = findColumn(header, lonColumns), findColumn(header, latColumns)
		if lonIdx < 0 || latIdx < 0 {
			lonIdx, latIdx = -1, -1
		}
	}

	ds := &dataset.Dataset{Table: dataset.NewTable()}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		row := dataset.Row{}
		var order []string
		for i, name := range header {
			if i == wktIdx || i >= len(rec) {
				continue
			}
			row[name] = rec[i]
			order = append(order, name)
		}
		ds.Table.Append(row, order...)

		g, err := recordGeometry(rec, wktIdx, lonIdx, latIdx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ds.Geometries = append(ds.Geometries, g)
	}

	if wktIdx >= 0 || lonIdx >= 0 {
		ds.CRS = dataset.WGS84
	}
	return ds, nil
}

func findColumn(header, candidates []string) int {
	for _, c := range candidates {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), c) {
				return i
			}
		}
	}
	return -1
}

func recordGeometry(rec []string, wktIdx, lonIdx, latIdx int) (orb.Geometry, error) {
	switch {
	case wktIdx >= 0:
		if wktIdx >= len(rec) {
			return nil, nil
		}
		return utils.GeometryFromWKT(rec[wktIdx])
	case lonIdx >= 0:
		if lonIdx >= len(rec) || latIdx >= len(rec) {
			return nil, nil
		}
		ls, la := strings.TrimSpace(rec[lonIdx]), strings.TrimSpace(rec[latIdx])
		if ls == "" || la == "" {
			return nil, nil
		}
		lon, err := strconv.ParseFloat(ls, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude %q", ls)
		}
		lat, err := strconv.ParseFloat(la, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude %q", la)
		}
		return orb.Point{lon, lat}, nil
	}
	return nil, nil
}
