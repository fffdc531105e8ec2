// Copyright (c) 2024 Sudo-Ivan
// Licensed under the MIT License

// Package export writes unified datasets to the supported output formats.
package export

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/Sudo-Ivan/geodata-converter/pkg/dataset"
	"github.com/Sudo-Ivan/geodata-converter/pkg/ogr"
)

// Writer stores a dataset at path. Directory based formats create path as a
// directory or write their sidecar files next to it.
type Writer interface {
	Write(ds *dataset.Dataset, path string) error
}

// Options configures the writers of a Registry.
type Options struct {
	// Minify compacts GeoJSON and KML output.
	Minify bool
	// CSVGeometry appends a WKT_Geometry column to CSV output.
	CSVGeometry bool
	// Ogr2ogr is the path of the ogr2ogr executable used for OpenFileGDB.
	Ogr2ogr        string
	Ogr2ogrTimeout time.Duration
	Logger         zerolog.Logger
}

// Registry maps format labels to writers. It is built explicitly from
// Options and handed to the converter rather than registered globally.
type Registry struct {
	writers map[string]Writer
}

// NewRegistry builds the writers for every supported output format.
func NewRegistry(opts Options) *Registry {
	runner := ogr.NewRunner(opts.Ogr2ogr, opts.Ogr2ogrTimeout, opts.Logger)
	return &Registry{writers: map[string]Writer{
		FormatShapefile: Shapefile{},
		FormatFileGDB:   FileGDB{Runner: runner},
		FormatGeoJSON:   GeoJSON{Minify: opts.Minify},
		FormatCSV:       CSV{Geometry: opts.CSVGeometry},
		FormatKML:       KML{Minify: opts.Minify},
		FormatKMZ:       KMZ{},
		FormatGPX:       GPX{Logger: opts.Logger},
	}}
}

// Writer returns the writer for a format label (case-insensitive).
func (r *Registry) Writer(format string) (Writer, error) {
	for name, w := range r.writers {
		if strings.EqualFold(name, format) {
			return w, nil
		}
	}
	return nil, &dataset.UnsupportedExtensionError{Extension: format}
}

// UnsupportedGeometryError is returned when a writer cannot encode a geometry.
type UnsupportedGeometryError struct {
	Format string
	Type   string
}

func (e *UnsupportedGeometryError) Error() string {
	return fmt.Sprintf("%s output does not support %s geometry", e.Format, e.Type)
}

// UnsupportedCRSError is returned by formats bound to WGS 84 when the dataset
// uses another CRS.
type UnsupportedCRSError struct {
	Format string
	CRS    dataset.CRS
}

func (e *UnsupportedCRSError) Error() string {
	return fmt.Sprintf("%s output requires WGS 84 coordinates, dataset CRS is %s", e.Format, e.CRS)
}

func requireWGS84(format string, ds *dataset.Dataset) error {
	if ds.CRS.IsZero() || ds.CRS.IsWGS84() {
		return nil
	}
	return &UnsupportedCRSError{Format: format, CRS: ds.CRS}
}

func geometryType(g orb.Geometry) string {
	if g == nil {
		return "empty"
	}
	return g.GeoJSONType()
}

// createFile opens path for writing and returns a close function that
// reports the first error.
func createFile(path string) (*os.File, func(*error), error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	closer := func(errp *error) {
		if cerr := f.Close(); cerr != nil && *errp == nil {
			*errp = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}
	return f, closer, nil
}
