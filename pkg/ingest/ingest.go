// Copyright (c) 2025 Sudo-Ivan
// Licensed under the MIT License

// Package ingest reads the supported input formats into unified datasets.
package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sudo-Ivan/geodata-converter/pkg/dataset"
	"github.com/Sudo-Ivan/geodata-converter/pkg/gearth"
	"github.com/Sudo-Ivan/geodata-converter/pkg/ogr"
)

// Reader loads the dataset stored at path.
type Reader interface {
	Read(path string) (*dataset.Dataset, error)
}

// Options configures a Registry.
type Options struct {
	// Dispatcher reads KML and KMZ; a default one is built when nil.
	Dispatcher     *gearth.Dispatcher
	Ogr2ogr        string
	Ogr2ogrTimeout time.Duration
	Logger         zerolog.Logger
}

// Registry maps input extensions to readers.
type Registry struct {
	readers map[string]Reader
	logger  zerolog.Logger
}

// NewRegistry builds the readers for every supported input extension.
func NewRegistry(opts Options) (*Registry, error) {
	d := opts.Dispatcher
	if d == nil {
		dopts := gearth.DefaultOptions()
		dopts.Logger = opts.Logger
		var err error
		if d, err = gearth.NewDispatcher(dopts); err != nil {
			return nil, err
		}
	}

	r := &Registry{logger: opts.Logger}
	ge := GoogleEarth{Dispatcher: d}
	gj := GeoJSON{}
	gdb := FileGDB{Runner: ogr.NewRunner(opts.Ogr2ogr, opts.Ogr2ogrTimeout, opts.Logger)}
	r.readers = map[string]Reader{
		".kml":     ge,
		".kmz":     ge,
		".geojson": gj,
		".json":    gj,
		".shp":     Shapefile{},
		".csv":     CSV{},
		".gdb":     gdb,
		".zip":     Zip{Registry: r},
	}
	return r, nil
}

// Reader returns the reader for the extension of path.
func (r *Registry) Reader(path string) (Reader, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimRight(path, `/\`)))
	if rd, ok := r.readers[ext]; ok {
		return rd, nil
	}
	return nil, &dataset.UnsupportedExtensionError{Extension: ext}
}

// Read loads path with the reader matching its extension. The dataset name
// defaults to the file name without extension.
func (r *Registry) Read(path string) (*dataset.Dataset, error) {
	rd, err := r.Reader(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	ds, err := rd.Read(path)
	if err != nil {
		return nil, err
	}
	if ds.Name == "" {
		ds.Name = stem(path)
	}
	r.logger.Debug().
		Str("path", path).
		Int("features", ds.Len()).
		Str("crs", ds.CRS.String()).
		Msg("Read dataset")
	return ds, nil
}

func stem(path string) string {
	name := filepath.Base(strings.TrimRight(path, `/\`))
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// GoogleEarth reads KML and KMZ through the attribute-recovering dispatcher.
type GoogleEarth struct {
	Dispatcher *gearth.Dispatcher
}

// Read implements Reader.
func (g GoogleEarth) Read(path string) (*dataset.Dataset, error) {
	res, err := g.Dispatcher.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return res.Dataset, nil
}
