// Copyright (c) 2025 Sudo-Ivan
// Licensed under the MIT License

// Package gearth recovers attribute tables from Google Earth KML and KMZ
// documents. Attributes are stored either as HTML tables inside Placemark
// descriptions or as SchemaData/SimpleData records; a Dispatcher picks the
// matching extractor, falls back to the other one once, and pairs the rows
// with the Placemark geometries.
package gearth

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sudo-Ivan/geodata-converter/pkg/archive"
	"github.com/Sudo-Ivan/geodata-converter/pkg/dataset"
)

// Format is the container kind of a Google Earth document.
type Format string

const (
	FormatKML Format = "KML"
	FormatKMZ Format = "KMZ"
)

// Document is the raw markup of one KML payload.
type Document struct {
	Path   string
	Format Format
	// Entry is the archive member the text was read from (KMZ only).
	Entry string
	Text  string
}

// ReadDocument returns the markup of a .kml file or of the single .kml entry
// inside a .kmz archive.
func ReadDocument(path string) (*Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".kml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return &Document{Path: path, Format: FormatKML, Text: string(data)}, nil

	case ".kmz":
		return readKMZ(path)

	default:
		return nil, &dataset.UnsupportedExtensionError{Extension: filepath.Ext(path)}
	}
}

func readKMZ(path string) (*Document, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = zr.Close() }()

	name, err := archive.FindSingle(archive.Names(&zr.Reader), ".kml")
	if err != nil {
		return nil, err
	}
	data, err := archive.ReadEntry(&zr.Reader, name)
	if err != nil {
		return nil, err
	}
	return &Document{Path: path, Format: FormatKMZ, Entry: name, Text: string(data)}, nil
}
