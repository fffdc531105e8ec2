package convert

import (
	"strings"

	"github.com/Sudo-Ivan/geodata-converter/pkg/dataset"
	"github.com/Sudo-Ivan/geodata-converter/pkg/export"
)

// Target describes one output format.
type Target struct {
	// Format is the driver label, e.g. "ESRI Shapefile".
	Format string `json:"format"`
	// Extension is the extension of the file or directory the driver writes.
	Extension string `json:"extension"`
	// DownloadExtension is the extension of the delivered file.
	DownloadExtension string `json:"download_extension"`
	MIMEType          string `json:"mime_type"`
	// Zipped reports whether the driver output is packed into an archive.
	Zipped bool `json:"zipped"`
}

var targets = []Target{
	{Format: export.FormatShapefile, Extension: "shp", DownloadExtension: "zip", MIMEType: "application/zip", Zipped: true},
	{Format: export.FormatFileGDB, Extension: "gdb", DownloadExtension: "zip", MIMEType: "application/zip", Zipped: true},
	{Format: export.FormatGeoJSON, Extension: "geojson", DownloadExtension: "geojson", MIMEType: "application/geo+json"},
	{Format: export.FormatCSV, Extension: "csv", DownloadExtension: "csv", MIMEType: "text/csv"},
	{Format: export.FormatKML, Extension: "kml", DownloadExtension: "kml", MIMEType: "application/vnd.google-earth.kml+xml"},
	{Format: export.FormatKMZ, Extension: "kmz", DownloadExtension: "kmz", MIMEType: "application/vnd.google-earth.kmz"},
	{Format: export.FormatGPX, Extension: "gpx", DownloadExtension: "gpx", MIMEType: "application/gpx+xml"},
}

// Targets returns the supported output formats.
func Targets() []Target {
	out := make([]Target, len(targets))
	copy(out, targets)
	return out
}

// LookupTarget finds a target by format label or extension, ignoring case.
func LookupTarget(name string) (Target, error) {
	key := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), ".")
	for _, t := range targets {
		if strings.ToLower(t.Format) == key || t.Extension == key {
			return t, nil
		}
	}
	return Target{}, &dataset.UnsupportedExtensionError{Extension: name}
}
