package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Sudo-Ivan/geodata-converter/pkg/dataset"
	"github.com/Sudo-Ivan/geodata-converter/pkg/ogr"
)

// FileGDB reads an Esri file geodatabase directory by translating its first
// layer to GeoJSON with ogr2ogr.
type FileGDB struct {
	Runner *ogr.Runner
}

// Read implements Reader.
func (g FileGDB) Read(path string) (*dataset.Dataset, error) {
	tmp, err := os.MkdirTemp("", "gdb-read-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	out := filepath.Join(tmp, "layer.geojson")
	if err := g.Runner.Translate(context.Background(), "GeoJSON", out, path, ""); err != nil {
		return nil, fmt.Errorf("failed to read geodatabase %s: %w", path, err)
	}
	return GeoJSON{}.Read(out)
}
