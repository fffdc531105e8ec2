package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Sudo-Ivan/geodata-converter/pkg/dataset"
	"github.com/Sudo-Ivan/geodata-converter/pkg/ogr"
)

// FileGDB writes an Esri file geodatabase directory through ogr2ogr, using a
// GeoJSON staging file.
type FileGDB struct {
	Runner *ogr.Runner
}

// Write implements Writer. path is the .gdb directory to create.
func (g FileGDB) Write(ds *dataset.Dataset, path string) error {
	stage, err := os.MkdirTemp("", "gdb-stage-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(stage) }()

	src := filepath.Join(stage, "layer.geojson")
	if err := (GeoJSON{}).Write(ds, src); err != nil {
		return err
	}

	layer := ds.Name
	if layer == "" {
		layer = trimExt(filepath.Base(path))
	}
	if err := g.Runner.Translate(context.Background(), FormatFileGDB, path, src, layer); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
