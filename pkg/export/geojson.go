package export

import (
	"bytes"
	"encoding/json"

	"github.com/paulmach/orb/geojson"
	"github.com/tdewolff/minify/v2"
	minifyjson "github.com/tdewolff/minify/v2/json"

	"github.com/Sudo-Ivan/geodata-converter/pkg/dataset"
)

// GeoJSON writes a FeatureCollection. A named CRS member is written when the
// dataset CRS is known.
type GeoJSON struct {
	Minify bool
}

// Write implements Writer.
func (g GeoJSON) Write(ds *dataset.Dataset, path string) (err error) {
	data, err := g.Marshal(ds)
	if err != nil {
		return err
	}

	f, closeFile, err := createFile(path)
	if err != nil {
		return err
	}
	defer closeFile(&err)

	_, err = f.Write(data)
	return err
}

// Marshal encodes ds as a GeoJSON document.
func (g GeoJSON) Marshal(ds *dataset.Dataset) ([]byte, error) {
	fc := FeatureCollection(ds)

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return nil, err
	}
	if !g.Minify {
		return data, nil
	}

	m := minify.New()
	m.AddFunc("application/json", minifyjson.Minify)
	var buf bytes.Buffer
	if err := m.Minify("application/json", &buf, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FeatureCollection converts ds into an orb FeatureCollection.
func FeatureCollection(ds *dataset.Dataset) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, geom := range ds.Geometries {
		f := geojson.NewFeature(geom)
		for _, col := range ds.Table.Columns {
			if v, ok := ds.Table.Rows[i][col]; ok {
				f.Properties[col] = v
			}
		}
		fc.Append(f)
	}

	if !ds.CRS.IsZero() {
		name := ds.CRS.Name
		if ds.CRS.IsWGS84() {
			name = CRS84URN
		}
		if name != "" {
			fc.ExtraMembers = geojson.Properties{
				"crs": map[string]any{
					"type":       "name",
					"properties": map[string]any{"name": name},
				},
			}
		}
	}
	return fc
}
