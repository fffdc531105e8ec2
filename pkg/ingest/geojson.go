package ingest

import (
	"fmt"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/Sudo-Ivan/geodata-converter/pkg/dataset"
)

// GeoJSON reads a FeatureCollection. The legacy named "crs" member is
// honoured; without it coordinates are WGS 84.
type GeoJSON struct{}

// Read implements Reader.
func (GeoJSON) Read(path string) (*dataset.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON from %s: %w", path, err)
	}
	return FromFeatureCollection(fc), nil
}

// FromFeatureCollection converts an orb FeatureCollection into a dataset.
func FromFeatureCollection(fc *geojson.FeatureCollection) *dataset.Dataset {
	ds := &dataset.Dataset{
		Table:      dataset.NewTable(),
		Geometries: make([]orb.Geometry, 0, len(fc.Features)),
		CRS:        crsMember(fc.ExtraMembers),
	}
	for _, f := range fc.Features {
		row := dataset.Row{}
		for k, v := range f.Properties {
			row[k] = v
		}
		ds.Table.Append(row)
		ds.Geometries = append(ds.Geometries, f.Geometry)
	}
	if name, ok := fc.ExtraMembers["name"].(string); ok {
		ds.Name = name
	}
	return ds
}

func crsMember(members geojson.Properties) dataset.CRS {
	crs, ok := members["crs"].(map[string]interface{})
	if !ok {
		return dataset.WGS84
	}
	props, _ := crs["properties"].(map[string]interface{})
	name, _ := props["name"].(string)
	if name == "" {
		return dataset.WGS84
	}
	upper := strings.ToUpper(name)
	if strings.HasSuffix(upper, "CRS84") || strings.HasSuffix(upper, "EPSG::4326") || upper == "EPSG:4326" {
		return dataset.WGS84
	}
	if i := strings.Index(upper, "EPSG::"); i >= 0 {
		return dataset.CRS{Name: "EPSG:" + name[i+len("EPSG::"):]}
	}
	return dataset.CRS{Name: name}
}
