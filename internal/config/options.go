package config

import (
	"github.com/rs/zerolog"

	"github.com/Sudo-Ivan/geodata-converter/pkg/arcgis"
	"github.com/Sudo-Ivan/geodata-converter/pkg/convert"
	"github.com/Sudo-Ivan/geodata-converter/pkg/export"
	"github.com/Sudo-Ivan/geodata-converter/pkg/gearth"
	"github.com/Sudo-Ivan/geodata-converter/pkg/ingest"
)

// NewConverter builds a converter from the drivers and extract sections.
// onFallback, when set, observes every Google Earth strategy swap.
func (c *Config) NewConverter(logger zerolog.Logger, onFallback func(primary string, err error)) (*convert.Converter, error) {
	d, err := gearth.NewDispatcher(gearth.Options{
		Markup:             c.Extract.Markup,
		IncludeFeatureName: c.Extract.FeatureName(),
		OnFallback:         onFallback,
		Logger:             logger,
	})
	if err != nil {
		return nil, err
	}

	return convert.New(convert.Options{
		Ingest: ingest.Options{
			Dispatcher:     d,
			Ogr2ogr:        c.Drivers.Ogr2ogr,
			Ogr2ogrTimeout: c.Drivers.Ogr2ogrTimeout,
		},
		Export: export.Options{
			Minify:         c.Drivers.Minify,
			CSVGeometry:    c.Drivers.CSVGeometry,
			Ogr2ogr:        c.Drivers.Ogr2ogr,
			Ogr2ogrTimeout: c.Drivers.Ogr2ogrTimeout,
		},
		Logger: logger,
	})
}

// NewArcGISClient builds an ArcGIS client from the arcgis section.
func (c *Config) NewArcGISClient(logger zerolog.Logger) *arcgis.Client {
	client := arcgis.NewClient(c.ArcGIS.Timeout)
	client.PageSize = c.ArcGIS.PageSize
	client.Logger = logger
	return client
}
