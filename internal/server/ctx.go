// Package server implements the HTTP conversion API.
package server

import (
	"github.com/rs/zerolog/log"

	"github.com/Sudo-Ivan/geodata-converter/internal/cache"
	"github.com/Sudo-Ivan/geodata-converter/internal/config"
	"github.com/Sudo-Ivan/geodata-converter/pkg/arcgis"
	"github.com/Sudo-Ivan/geodata-converter/pkg/convert"
)

// ServerContext holds dependencies for request handlers.
type ServerContext struct {
	Config    *config.Config
	Converter *convert.Converter
	ArcGIS    *arcgis.Client
	Cache     *cache.Cache
}

// NewServerContext initializes the handler dependencies. A nil ArcGIS client
// disables URL inputs; a nil cache disables result caching.
func NewServerContext(cfg *config.Config, conv *convert.Converter, client *arcgis.Client, c *cache.Cache) *ServerContext {
	log.Info().
		Int("formats", len(convert.Targets())).
		Bool("url_inputs", client != nil && cfg.Server.AllowURLs).
		Bool("cache", c != nil).
		Int64("max_upload_bytes", cfg.Server.MaxUploadBytes).
		Msg("Server context initialized")

	return &ServerContext{
		Config:    cfg,
		Converter: conv,
		ArcGIS:    client,
		Cache:     c,
	}
}
