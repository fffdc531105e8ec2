// Package config handles configuration loading for the converter binaries.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the root configuration file structure.
type Config struct {
	Drivers Drivers `yaml:"drivers" json:"drivers"`
	ArcGIS  ArcGIS  `yaml:"arcgis" json:"arcgis"`
	Server  Server  `yaml:"server" json:"server"`
	Cache   Cache   `yaml:"cache" json:"cache"`
	Extract Extract `yaml:"extract" json:"extract"`
}

// Drivers configures the output writers.
type Drivers struct {
	Ogr2ogr        string        `yaml:"ogr2ogr,omitempty" json:"ogr2ogr,omitempty"`
	Ogr2ogrTimeout time.Duration `yaml:"ogr2ogr_timeout,omitempty" json:"ogr2ogr_timeout,omitempty"`
	Minify         bool          `yaml:"minify,omitempty" json:"minify,omitempty"`
	CSVGeometry    bool          `yaml:"csv_geometry,omitempty" json:"csv_geometry,omitempty"`
}

// ArcGIS configures remote layer fetching.
type ArcGIS struct {
	Timeout  time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	PageSize int           `yaml:"page_size,omitempty" json:"page_size,omitempty"`
}

// Server configures the HTTP API.
type Server struct {
	MaxUploadBytes int64 `yaml:"max_upload_bytes,omitempty" json:"max_upload_bytes,omitempty"`
	AllowURLs      bool  `yaml:"allow_urls,omitempty" json:"allow_urls,omitempty"`
}

// Cache configures the Redis result cache. An empty address disables it.
type Cache struct {
	Addr     string        `yaml:"addr,omitempty" json:"addr,omitempty"`
	Password string        `yaml:"password,omitempty" json:"-"`
	DB       int           `yaml:"db,omitempty" json:"db,omitempty"`
	TTL      time.Duration `yaml:"ttl,omitempty" json:"ttl,omitempty"`
}

// Extract configures Google Earth attribute recovery.
type Extract struct {
	// Markup selects the parser for Placemark description tables: "html"
	// or "xml". KML documents are always read as XML.
	Markup             string `yaml:"markup,omitempty" json:"markup,omitempty"`
	IncludeFeatureName *bool  `yaml:"include_feature_name,omitempty" json:"include_feature_name,omitempty"`
}

// Defaults applied to unset values.
const (
	DefaultOgr2ogrTimeout = 5 * time.Minute
	DefaultArcGISTimeout  = 30 * time.Second
	DefaultPageSize       = 1000
	DefaultMaxUploadBytes = 64 << 20
	DefaultCacheTTL       = time.Hour
	DefaultMarkup         = "html"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the YAML configuration file from the specified path.
// A missing file yields the defaults when optional is set.
func Load(path string, optional bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks values that have no usable fallback.
func (c *Config) Validate() error {
	switch c.Extract.Markup {
	case "xml", "html":
	default:
		return fmt.Errorf("extract.markup must be xml or html, got %q", c.Extract.Markup)
	}
	if c.ArcGIS.PageSize < 0 {
		return fmt.Errorf("arcgis.page_size must not be negative")
	}
	if c.Cache.DB < 0 {
		return fmt.Errorf("cache.db must not be negative")
	}
	return nil
}

// FeatureName reports whether structured rows carry the feature name.
func (e Extract) FeatureName() bool {
	return e.IncludeFeatureName == nil || *e.IncludeFeatureName
}

func (c *Config) applyDefaults() {
	if c.Drivers.Ogr2ogrTimeout <= 0 {
		c.Drivers.Ogr2ogrTimeout = DefaultOgr2ogrTimeout
	}
	if c.ArcGIS.Timeout <= 0 {
		c.ArcGIS.Timeout = DefaultArcGISTimeout
	}
	if c.ArcGIS.PageSize == 0 {
		c.ArcGIS.PageSize = DefaultPageSize
	}
	if c.Server.MaxUploadBytes <= 0 {
		c.Server.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Extract.Markup == "" {
		c.Extract.Markup = DefaultMarkup
	}
}
