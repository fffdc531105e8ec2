package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Sudo-Ivan/geodata-converter/internal/cache"
	"github.com/Sudo-Ivan/geodata-converter/internal/config"
	"github.com/Sudo-Ivan/geodata-converter/internal/logger"
	"github.com/Sudo-Ivan/geodata-converter/internal/metrics"
	"github.com/Sudo-Ivan/geodata-converter/internal/server"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config"     env:"CONFIG_FILE"    description:"Path to configuration file" default:"config.yaml"`
	Addr       string `short:"a" long:"addr"       env:"LISTEN_ADDRESS" description:"Address to listen on"       default:"0.0.0.0"`
	Port       int    `short:"p" long:"port"       env:"LISTEN_PORT"    description:"Port to listen on"          default:"8080"`
	AllowURLs  bool   `long:"allow-urls"           env:"ALLOW_URLS"     description:"Accept ArcGIS URLs in convert requests"`
}

func main() {
	_ = godotenv.Load(".env")

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Setup Logging
	opts.Logger.Setup()

	// Load Config
	cfg, err := config.Load(opts.ConfigFile, opts.ConfigFile == "config.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if opts.AllowURLs {
		cfg.Server.AllowURLs = true
	}

	conv, err := cfg.NewConverter(log.Logger, metrics.ObserveFallback)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build converter")
	}

	// Redis is optional; config wins over REDIS_* variables.
	var c *cache.Cache
	if cfg.Cache.Addr != "" {
		c = cache.Open(cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB, cfg.Cache.TTL, log.Logger)
	} else {
		c = cache.OpenFromEnv(cfg.Cache.TTL, log.Logger)
	}
	defer c.Close()

	srvCtx := server.NewServerContext(cfg, conv, cfg.NewArcGISClient(log.Logger), c)
	handler := server.RequestLogger(srvCtx.Routes())

	listenAddr := fmt.Sprintf("%s:%d", opts.Addr, opts.Port)
	log.Info().
		Str("addr", listenAddr).
		Bool("cache", c != nil).
		Bool("allow_urls", cfg.Server.AllowURLs).
		Msg("Web server started")

	if err := http.ListenAndServe(listenAddr, handler); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
