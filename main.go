// Command geodata-converter converts geospatial files and ArcGIS layers
// between Shapefile, file geodatabase, GeoJSON, CSV, KML, KMZ and GPX,
// recovering Google Earth attributes from SchemaData records or description
// tables.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sudo-Ivan/geodata-converter/internal/config"
	"github.com/Sudo-Ivan/geodata-converter/internal/logger"
	"github.com/Sudo-Ivan/geodata-converter/pkg/arcgis"
	"github.com/Sudo-Ivan/geodata-converter/pkg/convert"
	"github.com/Sudo-Ivan/geodata-converter/pkg/dataset"
)

const defaultConfigFile = "config.yaml"

// Options are the command-line flags.
type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile   string        `short:"c" long:"config"        env:"CONFIG_FILE"   description:"Path to configuration file" default:"config.yaml"`
	Format       string        `short:"f" long:"format"        env:"OUTPUT_FORMAT" description:"Output format label or extension (see --list-formats)" default:"GeoJSON"`
	Output       string        `short:"o" long:"output"        env:"OUTPUT_DIR"    description:"Output directory (default: current directory)"`
	Prefix       string        `short:"p" long:"prefix"                            description:"Prefix for output filenames"`
	Overwrite    bool          `long:"overwrite"                                   description:"Overwrite existing output files"`
	SkipExisting bool          `long:"skip-existing"                               description:"Skip inputs whose output file already exists"`
	Report       bool          `long:"report"                                      description:"Print a text report of each dataset instead of writing files"`
	ListFormats  bool          `long:"list-formats"                                description:"List output formats and exit"`
	Timeout      time.Duration `long:"timeout"       env:"ARCGIS_TIMEOUT"          description:"HTTP request timeout for ArcGIS inputs"`
	Markup       string        `long:"markup"                                      description:"Parser for Placemark description tables" choice:"html" choice:"xml"`
	Minify       bool          `long:"minify"                                      description:"Minify GeoJSON and KML output"`
	CSVGeometry  bool          `long:"csv-geometry"                                description:"Add a WKT_Geometry column to CSV output"`

	Args struct {
		Inputs []string `positional-arg-name:"INPUT" description:"Files, .gdb directories or ArcGIS URLs"`
	} `positional-args:"yes"`
}

// errSkipped marks an input left alone because its output exists.
var errSkipped = errors.New("skipped existing file")

func main() {
	_ = godotenv.Load(".env")

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[OPTIONS] INPUT..."
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()
	os.Exit(run(opts, os.Stdout))
}

// run executes the command and returns the process exit code.
func run(opts Options, stdout io.Writer) int {
	if opts.ListFormats {
		printFormats(stdout)
		return 0
	}
	if len(opts.Args.Inputs) == 0 {
		log.Error().Msg("At least one input is required")
		return 1
	}

	target, err := convert.LookupTarget(opts.Format)
	if err != nil {
		log.Error().Err(err).Msg("Invalid output format")
		return 1
	}

	cfg, err := config.Load(opts.ConfigFile, opts.ConfigFile == defaultConfigFile)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return 1
	}
	opts.applyTo(cfg)
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		return 1
	}

	onFallback := func(primary string, err error) {
		log.Info().Str("primary", primary).Err(err).Msg("Attribute extraction fell back")
	}
	conv, err := cfg.NewConverter(log.Logger, onFallback)
	if err != nil {
		log.Error().Err(err).Msg("Failed to build converter")
		return 1
	}

	outDir := opts.Output
	if outDir == "" {
		outDir, _ = os.Getwd()
	}
	if !opts.Report {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			log.Error().Err(err).Str("output", outDir).Msg("Failed to create output directory")
			return 1
		}
	}

	a := &app{
		opts:   opts,
		target: target,
		outDir: outDir,
		conv:   conv,
		client: cfg.NewArcGISClient(log.Logger),
		stdout: stdout,
	}
	return a.processAll(context.Background())
}

// applyTo overrides configuration values with flags that were given.
func (o Options) applyTo(cfg *config.Config) {
	if o.Timeout > 0 {
		cfg.ArcGIS.Timeout = o.Timeout
	}
	if o.Markup != "" {
		cfg.Extract.Markup = o.Markup
	}
	if o.Minify {
		cfg.Drivers.Minify = true
	}
	if o.CSVGeometry {
		cfg.Drivers.CSVGeometry = true
	}
}

func printFormats(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FORMAT\tEXTENSION\tDOWNLOAD\tMIME")
	for _, t := range convert.Targets() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Format, t.Extension, t.DownloadExtension, t.MIMEType)
	}
	_ = tw.Flush()
}

type app struct {
	opts   Options
	target convert.Target
	outDir string
	conv   *convert.Converter
	client *arcgis.Client

	mu     sync.Mutex
	stdout io.Writer
	// claimed maps each output path of this run to the input writing it.
	claimed map[string]string
}

// processAll handles every input concurrently and logs a summary.
func (a *app) processAll(ctx context.Context) int {
	var successCount, skippedCount, errorCount atomic.Int32
	seen := make(map[string]bool)

	var wg sync.WaitGroup
	for _, input := range a.opts.Args.Inputs {
		if seen[input] {
			continue
		}
		seen[input] = true

		wg.Add(1)
		go func(input string) {
			defer wg.Done()
			ilog := log.With().Str("input", input).Logger()

			err := a.processInput(ctx, input, ilog)
			switch {
			case errors.Is(err, errSkipped), errors.Is(err, arcgis.ErrNoFeatures):
				ilog.Warn().Err(err).Msg("Skipped input")
				skippedCount.Add(1)
			case err != nil:
				ilog.Error().Err(err).Msg("Failed to process input")
				errorCount.Add(1)
			default:
				successCount.Add(1)
			}
		}(input)
	}
	wg.Wait()

	ev := log.Info()
	if errorCount.Load() > 0 {
		ev = log.Error()
	} else if skippedCount.Load() > 0 {
		ev = log.Warn()
	}
	ev.Int32("succeeded", successCount.Load()).
		Int32("skipped", skippedCount.Load()).
		Int32("failed", errorCount.Load()).
		Msg("Processing complete")

	if errorCount.Load() > 0 {
		return 1
	}
	return 0
}

func (a *app) processInput(ctx context.Context, input string, ilog zerolog.Logger) error {
	var datasets []*dataset.Dataset
	if isRemote(input) {
		fetched, err := a.client.Fetch(ctx, input)
		if err != nil {
			return err
		}
		datasets = fetched
	} else {
		ds, err := a.conv.ReadPath(input)
		if err != nil {
			return err
		}
		datasets = []*dataset.Dataset{ds}
	}

	for _, ds := range datasets {
		if err := a.deliver(ds, input, ilog); err != nil {
			return err
		}
	}
	return nil
}

// deliver writes one dataset, or prints its report.
func (a *app) deliver(ds *dataset.Dataset, input string, ilog zerolog.Logger) error {
	ds.Name = a.opts.Prefix + ds.Name

	if a.opts.Report {
		text, err := convert.Report(ds)
		if err != nil {
			return err
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		_, err = io.WriteString(a.stdout, text)
		return err
	}

	dst := filepath.Join(a.outDir, convert.OutputName(ds.Name)+"."+a.target.DownloadExtension)
	if owner, ok := a.claim(dst, input); !ok {
		if a.opts.SkipExisting {
			return fmt.Errorf("%w: %s is written by %s", errSkipped, dst, owner)
		}
		return fmt.Errorf("output file %s is also written by input %s", dst, owner)
	}
	if fileExists(dst) {
		switch {
		case a.opts.SkipExisting:
			return fmt.Errorf("%w: %s", errSkipped, dst)
		case !a.opts.Overwrite:
			return fmt.Errorf("output file %s already exists (use --overwrite or --skip-existing)", dst)
		}
	}

	res, err := a.conv.Convert(ds, a.outDir, a.target.Format)
	if err != nil {
		return err
	}
	ilog.Info().
		Str("output", res.Path).
		Int("features", res.Features).
		Msg("Wrote output")
	return nil
}

// isRemote reports whether input names an ArcGIS service or item rather
// than a local path.
func isRemote(input string) bool {
	if fileExists(input) {
		return false
	}
	if arcgis.IsValidHTTPURL(input) || arcgis.IsArcGISOnlineItemURL(input) {
		return true
	}
	return strings.Contains(strings.ToLower(input), "/rest/services")
}

// claim reserves dst for input. It reports the owning input and false when
// another input of this run already reserved it.
func (a *app) claim(dst, input string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.claimed == nil {
		a.claimed = make(map[string]string)
	}
	if owner, ok := a.claimed[dst]; ok && owner != input {
		return owner, false
	}
	a.claimed[dst] = input
	return input, true
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
