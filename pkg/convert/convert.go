// Copyright (c) 2025 Sudo-Ivan
// Licensed under the MIT License

// Package convert ties the readers and writers together: it loads an input
// into a dataset and delivers it in one of the supported output formats.
package convert

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sudo-Ivan/geodata-converter/pkg/archive"
	"github.com/Sudo-Ivan/geodata-converter/pkg/dataset"
	"github.com/Sudo-Ivan/geodata-converter/pkg/export"
	"github.com/Sudo-Ivan/geodata-converter/pkg/ingest"
)

// DefaultName is used when neither the dataset nor the input names the output.
const DefaultName = "output"

// Options configures a Converter.
type Options struct {
	Ingest ingest.Options
	Export export.Options
	// Logger replaces the loggers of Ingest and Export.
	Logger zerolog.Logger
}

// Converter reads inputs and writes outputs using explicitly built registries.
type Converter struct {
	Readers *ingest.Registry
	Writers *export.Registry
	Logger  zerolog.Logger
}

// Result describes a delivered output file.
type Result struct {
	Path     string
	Target   Target
	Features int
	Duration time.Duration
}

// New builds a Converter from options.
func New(opts Options) (*Converter, error) {
	opts.Ingest.Logger = opts.Logger
	opts.Export.Logger = opts.Logger
	readers, err := ingest.NewRegistry(opts.Ingest)
	if err != nil {
		return nil, err
	}
	return &Converter{
		Readers: readers,
		Writers: export.NewRegistry(opts.Export),
		Logger:  opts.Logger,
	}, nil
}

// ReadPath loads the file or directory at path.
func (c *Converter) ReadPath(path string) (*dataset.Dataset, error) {
	return c.Readers.Read(path)
}

// ReadFile loads an input delivered as a byte stream. The name supplies the
// extension that selects the reader and the default dataset name.
func (c *Converter) ReadFile(name string, r io.Reader) (*dataset.Dataset, error) {
	base := filepath.Base(filepath.ToSlash(name))
	if _, err := c.Readers.Reader(base); err != nil {
		return nil, err
	}

	tmp, err := os.MkdirTemp("", "convert-in-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	path := filepath.Join(tmp, base)
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to store upload %s: %w", base, err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return c.Readers.Read(path)
}

// Convert writes ds in the given format into outDir and returns the
// delivered file, named after the dataset with the download extension.
// Directory formats are zipped with paths relative to their staging
// directory.
func (c *Converter) Convert(ds *dataset.Dataset, outDir, format string) (*Result, error) {
	start := time.Now()
	target, err := LookupTarget(format)
	if err != nil {
		return nil, err
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	w, err := c.Writers.Writer(target.Format)
	if err != nil {
		return nil, err
	}

	name := OutputName(ds.Name)
	dst := filepath.Join(outDir, name+"."+target.DownloadExtension)

	if !target.Zipped {
		if err := w.Write(ds, dst); err != nil {
			_ = os.RemoveAll(dst)
			return nil, fmt.Errorf("failed to write %s: %w", target.Format, err)
		}
	} else {
		stage, err := os.MkdirTemp("", "convert-out-*")
		if err != nil {
			return nil, err
		}
		defer func() { _ = os.RemoveAll(stage) }()

		if err := w.Write(ds, filepath.Join(stage, name+"."+target.Extension)); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", target.Format, err)
		}
		if err := archive.ZipDir(stage, dst); err != nil {
			_ = os.Remove(dst)
			return nil, err
		}
	}

	res := &Result{Path: dst, Target: target, Features: ds.Len(), Duration: time.Since(start)}
	c.Logger.Info().
		Str("format", target.Format).
		Str("output", dst).
		Int("features", res.Features).
		Dur("duration", res.Duration).
		Msg("Converted dataset")
	return res, nil
}

// ConvertFile reads src and converts it into outDir.
func (c *Converter) ConvertFile(src, outDir, format string) (*Result, error) {
	ds, err := c.ReadPath(src)
	if err != nil {
		return nil, err
	}
	return c.Convert(ds, outDir, format)
}

var unsafeName = regexp.MustCompile(`[^\w\-. ]+`)

// OutputName turns a dataset name into a safe file stem.
func OutputName(name string) string {
	name = strings.TrimSpace(unsafeName.ReplaceAllString(name, "_"))
	name = strings.Trim(name, ". ")
	if name == "" {
		return DefaultName
	}
	return name
}
