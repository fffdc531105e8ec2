// Package ogr runs the GDAL ogr2ogr command-line tool for formats that have
// no Go implementation, such as the Esri file geodatabase.
package ogr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultCommand is looked up on PATH when no explicit path is configured.
const DefaultCommand = "ogr2ogr"

// ErrUnavailable is wrapped by errors returned when ogr2ogr cannot be found.
var ErrUnavailable = errors.New("ogr2ogr is not available")

// Runner invokes ogr2ogr.
type Runner struct {
	Path    string
	Timeout time.Duration
	Logger  zerolog.Logger
}

// NewRunner returns a runner for the given executable path.
func NewRunner(path string, timeout time.Duration, logger zerolog.Logger) *Runner {
	if path == "" {
		path = DefaultCommand
	}
	return &Runner{Path: path, Timeout: timeout, Logger: logger}
}

// Available reports whether the executable can be resolved.
func (r *Runner) Available() bool {
	_, err := exec.LookPath(r.command())
	return err == nil
}

func (r *Runner) command() string {
	if r == nil || r.Path == "" {
		return DefaultCommand
	}
	return r.Path
}

// Translate converts src into dst using the named output driver. The layer
// name is applied to the output when not empty.
func (r *Runner) Translate(ctx context.Context, driver, dst, src, layer string) error {
	args := []string{"-f", driver, dst, src}
	if layer != "" {
		args = append(args, "-nln", layer)
	}
	return r.Run(ctx, args...)
}

// Run executes ogr2ogr with args.
func (r *Runner) Run(ctx context.Context, args ...string) error {
	bin, err := exec.LookPath(r.command())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	r.Logger.Debug().
		Str("command", bin).
		Strs("args", args).
		Dur("duration", time.Since(start)).
		Msg("Ran ogr2ogr")
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("ogr2ogr failed: %w", err)
		}
		return fmt.Errorf("ogr2ogr failed: %w: %s", err, msg)
	}
	return nil
}
