// Package logger configures the global zerolog logger from command-line
// options.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is a go-flags option group.
type Logger struct {
	Level   string `long:"log-level"    env:"LOG_LEVEL"    description:"Log level" choice:"trace" choice:"debug" choice:"info" choice:"warn" choice:"error" default:"info"`
	Format  string `long:"log-format"   env:"LOG_FORMAT"   description:"Log output format" choice:"console" choice:"json" default:"console"`
	NoColor bool   `long:"log-no-color" env:"LOG_NO_COLOR" description:"Disable colored console output"`
}

// Setup applies the options to the global logger.
func (l Logger) Setup() {
	l.SetupWriter(os.Stderr)
}

// SetupWriter applies the options to the global logger writing to w.
func (l Logger) SetupWriter(w io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(l.level())

	var out io.Writer = w
	if strings.ToLower(l.Format) != "json" {
		out = zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    l.NoColor,
			TimeFormat: time.DateTime,
		}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

func (l Logger) level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(l.Level))
	if err != nil || l.Level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
