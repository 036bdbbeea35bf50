// Package logging builds the operational zerolog logger. The log panel is
// the user-facing channel; this logger records step progress and errors
// that the build swallows.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Format controls the writer used when constructing a logger.
type Format string

const (
	// FormatConsole renders records as terse human-readable lines.
	FormatConsole Format = "console"
	// FormatJSON renders records as JSON.
	FormatJSON Format = "json"
)

// New constructs a logger writing to w. An empty level means info.
func New(format Format, level string, w io.Writer) (zerolog.Logger, error) {
	return newLogger(format, level, w, false)
}

// NewConsole is New with FormatConsole, without colors when noColor is set.
func NewConsole(w io.Writer, level string, noColor bool) (zerolog.Logger, error) {
	return newLogger(FormatConsole, level, w, noColor)
}

func newLogger(format Format, level string, w io.Writer, noColor bool) (zerolog.Logger, error) {
	if w == nil {
		panic("logging: writer must not be nil")
	}

	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	switch format {
	case FormatJSON:
		return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
	case FormatConsole, "":
		cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: noColor}
		return zerolog.New(cw).Level(lvl).With().Timestamp().Logger(), nil
	default:
		return zerolog.Nop(), fmt.Errorf("unsupported log format %q (supported: console, json)", format)
	}
}
