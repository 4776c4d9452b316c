// Package logging configures the zerolog logger shared by every component.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// New returns a human-readable logger writing to w at the given level
// ("debug", "info", "warn", "error"). An unknown level falls back to info and
// is reported through the returned logger.
func New(w io.Writer, level string) zerolog.Logger {
	lvl, ok := parseLevel(level)
	logger := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime, NoColor: !isTerminal(w)}).
		Level(lvl).
		With().
		Timestamp().
		Logger()

	if !ok {
		reportUnknownLevel(logger, level)
	}
	return logger
}

// NewJSON returns a structured logger for log collectors.
func NewJSON(w io.Writer, level string) zerolog.Logger {
	lvl, ok := parseLevel(level)
	logger := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	if !ok {
		reportUnknownLevel(logger, level)
	}
	return logger
}

// parseLevel maps a configured level name to a zerolog level. Blank means
// info; ok is false only for a name zerolog does not know.
func parseLevel(level string) (zerolog.Level, bool) {
	name := strings.ToLower(strings.TrimSpace(level))
	if name == "" {
		return zerolog.InfoLevel, true
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.InfoLevel, false
	}
	return lvl, true
}

// reportUnknownLevel logs the rejected name under its own key, since "level"
// is zerolog's severity field.
func reportUnknownLevel(logger zerolog.Logger, level string) {
	logger.Warn().Str("requested_level", level).Msg("Unknown log level, using info")
}

// isTerminal reports whether w is a TTY, including Cygwin and MSYS terminals.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
