// Package sysutil holds process-level helpers shared by the binary: global
// log level, the root logger and small string utilities.
package sysutil

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetLogLevel configures the global zerolog level from a string. Any name
// zerolog knows is accepted case-insensitively, plus the "warning" alias.
// Blank or unknown values select info.
func SetLogLevel(lvl string) {
	name := strings.ToLower(strings.TrimSpace(lvl))
	if name == "warning" {
		name = "warn"
	}
	l, err := zerolog.ParseLevel(name)
	if err != nil || l == zerolog.NoLevel {
		l = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(l)
}

// NewLogger builds the root logger for service, installs it as the global
// zerolog logger and returns it. pretty selects console output for local runs.
func NewLogger(service, level string, pretty bool) zerolog.Logger {
	return newLogger(os.Stdout, service, level, pretty)
}

func newLogger(w io.Writer, service, level string, pretty bool) zerolog.Logger {
	SetLogLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	l := zerolog.New(w).With().Timestamp().Str("service", FirstNonEmpty(service, "formguard")).Logger()
	log.Logger = l
	return l
}

// FirstNonEmpty returns the first value that is not blank, or "".
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
