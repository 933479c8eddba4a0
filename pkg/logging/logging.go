// Package logging installs the process-wide slog logger.
//
//	logging.Setup(cfg.LogLevel)
//
// Output goes to stderr through tint. Set NO_COLOR to disable ANSI colors.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Setup makes a stderr logger at the named level the slog default.
func Setup(level string) {
	SetupWithLevel(ParseLevel(level))
}

// SetupWithLevel is Setup with an already parsed level.
func SetupWithLevel(level slog.Level) {
	_, noColor := os.LookupEnv("NO_COLOR")
	slog.SetDefault(New(os.Stderr, level, noColor))
}

// New builds a tint logger writing to w.
func New(w io.Writer, level slog.Level, noColor bool) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		AddSource:  true,
		NoColor:    noColor,
	}))
}

// ParseLevel accepts debug, info, warn or error in any case.
// Anything else yields info.
func ParseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}
