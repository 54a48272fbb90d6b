// Package logging builds the zerolog loggers used by the aibom binaries.
//
// Logs go to stderr so stdout stays machine-readable. An optional rotating
// file receives the same events. Private key material never reaches either
// sink: a filtering writer redacts PEM private key blocks.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	Level string
	JSON  bool
	// Console is the console sink; nil means os.Stderr.
	Console io.Writer

	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger and a closer for its file sink. An unknown level
// falls back to info.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	if !opts.JSON {
		console = zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339, NoColor: true}
	}
	console = NewFilteringWriter(console)

	var writer io.Writer = console
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o750); err != nil {
			return zerolog.Nop(), nil, err
		}
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		}
		writer = zerolog.MultiLevelWriter(console, NewFilteringWriter(lj))
		closer = lj
	}

	logger := zerolog.New(writer).Level(level).Hook(NewSensitiveDataHook()).With().Timestamp().Logger()
	return logger, closer, nil
}
