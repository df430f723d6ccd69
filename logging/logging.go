// Package logging builds the leveled slog loggers the substrate's engines
// consume, including the optional size-rotated file sink.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// LevelFatal sits above slog's built-in levels; the five substrate levels
// order DEBUG < INFO < WARNING < ERROR < FATAL.
const LevelFatal = slog.LevelError + 4

var ErrUnknownLevel = errors.New("logging: unknown level")

// ParseLevel maps a configuration level name onto a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	case "FATAL":
		return LevelFatal, nil
	}
	return 0, errors.Wrap(ErrUnknownLevel, name)
}

// replaceLevel renders WARNING and FATAL the way the configuration spells
// them; slog would print "WARN" and "ERROR+4".
func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	switch {
	case level >= LevelFatal:
		a.Value = slog.StringValue("FATAL")
	case level >= slog.LevelWarn && level < slog.LevelError:
		a.Value = slog.StringValue("WARNING")
	}
	return a
}

// Options configures New.
type Options struct {
	// Level is one of DEBUG, INFO, WARNING, ERROR, FATAL. Empty means INFO.
	Level string
	// Console receives all log lines; nil means os.Stderr.
	Console io.Writer
	// File, when non-empty, adds a rotating file sink.
	File string
	// MaxFileSizeMB is the rotation threshold for the file sink; <= 0 means
	// no rotation.
	MaxFileSizeMB float64
	// Clock stamps rotated file names; nil means the real clock.
	Clock clock.Clock
}

// New builds a logger per opts. The returned closer flushes and closes the
// file sink; it is non-nil even when no file is configured.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level := slog.LevelInfo
	if opts.Level != "" {
		var err error
		if level, err = ParseLevel(opts.Level); err != nil {
			return nil, nil, err
		}
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	out := console
	closer := io.Closer(nopCloser{})

	if opts.File != "" {
		sink, err := OpenRotatingFile(opts.File, int64(opts.MaxFileSizeMB*1024*1024), opts.Clock)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening log file")
		}
		out = io.MultiWriter(console, sink)
		closer = sink
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevel,
	})

	return slog.New(handler), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
