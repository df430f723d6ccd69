package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	testcases := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{input: "DEBUG", want: slog.LevelDebug},
		{input: "INFO", want: slog.LevelInfo},
		{input: "WARNING", want: slog.LevelWarn},
		{input: "ERROR", want: slog.LevelError},
		{input: "FATAL", want: LevelFatal},
		{input: "warning", want: slog.LevelWarn},
		{input: " info ", want: slog.LevelInfo},
		{input: "TRACE", wantErr: true},
	}
	for _, tc := range testcases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseLevel(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrUnknownLevel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLevelOrdering(t *testing.T) {
	assert.Less(t, slog.LevelDebug, slog.LevelInfo)
	assert.Less(t, slog.LevelInfo, slog.LevelWarn)
	assert.Less(t, slog.LevelWarn, slog.LevelError)
	assert.Less(t, slog.LevelError, LevelFatal)
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer

	logger, closer, err := New(Options{Level: "WARNING", Console: &buf})
	require.NoError(t, err)
	defer closer.Close()

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("visible")
	logger.Log(context.Background(), LevelFatal, "fatal line")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "level=WARNING")
	assert.Contains(t, out, "level=FATAL")
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, _, err := New(Options{Level: "LOUD"})
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

func TestNewWritesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	var console bytes.Buffer
	logger, closer, err := New(Options{Console: &console, File: path})
	require.NoError(t, err)

	logger.Info("to both sinks")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to both sinks")
	assert.Contains(t, console.String(), "to both sinks")
}

func TestRotatingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rotate.log")

	mock := clock.NewMock()
	sink, err := OpenRotatingFile(path, 64, mock)
	require.NoError(t, err)

	line := strings.Repeat("x", 40) + "\n"
	_, err = sink.Write([]byte(line))
	require.NoError(t, err)

	// Second write passes the 64-byte threshold and forces a rotation.
	_, err = sink.Write([]byte(line))
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	live, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, line, string(live))
}

func TestRotatingFileNoThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flat.log")

	sink, err := OpenRotatingFile(path, 0, nil)
	require.NoError(t, err)

	big := strings.Repeat("y", 8192)
	_, err = sink.Write([]byte(big))
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
