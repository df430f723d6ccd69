// Package config loads flat key/value configuration files.
//
// The format is one `key = value` pair per line; `#` starts a comment and
// blank lines are skipped. Duplicate keys are last-write-wins. Typed getters
// never fail: a missing or unparsable value falls back to the caller's
// default, so every consumer states its own defaults at the use site.
package config

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Keys every server and client understands.
const (
	KeyServerHost  = "server_host"
	KeyServerPort  = "server_port"
	KeyThreadCount = "thread_count"
	KeyLogLevel    = "log_level"
	KeyLogFile     = "log_file"
	KeyMaxLogSize  = "max_log_file_size_in_mb"
)

type Config struct {
	values map[string]string
}

// Load reads a configuration file. A missing file is an error; startup code
// typically treats that as fatal.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening config file")
	}
	defer f.Close()

	c, err := Parse(f)
	return c, errors.Wrapf(err, "parsing %s", path)
}

// Parse reads key/value pairs from r.
func Parse(r io.Reader) (*Config, error) {
	c := &Config{values: make(map[string]string)}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, errors.Errorf("line %d: missing '=' separator", lineNo)
		}

		key = strings.TrimSpace(key)
		if key == "" {
			return nil, errors.Errorf("line %d: empty key", lineNo)
		}
		c.values[key] = strings.TrimSpace(value)
	}

	return c, errors.Wrap(scanner.Err(), "reading config")
}

// Has reports whether key is present.
func (c *Config) Has(key string) bool {
	_, ok := c.values[key]
	return ok
}

func (c *Config) String(key, def string) string {
	if v, ok := c.values[key]; ok {
		return v
	}
	return def
}

func (c *Config) Int(key string, def int) int {
	v, ok := c.values[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (c *Config) Float(key string, def float64) float64 {
	v, ok := c.values[key]
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func (c *Config) Bool(key string, def bool) bool {
	v, ok := c.values[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func (c *Config) Duration(key string, def time.Duration) time.Duration {
	v, ok := c.values[key]
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
