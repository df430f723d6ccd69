package logging

import (
	"os"
	"strconv"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// RotatingFile is a log sink that renames the live file aside and reopens it
// once its size passes the configured threshold.
type RotatingFile struct {
	path  string
	max   int64 // 0 disables rotation
	clock clock.Clock

	mu   sync.Mutex
	file *os.File
	size int64
}

// OpenRotatingFile opens (or creates) the sink at path. maxSize <= 0 turns
// rotation off. A nil clk uses the real clock.
func OpenRotatingFile(path string, maxSize int64, clk clock.Clock) (*RotatingFile, error) {
	if clk == nil {
		clk = clock.New()
	}

	r := &RotatingFile{path: path, max: maxSize, clock: clk}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RotatingFile) open() error {
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "opening sink")
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return errors.Wrap(err, "sizing sink")
	}

	r.file = f
	r.size = info.Size()
	return nil
}

func (r *RotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.max > 0 && r.size+int64(len(p)) > r.max && r.size > 0 {
		if err := r.rotateLocked(); err != nil {
			return 0, err
		}
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, errors.Wrap(err, "writing log line")
}

// rotateLocked renames the live file to a timestamped sibling and starts a
// fresh one. When a rotation target for the same second already exists, the
// file is renamed to the first free numbered sibling (".1", ".2", ...).
func (r *RotatingFile) rotateLocked() error {
	if err := r.file.Close(); err != nil {
		return errors.Wrap(err, "closing sink before rotation")
	}

	stamp := r.clock.Now().Format("20060102-150405")
	target := r.path + "." + stamp
	for n := 1; ; n++ {
		if _, err := os.Stat(target); errors.Is(err, os.ErrNotExist) {
			break
		}
		target = r.path + "." + stamp + "." + strconv.Itoa(n)
	}

	if err := os.Rename(r.path, target); err != nil {
		return errors.Wrap(err, "renaming rotated log")
	}

	return r.open()
}

func (r *RotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}
