// Package bytebuf provides a growable octet buffer with small-buffer
// optimization. Small contents live in an inline array; larger contents move
// to heap storage drawn from a process-wide chunk pool so that releasing a
// buffer recycles its backing array instead of leaving it to the collector.
package bytebuf

import "github.com/pkg/errors"

// InlineSize is the largest capacity served by the inline array.
const InlineSize = 4096

var ErrRange = errors.New("index out of range")

// Buffer is a growable byte container.
//
// A Buffer must not be copied after first use: while the contents fit the
// inline array, the data slice aliases it.
type Buffer struct {
	noCopy noCopy

	data   []byte
	inline [InlineSize]byte
	pool   *ChunkPool
	heap   bool // data is pool-backed
}

// New returns an empty buffer backed by the default pool.
func New() *Buffer {
	b := &Buffer{pool: defaultPool}
	b.data = b.inline[:0]
	return b
}

// NewWithPool returns an empty buffer drawing heap storage from pool.
func NewWithPool(pool *ChunkPool) *Buffer {
	b := &Buffer{pool: pool}
	b.data = b.inline[:0]
	return b
}

func (b *Buffer) lazyInit() {
	if b.data == nil && !b.heap {
		b.data = b.inline[:0]
	}
	if b.pool == nil {
		b.pool = defaultPool
	}
}

func (b *Buffer) Len() int { return len(b.data) }
func (b *Buffer) Cap() int {
	b.lazyInit()
	return cap(b.data)
}

// Bytes returns the live contents. The slice is only valid until the next
// mutating call.
func (b *Buffer) Bytes() []byte { return b.data }

func (b *Buffer) String() string { return string(b.data) }

// At returns the byte at index i.
func (b *Buffer) At(i int) (byte, error) {
	if i < 0 || i >= len(b.data) {
		return 0, ErrRange
	}
	return b.data[i], nil
}

// Reserve grows capacity to at least n without changing the length.
func (b *Buffer) Reserve(n int) {
	b.lazyInit()
	if n <= cap(b.data) {
		return
	}
	b.grow(n)
}

// grow moves the contents into storage with capacity >= want. Doubling keeps
// amortized appends cheap; the pool rounds up to whole chunks anyway.
func (b *Buffer) grow(want int) {
	newCap := cap(b.data) * 2
	if newCap < want {
		newCap = want
	}

	if newCap <= InlineSize {
		return // inline array already covers it
	}

	fresh := b.pool.Get(newCap)
	fresh = fresh[:len(b.data)]
	copy(fresh, b.data)

	if b.heap {
		b.pool.Put(b.data[:0])
	}
	b.data = fresh
	b.heap = true
}

// PushBack appends single bytes.
func (b *Buffer) PushBack(bs ...byte) {
	b.Append(bs)
}

// Append appends a byte run.
func (b *Buffer) Append(data []byte) {
	b.lazyInit()
	if need := len(b.data) + len(data); need > cap(b.data) {
		b.grow(need)
	}
	b.data = append(b.data, data...)
}

// Insert places data before position pos.
func (b *Buffer) Insert(pos int, data []byte) error {
	b.lazyInit()
	if pos < 0 || pos > len(b.data) {
		return ErrRange
	}
	if need := len(b.data) + len(data); need > cap(b.data) {
		b.grow(need)
	}
	b.data = b.data[:len(b.data)+len(data)]
	copy(b.data[pos+len(data):], b.data[pos:])
	copy(b.data[pos:], data)
	return nil
}

// Erase removes the half-open range [first, last).
func (b *Buffer) Erase(first, last int) error {
	if first < 0 || last > len(b.data) || first > last {
		return ErrRange
	}
	b.data = append(b.data[:first], b.data[last:]...)
	return nil
}

// Resize sets the length to n, zero-filling any extension.
func (b *Buffer) Resize(n int) {
	b.lazyInit()
	if n <= len(b.data) {
		b.data = b.data[:n]
		return
	}
	if n > cap(b.data) {
		b.grow(n)
	}
	old := len(b.data)
	b.data = b.data[:n]
	clear(b.data[old:])
}

// Clear empties the buffer, keeping its storage.
func (b *Buffer) Clear() {
	b.lazyInit()
	b.data = b.data[:0]
}

// Release empties the buffer and returns pool-backed storage to the pool.
func (b *Buffer) Release() {
	b.lazyInit()
	if b.heap {
		b.pool.Put(b.data[:0])
		b.heap = false
	}
	b.data = b.inline[:0]
}

// noCopy triggers `go vet`'s copylocks check when a Buffer is copied by value.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
