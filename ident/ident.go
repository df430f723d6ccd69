// Package ident generates the random identifier strings that name sessions.
package ident

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mathrand "math/rand/v2"
	"sync"
)

var (
	mu  sync.Mutex
	rng *mathrand.ChaCha8
)

func init() {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		// Entropy exhaustion on a modern OS means the process is beyond
		// saving anyway.
		panic(fmt.Sprintf("ident: seeding prng: %v", err))
	}
	rng = mathrand.NewChaCha8(seed)
}

// New returns a version-4 UUID string of the form
// xxxxxxxx-xxxx-4xxx-yxxx-xxxxxxxxxxxx with y in {8, 9, a, b}. The generator
// is seeded once from system entropy and is safe for concurrent use.
func New() string {
	var b [16]byte

	mu.Lock()
	binary.LittleEndian.PutUint64(b[0:8], rng.Uint64())
	binary.LittleEndian.PutUint64(b[8:16], rng.Uint64())
	mu.Unlock()

	b[6] = (b[6] & 0x0F) | 0x40 // version 4
	b[8] = (b[8] & 0x3F) | 0x80 // variant 1

	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
