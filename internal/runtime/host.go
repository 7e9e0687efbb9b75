// Package runtime provides the host side of the pyxc runtime support
// library: the functions a program reaches through extern declarations
// and the print helpers the compiler calls for print statements.
package runtime

import (
	"bufio"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"time"
)

// Host holds the state the runtime functions share while a program runs:
// the buffered output stream, the random generator and the clock.
// It is safe for use by concurrent engines.
type Host struct {
	mu sync.Mutex

	out *bufio.Writer
	rng *rand.Rand

	// Now returns the current time. Tests replace it.
	Now func() time.Time
}

// NewHost returns a host writing to w with the generator seeded by seed.
func NewHost(w io.Writer, seed int64) *Host {
	if w == nil {
		w = io.Discard
	}
	return &Host{
		out: bufio.NewWriter(w),
		rng: newRand(uint64(seed)),
		Now: time.Now,
	}
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// WriteByte writes one byte of program output.
func (h *Host) WriteByte(c byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.out.WriteByte(c)
}

// WriteString writes program output.
func (h *Host) WriteString(s string) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.out.WriteString(s)
}

// Printf formats program output.
func (h *Host) Printf(format string, args ...any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintf(h.out, format, args...)
}

// Flush writes any buffered output to the underlying writer.
func (h *Host) Flush() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.out.Flush()
}

// Seed restarts the random sequence.
func (h *Host) Seed(seed uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rng = newRand(seed)
}

// Float64 returns a random number in [0, 1).
func (h *Host) Float64() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rng.Float64()
}
