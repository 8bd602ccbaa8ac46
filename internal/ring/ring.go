// Package ring implements a mirror-mapped circular byte buffer: a single
// shared-memory region mapped back to back several times so that a
// contiguous byte range can be read or written across the wrap boundary
// without ever copying.
package ring

import (
	"fmt"
	"os"
)

// Mirrors is the number of consecutive N-byte windows that alias the same
// backing pages. The reference implementation calls this COPY_COUNT and
// keeps it at 3 as a safety margin, even though 2 is enough to guarantee
// that no single token (bounded to at most N bytes) is ever split across
// a window it wasn't written into.
const Mirrors = 3

// Buffer is a fixed-size circular byte region of length N backed by a
// single anonymous shared-memory object, mapped Mirrors times so that
// addr[i] == addr[i mod N] for any i in [0, Mirrors*N).
//
// A Buffer is not safe for concurrent use and must be closed when no
// longer needed; it owns the underlying memfd and virtual address
// reservation.
type Buffer struct {
	length int
	fd     int
	mem    []byte
	file   *os.File // non-nil only on the !linux fallback path
}

// PageSize returns the system page size used to round buffer lengths up.
func PageSize() int {
	return os.Getpagesize()
}

// Create rounds wantedLength up to a page-size multiple N and returns a
// buffer exposing indexed access over [0, Mirrors*N).
func Create(wantedLength int) (*Buffer, error) {
	if wantedLength <= 0 {
		wantedLength = PageSize()
	}

	pageSize := PageSize()
	pages := wantedLength / pageSize
	if pages*pageSize < wantedLength {
		pages++
	}
	length := pages * pageSize

	return create(length)
}

// Len reports N, the length of a single window.
func (b *Buffer) Len() int {
	return b.length
}

// InRange reports whether i falls within [0, Mirrors*N), the set of
// indices that are safe to read or write through.
func (b *Buffer) InRange(i int) bool {
	return i >= 0 && i < Mirrors*b.length
}

// At returns the byte at index i. It panics if i is out of range; an
// out-of-range index is a programmer error, not a recoverable condition,
// matching the reference implementation's assertion-based contract.
func (b *Buffer) At(i int) byte {
	if !b.InRange(i) {
		panic(fmt.Sprintf("ring: index %d out of range [0, %d)", i, Mirrors*b.length))
	}
	return b.mem[i]
}

// Slice returns the byte range [start, end) as a view into the
// underlying mapping. The returned slice aliases the ring's memory and
// is only valid until the next write that overlaps it; it performs no
// copy, which is the entire point of the mirror mapping.
func (b *Buffer) Slice(start, end int) []byte {
	if start < 0 || end < start || end > Mirrors*b.length {
		panic(fmt.Sprintf("ring: slice [%d, %d) out of range", start, end))
	}
	return b.mem[start:end]
}

// WriteAt copies data into the ring starting at offset, which must
// satisfy InRange for both offset and offset+len(data)-1 (or data must
// be empty).
func (b *Buffer) WriteAt(offset int, data []byte) {
	if len(data) == 0 {
		return
	}
	if offset < 0 || offset+len(data) > Mirrors*b.length {
		panic(fmt.Sprintf("ring: write [%d, %d) out of range", offset, offset+len(data)))
	}
	copy(b.mem[offset:offset+len(data)], data)
}

// Close releases the ring's virtual address reservation and backing
// memfd. It is safe to call more than once.
func (b *Buffer) Close() error {
	return b.close()
}
