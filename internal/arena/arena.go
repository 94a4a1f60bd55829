// Package arena implements a bump allocator and fixed-slot object pool —
// hot-path allocation primitives for the matching engine's per-tick scratch
// memory. Go's garbage collector makes manual memory management
// unnecessary for correctness, but avoiding per-event heap churn on the
// hot path still matters, so these are implemented as byte-slice bump
// allocation and a generic fixed-capacity free list rather than a literal
// translation of a C++ placement-new pattern.
package arena

import (
	"lobengine/internal/errs"
)

// DefaultChunkSize is the default chunk size for a new Arena, matching
// the 64 KiB default.
const DefaultChunkSize = 64 * 1024

// CacheLineSize is the cache-line width in bytes. Arena does not pad or
// align its chunks to it.
const CacheLineSize = 64

// Arena is a bump allocator over chunks of bytes. Not thread-safe —
// intended for one arena per matching thread.
type Arena struct {
	chunkSize        int
	chunks           [][]byte
	largeAllocations [][]byte
	offset           int // offset into the current (last) chunk
}

// New creates an Arena with the given chunk size. A chunkSize <= 0 uses
// DefaultChunkSize.
func New(chunkSize int) *Arena {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	a := &Arena{chunkSize: chunkSize}
	a.chunks = append(a.chunks, make([]byte, chunkSize))
	return a
}

func alignUp(offset, align int) int {
	if align <= 1 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// Allocate returns a size-byte slice aligned to align, bump-allocating from
// the current chunk, rolling to a new chunk, or — for allocations larger
// than a full chunk — satisfying the request from a dedicated large
// allocation. Returns errs.ErrAllocatorExhausted only if size is negative,
// which cannot happen via normal callers but guards against misuse.
func (a *Arena) Allocate(size, align int) ([]byte, error) {
	if size < 0 {
		return nil, errs.ErrAllocatorExhausted
	}
	if size == 0 {
		return nil, nil
	}
	if align <= 0 {
		align = 1
	}

	current := a.chunks[len(a.chunks)-1]
	start := alignUp(a.offset, align)
	end := start + size

	if end > len(current) {
		if size > a.chunkSize {
			buf := make([]byte, size)
			a.largeAllocations = append(a.largeAllocations, buf)
			return buf, nil
		}
		a.chunks = append(a.chunks, make([]byte, a.chunkSize))
		a.offset = 0
		return a.Allocate(size, align)
	}

	a.offset = end
	return current[start:end:end], nil
}

// Reset frees all chunks but the first and all large allocations in one
// pass reset() semantics.
func (a *Arena) Reset() {
	first := a.chunks[0]
	for i := range first {
		first[i] = 0
	}
	a.chunks = a.chunks[:1]
	a.largeAllocations = a.largeAllocations[:0]
	a.offset = 0
}

// ChunkCount returns the number of chunks currently held (>= 1).
func (a *Arena) ChunkCount() int { return len(a.chunks) }

// LargeAllocationCount returns the number of allocations that spilled out
// of ordinary chunks because they exceeded chunk size.
func (a *Arena) LargeAllocationCount() int { return len(a.largeAllocations) }

// BytesReserved returns the total bytes backing the arena's chunks and
// large allocations, i.e. its current memory footprint.
func (a *Arena) BytesReserved() int {
	total := len(a.chunks) * a.chunkSize
	for _, la := range a.largeAllocations {
		total += len(la)
	}
	return total
}
