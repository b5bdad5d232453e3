package memory

import (
	"encoding/binary"
	"fmt"
	"sort"
	"unsafe"
)

const refSize = 8

// Ref addresses a pool block as (chunk index << 32) | byte offset within the chunk.
type Ref uint64

// nilRef terminates free lists. No chunk is large enough to reach its offset.
const nilRef Ref = ^Ref(0)

func makeRef(chunk, offset int) Ref {
	return Ref(uint64(chunk)<<32 | uint64(uint32(offset)))
}

// Chunk returns the index of the chunk holding the block.
func (r Ref) Chunk() int { return int(uint64(r) >> 32) }

// Offset returns the byte offset of the block within its chunk.
func (r Ref) Offset() int { return int(uint64(r) & 0xFFFFFFFF) }

// IsNil reports whether r is the list terminator.
func (r Ref) IsNil() bool { return r == nilRef }

// advance returns the reference n bytes further into the same chunk.
func (r Ref) advance(n int) Ref {
	return makeRef(r.Chunk(), r.Offset()+n)
}

func (r Ref) String() string {
	if r.IsNil() {
		return "nil"
	}
	return fmt.Sprintf("%d:%d", r.Chunk(), r.Offset())
}

type chunk struct {
	buf  []byte
	base uintptr
}

// chunkSource carves fixed-size chunks obtained from the system allocator by bump
// allocation. Chunks are append-only and never released. Not safe for concurrent
// use; the pool lock covers it.
type chunkSource struct {
	size   int
	system SystemAllocator

	chunks []chunk
	// byBase holds chunk indexes ordered by base address for locate.
	byBase []int

	cur int // current chunk, -1 before the first acquisition
	pos int
	end int
}

func newChunkSource(size int, system SystemAllocator) *chunkSource {
	return &chunkSource{
		size:   size,
		system: system,
		cur:    -1,
	}
}

// bumpAllocate advances the cursor of the current chunk by n bytes.
func (s *chunkSource) bumpAllocate(n int) (Ref, bool) {
	if s.cur < 0 || s.end-s.pos < n {
		return nilRef, false
	}
	ref := makeRef(s.cur, s.pos)
	s.pos += n
	return ref, true
}

// acquireNewChunk makes a fresh chunk current and bump-allocates n bytes from it.
// The old chunk's tail is handed to recycle so it is never wasted. On failure
// nothing is linked and no state changes.
func (s *chunkSource) acquireNewChunk(n int, recycle func(ref Ref, bytes int)) (Ref, int, error) {
	buf, err := s.system.Allocate(s.size)
	if err != nil {
		return nilRef, 0, err
	}
	if len(buf) < s.size {
		s.system.Free(buf)
		return nilRef, 0, fmt.Errorf("%w: system allocator returned %d of %d bytes", ErrOutOfMemory, len(buf), s.size)
	}

	leftover := 0
	if s.cur >= 0 && s.end > s.pos {
		leftover = s.end - s.pos
		recycle(makeRef(s.cur, s.pos), leftover)
	}

	s.link(buf[:s.size])
	s.cur = len(s.chunks) - 1
	s.pos = n
	s.end = s.size
	return makeRef(s.cur, 0), leftover, nil
}

func (s *chunkSource) link(buf []byte) {
	c := chunk{buf: buf, base: sliceBase(buf)}
	s.chunks = append(s.chunks, c)
	idx := len(s.chunks) - 1

	at := sort.Search(len(s.byBase), func(i int) bool {
		return s.chunks[s.byBase[i]].base > c.base
	})
	s.byBase = append(s.byBase, 0)
	copy(s.byBase[at+1:], s.byBase[at:])
	s.byBase[at] = idx
}

// bytes returns the n-byte block at ref with its capacity clamped to n.
func (s *chunkSource) bytes(ref Ref, n int) []byte {
	off := ref.Offset()
	return s.chunks[ref.Chunk()].buf[off : off+n : off+n]
}

// locate maps a slice handed out by the pool back to its Ref. This is the only
// place the pool reasons about addresses.
func (s *chunkSource) locate(b []byte) (Ref, bool) {
	if cap(b) == 0 || len(s.byBase) == 0 {
		return nilRef, false
	}
	addr := sliceBase(b)
	i := sort.Search(len(s.byBase), func(i int) bool {
		return s.chunks[s.byBase[i]].base > addr
	}) - 1
	if i < 0 {
		return nilRef, false
	}
	idx := s.byBase[i]
	off := addr - s.chunks[idx].base
	if off >= uintptr(s.size) {
		return nilRef, false
	}
	return makeRef(idx, int(off)), true
}

func (s *chunkSource) next(ref Ref) Ref {
	off := ref.Offset()
	return Ref(binary.LittleEndian.Uint64(s.chunks[ref.Chunk()].buf[off : off+refSize]))
}

func (s *chunkSource) setNext(ref, next Ref) {
	off := ref.Offset()
	binary.LittleEndian.PutUint64(s.chunks[ref.Chunk()].buf[off:off+refSize], uint64(next))
}

func (s *chunkSource) chunkCount() int {
	return len(s.chunks)
}

// remaining returns the unallocated bytes of the current chunk.
func (s *chunkSource) remaining() int {
	if s.cur < 0 {
		return 0
	}
	return s.end - s.pos
}

func sliceBase(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}
