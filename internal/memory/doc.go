// Package memory implements a fixed-size-class pool allocator for node-based
// containers.
//
// A Pool keeps one LIFO free list per size class (multiples of Align up to
// MaxBlockBytes), a roaring bitmap of non-empty classes, and a bump cursor into the
// current chunk. Freed blocks are linked by Ref, a (chunk, offset) pair stored in the
// first bytes of the block, so no Go pointers live in pool memory. Chunks come from a
// SystemAllocator and are never returned.
//
// Typed access goes through Allocator[T]; Arrow builders can draw from a pool through
// ArrowAllocator. Pools are shared per (Align, MaxBlockBytes) pair through a Registry.
package memory
