package memory

import (
	"fmt"
	"math"
	"reflect"
	"unsafe"
)

// PoolBacked is implemented by every typed allocator so allocators of different
// element types can be compared.
type PoolBacked interface {
	Pool() *Pool
}

// Allocator hands out []T views over pool blocks. T must not contain Go pointers:
// pool memory is plain bytes the garbage collector does not scan.
//
// Allocator is a small value; copies share the same pool.
type Allocator[T any] struct {
	pool     *Pool
	elemSize int
}

// NewAllocator returns an allocator of T over pool.
func NewAllocator[T any](pool *Pool) (Allocator[T], error) {
	var zero T
	t := reflect.TypeOf(&zero).Elem()
	switch {
	case pool == nil:
		return Allocator[T]{}, fmt.Errorf("%w: nil pool", ErrInvalidConfig)
	case t.Size() == 0:
		return Allocator[T]{}, fmt.Errorf("%w: %s", ErrZeroSizeElement, t)
	case hasPointers(t):
		return Allocator[T]{}, fmt.Errorf("%w: %s", ErrPointerElement, t)
	}
	return Allocator[T]{pool: pool, elemSize: int(t.Size())}, nil
}

// SharedAllocator returns an allocator of T over the DefaultRegistry pool for cfg.
func SharedAllocator[T any](cfg Config) (Allocator[T], error) {
	pool, err := Shared(cfg)
	if err != nil {
		return Allocator[T]{}, err
	}
	return NewAllocator[T](pool)
}

// Rebind returns an allocator of U sharing a's pool.
func Rebind[U, T any](a Allocator[T]) (Allocator[U], error) {
	return NewAllocator[U](a.pool)
}

// Allocate returns a slice of count elements. Contents are not zeroed.
// A count whose byte size would overflow int fails with ErrOutOfMemory before any
// memory is requested.
func (a Allocator[T]) Allocate(count int) ([]T, error) {
	if count == 0 {
		return nil, nil
	}
	if count < 0 || count > a.MaxSize() {
		return nil, outOfMemory("allocate", a.pool.Label(), count,
			fmt.Errorf("%d elements of %d bytes exceeds max size %d", count, a.elemSize, a.MaxSize()))
	}
	b, err := a.pool.Allocate(count * a.elemSize)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), count), nil
}

// Deallocate returns s, which must come from Allocate(count) on an equal allocator.
func (a Allocator[T]) Deallocate(s []T, count int) {
	if s == nil || count == 0 {
		return
	}
	n := count * a.elemSize
	a.pool.Deallocate(unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), n), n)
}

// MaxSize is the largest count whose byte size is representable.
func (a Allocator[T]) MaxSize() int {
	return math.MaxInt / a.elemSize
}

// ElemSize returns sizeof(T).
func (a Allocator[T]) ElemSize() int {
	return a.elemSize
}

// Pool returns the shared pool behind the allocator.
func (a Allocator[T]) Pool() *Pool {
	return a.pool
}

// Equal reports whether memory from a may be freed through other and vice versa,
// which holds exactly when both draw from the same pool.
func (a Allocator[T]) Equal(other PoolBacked) bool {
	return other != nil && a.pool != nil && a.pool == other.Pool()
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Chan, reflect.Func,
		reflect.Interface, reflect.Slice, reflect.String:
		return true
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
	}
	return false
}
