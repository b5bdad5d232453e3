// Package container provides node-based containers whose nodes come from a
// pluggable allocator, so the same list can run over a memory.Pool or the Go heap.
package container

import (
	"fmt"

	"github.com/23skdu/nodepool/internal/memory"
)

const none = -1

// NodeAllocator hands out nodes one at a time. memory.Allocator satisfies it.
type NodeAllocator[N any] interface {
	Allocate(count int) ([]N, error)
	Deallocate(s []N, count int)
}

// Node is the list element as stored in allocator memory. Links are directory
// indexes rather than pointers so pool-backed nodes hold no Go pointers.
type Node[T any] struct {
	prev  int
	next  int
	Value T
}

// HeapNodes allocates nodes with make and leaves freeing to the garbage collector.
type HeapNodes[N any] struct{}

func (HeapNodes[N]) Allocate(count int) ([]N, error) {
	if count == 0 {
		return nil, nil
	}
	return make([]N, count), nil
}

func (HeapNodes[N]) Deallocate([]N, int) {}

// List is a doubly linked list. It is not safe for concurrent use.
type List[T any] struct {
	alloc NodeAllocator[Node[T]]

	// dir maps a node index to the single-element slice the allocator returned.
	dir      [][]Node[T]
	freeDirs []int

	head int
	tail int
	len  int
}

// New returns an empty list drawing nodes from alloc.
func New[T any](alloc NodeAllocator[Node[T]]) *List[T] {
	return &List[T]{alloc: alloc, head: none, tail: none}
}

// NewHeap returns a list whose nodes live on the Go heap.
func NewHeap[T any]() *List[T] {
	return New[T](HeapNodes[Node[T]]{})
}

// NewPooled returns a list whose nodes come from pool. T must be pointer-free.
func NewPooled[T any](pool *memory.Pool) (*List[T], error) {
	alloc, err := memory.NewAllocator[Node[T]](pool)
	if err != nil {
		return nil, fmt.Errorf("list node allocator: %w", err)
	}
	return New[T](alloc), nil
}

// Len returns the number of elements.
func (l *List[T]) Len() int { return l.len }

func (l *List[T]) node(i int) *Node[T] {
	return &l.dir[i][0]
}

func (l *List[T]) newNode(v T) (int, error) {
	s, err := l.alloc.Allocate(1)
	if err != nil {
		return none, err
	}
	s[0] = Node[T]{prev: none, next: none, Value: v}

	if n := len(l.freeDirs); n > 0 {
		i := l.freeDirs[n-1]
		l.freeDirs = l.freeDirs[:n-1]
		l.dir[i] = s
		return i, nil
	}
	l.dir = append(l.dir, s)
	return len(l.dir) - 1, nil
}

func (l *List[T]) release(i int) T {
	s := l.dir[i]
	v := s[0].Value
	l.dir[i] = nil
	l.freeDirs = append(l.freeDirs, i)
	l.alloc.Deallocate(s, 1)
	return v
}

// PushBack appends v. On allocation failure the list is unchanged.
func (l *List[T]) PushBack(v T) error {
	i, err := l.newNode(v)
	if err != nil {
		return err
	}
	n := l.node(i)
	n.prev = l.tail
	if l.tail != none {
		l.node(l.tail).next = i
	} else {
		l.head = i
	}
	l.tail = i
	l.len++
	return nil
}

// PushFront prepends v. On allocation failure the list is unchanged.
func (l *List[T]) PushFront(v T) error {
	i, err := l.newNode(v)
	if err != nil {
		return err
	}
	n := l.node(i)
	n.next = l.head
	if l.head != none {
		l.node(l.head).prev = i
	} else {
		l.tail = i
	}
	l.head = i
	l.len++
	return nil
}

// PopFront removes and returns the first element.
func (l *List[T]) PopFront() (T, bool) {
	if l.head == none {
		var zero T
		return zero, false
	}
	i := l.head
	l.head = l.node(i).next
	if l.head != none {
		l.node(l.head).prev = none
	} else {
		l.tail = none
	}
	l.len--
	return l.release(i), true
}

// PopBack removes and returns the last element.
func (l *List[T]) PopBack() (T, bool) {
	if l.tail == none {
		var zero T
		return zero, false
	}
	i := l.tail
	l.tail = l.node(i).prev
	if l.tail != none {
		l.node(l.tail).next = none
	} else {
		l.head = none
	}
	l.len--
	return l.release(i), true
}

// Front returns the first element without removing it.
func (l *List[T]) Front() (T, bool) {
	if l.head == none {
		var zero T
		return zero, false
	}
	return l.node(l.head).Value, true
}

// Back returns the last element without removing it.
func (l *List[T]) Back() (T, bool) {
	if l.tail == none {
		var zero T
		return zero, false
	}
	return l.node(l.tail).Value, true
}

// Each calls fn for every element front to back until fn returns false.
func (l *List[T]) Each(fn func(T) bool) {
	for i := l.head; i != none; i = l.node(i).next {
		if !fn(l.node(i).Value) {
			return
		}
	}
}

// Clear removes every element, returning all nodes to the allocator.
func (l *List[T]) Clear() {
	for i := l.head; i != none; {
		next := l.node(i).next
		l.release(i)
		i = next
	}
	l.dir = l.dir[:0]
	l.freeDirs = l.freeDirs[:0]
	l.head, l.tail, l.len = none, none, 0
}
