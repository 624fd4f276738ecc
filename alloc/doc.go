// Package alloc implements a segregated-free-list, boundary-tag dynamic
// memory allocator over a single contiguous heap grown via a one-way
// break-pointer primitive (package heapio). It provides the three
// classical operations, Allocate, Free, and Reallocate, plus heap-bound
// inspection, matching the Allocator interface the validator package is
// written against.
//
// The allocator is single-threaded and synchronous: a *Heap is not safe
// for concurrent use, though independent *Heap values may be driven from
// separate goroutines without interference.
package alloc
