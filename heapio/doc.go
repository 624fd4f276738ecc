// Package heapio hosts the one-way-growing memory primitive the allocator
// grows against. It is the "memory-layer shim that emulates brk": the
// allocator core never imports wazero or golang.org/x/sys directly, only
// the BreakPointer and Memory interfaces declared here.
package heapio
