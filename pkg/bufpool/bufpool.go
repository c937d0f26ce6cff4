// Package bufpool provides a tiered buffer pool for the receive path.
//
// Frame bodies arrive with a known size, so the transport borrows a slice
// at least that large, decodes out of it, and returns it. Three tiers
// cover the protocol's size distribution:
//
//   - small (256 B): find requests, empty-payload replies
//   - medium (4 KB): typical call payloads
//   - large (1 MB): the protocol's maximum message body
//
// Nothing on the wire can exceed the large tier, but oversized requests
// are still allocated directly rather than pooled so the pool never pins
// memory beyond the protocol bound.
//
// All operations are safe for concurrent use via sync.Pool.
package bufpool

import "sync"

// Buffer size classes.
const (
	SmallSize  = 256
	MediumSize = 4 << 10
	LargeSize  = 1 << 20
)

var (
	small  = sync.Pool{New: func() any { b := make([]byte, SmallSize); return &b }}
	medium = sync.Pool{New: func() any { b := make([]byte, MediumSize); return &b }}
	large  = sync.Pool{New: func() any { b := make([]byte, LargeSize); return &b }}
)

// Get returns a byte slice of exactly the requested length, backed by a
// pooled buffer whose capacity may be larger. Pair every Get with a Put.
func Get(size int) []byte {
	var ptr *[]byte
	switch {
	case size <= SmallSize:
		ptr = small.Get().(*[]byte)
	case size <= MediumSize:
		ptr = medium.Get().(*[]byte)
	case size <= LargeSize:
		ptr = large.Get().(*[]byte)
	default:
		return make([]byte, size)
	}
	return (*ptr)[:size]
}

// Put returns a buffer obtained from Get. Buffers that do not match a
// tier capacity (oversized direct allocations) are left to the GC.
func Put(buf []byte) {
	if buf == nil {
		return
	}
	full := buf[:cap(buf)]
	switch cap(buf) {
	case SmallSize:
		small.Put(&full)
	case MediumSize:
		medium.Put(&full)
	case LargeSize:
		large.Put(&full)
	}
}
