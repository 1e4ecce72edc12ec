package duffel

import "sync"

// Size-tiered buffer pools for efficient memory reuse.
// Buffers are pooled in size classes: 256, 1024, 4096, 16384, 65536 bytes.
var bufferPools = [5]sync.Pool{
	{New: func() any { return make([]byte, 0, 256) }},
	{New: func() any { return make([]byte, 0, 1024) }},
	{New: func() any { return make([]byte, 0, 4096) }},
	{New: func() any { return make([]byte, 0, 16384) }},
	{New: func() any { return make([]byte, 0, 65536) }},
}

// poolIndex returns the pool index for a given size hint.
func poolIndex(size int) int {
	switch {
	case size <= 256:
		return 0
	case size <= 1024:
		return 1
	case size <= 4096:
		return 2
	case size <= 16384:
		return 3
	case size <= 65536:
		return 4
	default:
		return -1 // Too large for pooling
	}
}

// getBuffer gets a zero-length buffer with at least the given capacity
// from the appropriate size-tiered pool.
func getBuffer(sizeHint int) []byte {
	idx := poolIndex(sizeHint)
	if idx < 0 {
		return make([]byte, 0, sizeHint)
	}
	return bufferPools[idx].Get().([]byte)[:0]
}

// putBuffer returns a buffer to the appropriate size-tiered pool.
// Buffers larger than 64KB are left for the GC.
func putBuffer(buf []byte) {
	idx := poolIndex(cap(buf))
	if idx >= 0 && cap(buf) >= 256 {
		bufferPools[idx].Put(buf[:0])
	}
}

// sinkPool provides pooled BufferSinks for Marshal.
var sinkPool = sync.Pool{
	New: func() any { return NewBufferSink(256) },
}

// GetBufferSink gets a BufferSink from the pool.
// Return it with PutBufferSink when done.
func GetBufferSink() *BufferSink {
	s := sinkPool.Get().(*BufferSink)
	s.Reset()
	return s
}

// PutBufferSink returns a BufferSink to the pool.
// The sink must not be used after calling this.
func PutBufferSink(s *BufferSink) {
	if s == nil || cap(s.buf) > 64*1024 {
		return // Don't pool large buffers to avoid memory bloat
	}
	sinkPool.Put(s)
}
