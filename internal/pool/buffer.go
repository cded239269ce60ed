package pool

import (
	"sync"
)

const (
	// CopyBufferSize is the buffer used for a single streaming copy (32KB, as io.Copy).
	CopyBufferSize = 32 * 1024
	// PartBufferSize is the buffer used by ranged part workers (1MB).
	PartBufferSize = 1024 * 1024
)

// BufferPool manages reusable byte slices of two sizes.
type BufferPool struct {
	copy *sync.Pool
	part *sync.Pool
}

// NewBufferPool creates a new buffer pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{
		copy: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, CopyBufferSize)
				return &buf
			},
		},
		part: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, PartBufferSize)
				return &buf
			},
		},
	}
}

// GetBuffer returns a buffer with len >= size, suitable for io.CopyBuffer.
// Sizes above PartBufferSize are allocated and never pooled.
// The caller is responsible for calling PutBuffer.
func (bp *BufferPool) GetBuffer(size int) []byte {
	switch {
	case size <= CopyBufferSize:
		bufPtr := bp.copy.Get().(*[]byte)
		return (*bufPtr)[:CopyBufferSize]
	case size <= PartBufferSize:
		bufPtr := bp.part.Get().(*[]byte)
		return (*bufPtr)[:PartBufferSize]
	default:
		return make([]byte, size)
	}
}

// PutBuffer returns a buffer to the pool matching its capacity.
// The buffer should not be used after calling PutBuffer.
func (bp *BufferPool) PutBuffer(buf []byte) {
	switch cap(buf) {
	case CopyBufferSize:
		buf = buf[:CopyBufferSize]
		bp.copy.Put(&buf)
	case PartBufferSize:
		buf = buf[:PartBufferSize]
		bp.part.Put(&buf)
		// Anything else was allocated on demand and is left to the GC
	}
}

// Global buffer pool instance for use throughout the module.
var globalBufferPool = NewBufferPool()

// GetBuffer returns a buffer from the global pool for the specified size.
func GetBuffer(size int) []byte {
	return globalBufferPool.GetBuffer(size)
}

// PutBuffer returns a buffer to the global pool.
func PutBuffer(buf []byte) {
	globalBufferPool.PutBuffer(buf)
}
