package optimize

import (
	"bytes"
	"sync"
)

// BufferPool reuses bytes.Buffers for per-frame encoding.
type BufferPool struct {
	pool    sync.Pool
	maxSize int
}

// NewBufferPool creates a pool whose buffers start with initialSize capacity.
// Buffers that grew beyond maxSize are dropped instead of pooled so one huge
// frame does not pin memory.
func NewBufferPool(initialSize, maxSize int) *BufferPool {
	return &BufferPool{
		maxSize: maxSize,
		pool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, initialSize))
			},
		},
	}
}

// Get returns an empty buffer.
func (p *BufferPool) Get() *bytes.Buffer {
	return p.pool.Get().(*bytes.Buffer)
}

// Put resets b and returns it to the pool.
func (p *BufferPool) Put(b *bytes.Buffer) {
	if b == nil || (p.maxSize > 0 && b.Cap() > p.maxSize) {
		return
	}
	b.Reset()
	p.pool.Put(b)
}
