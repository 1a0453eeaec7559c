package optimize

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferPool(t *testing.T) {
	pool := NewBufferPool(64, 1024)

	buf := pool.Get()
	assert.Equal(t, 0, buf.Len())
	assert.GreaterOrEqual(t, buf.Cap(), 64)

	buf.WriteString("frame bytes")
	pool.Put(buf)

	again := pool.Get()
	assert.Equal(t, 0, again.Len(), "pooled buffers come back empty")
}

func TestBufferPool_DropsOversized(t *testing.T) {
	pool := NewBufferPool(8, 16)

	big := bytes.NewBuffer(make([]byte, 0, 4096))
	big.WriteString("x")
	pool.Put(big)

	buf := pool.Get()
	assert.Less(t, buf.Cap(), 4096)
}

func TestBufferPool_NilPut(t *testing.T) {
	assert.NotPanics(t, func() { NewBufferPool(8, 16).Put(nil) })
}
