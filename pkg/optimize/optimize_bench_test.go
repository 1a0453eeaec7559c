package optimize

import (
	"bytes"
	"testing"
)

var payload = bytes.Repeat([]byte{0xab}, 32*1024)

func BenchmarkBufferPool(b *testing.B) {
	pool := NewBufferPool(64*1024, 1<<20)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf := pool.Get()
		buf.Write(payload)
		pool.Put(buf)
	}
}

func BenchmarkBufferAllocation(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		var buf bytes.Buffer
		buf.Write(payload)
		_ = buf.Len()
	}
}
