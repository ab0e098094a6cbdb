// Package pool recycles the buffers pages and live renders are written into.
package pool

import (
	"bytes"
	"sync"
)

// MaxPooledBuffer is the largest buffer capacity returned to the pool.
const MaxPooledBuffer = 64 * 1024

var buffers = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

// GetBuffer retrieves an empty buffer.
func GetBuffer() *bytes.Buffer {
	buf := buffers.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns buf to the pool. Oversized buffers are dropped.
func PutBuffer(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > MaxPooledBuffer {
		return
	}
	buffers.Put(buf)
}
