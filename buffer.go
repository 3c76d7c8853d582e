package bsplice

import "bytes"

// Buffer is one piece of response body travelling through the body stages. A buffer with Last set marks the end of
// the response stream; it may carry data or be empty.
type Buffer struct {
	Data  []byte
	Last  bool
	Flush bool // ask the output stage to push everything written so far to the client
}

// Text returns a buffer holding a copy of s.
func Text(s string) *Buffer {
	return &Buffer{Data: []byte(s)}
}

// LastBuffer returns an empty buffer that marks the end of the stream.
func LastBuffer() *Buffer {
	return &Buffer{Last: true}
}

// Chain is one delivery of body buffers, in stream order.
type Chain []*Buffer

// NewChain creates a delivery from the given buffers, nil buffers are skipped.
func NewChain(bufs ...*Buffer) Chain {
	c := make(Chain, 0, len(bufs))
	for _, b := range bufs {
		if b != nil {
			c = append(c, b)
		}
	}

	return c
}

// Empty reports whether the delivery holds no buffers at all. A delivery with a single empty Last buffer is not
// empty: it still carries the end-of-stream signal.
func (c Chain) Empty() bool { return len(c) == 0 }

// Size returns the number of data bytes in the delivery.
func (c Chain) Size() (n int) {
	for _, b := range c {
		n += len(b.Data)
	}

	return n
}

// HasLast reports whether any buffer in the delivery carries the end-of-stream flag.
func (c Chain) HasLast() bool {
	for _, b := range c {
		if b.Last {
			return true
		}
	}

	return false
}

// Bytes concatenates the data of all buffers.
func (c Chain) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(c.Size())
	for _, b := range c {
		buf.Write(b.Data)
	}

	return buf.Bytes()
}
