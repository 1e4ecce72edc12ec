package duffel

import "io"

// Sink is the byte output an Encoder writes to.
// It is satisfied by *BufferSink, bytes.Buffer, bufio.Writer, and any
// io.Writer via an internal adapter.
type Sink interface {
	io.Writer
	io.ByteWriter
}

// BufferSink collects encoded bytes in a growable in-memory buffer.
//
// The zero value is ready to use. For better performance under churn,
// obtain one with GetBufferSink and return it with PutBufferSink.
type BufferSink struct {
	buf []byte
}

// NewBufferSink creates a BufferSink with the given initial capacity.
func NewBufferSink(capacity int) *BufferSink {
	return &BufferSink{buf: make([]byte, 0, capacity)}
}

// Write appends p to the buffer. It never fails.
func (s *BufferSink) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)
	return len(p), nil
}

// WriteByte appends a single byte to the buffer. It never fails.
func (s *BufferSink) WriteByte(b byte) error {
	s.buf = append(s.buf, b)
	return nil
}

// Bytes returns the collected bytes.
// The slice is only valid until the next write or Reset.
func (s *BufferSink) Bytes() []byte {
	return s.buf
}

// BytesCopy returns a copy of the collected bytes.
func (s *BufferSink) BytesCopy() []byte {
	out := make([]byte, len(s.buf))
	copy(out, s.buf)
	return out
}

// Len returns the number of collected bytes.
func (s *BufferSink) Len() int {
	return len(s.buf)
}

// Reset clears the buffer for reuse, retaining its capacity.
func (s *BufferSink) Reset() {
	s.buf = s.buf[:0]
}

// writerSink adapts a plain io.Writer to the Sink interface.
type writerSink struct {
	w io.Writer
}

func (s writerSink) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

func (s writerSink) WriteByte(b byte) error {
	_, err := s.w.Write([]byte{b})
	return err
}

// sinkOf returns w as a Sink, wrapping it if necessary.
func sinkOf(w io.Writer) Sink {
	if s, ok := w.(Sink); ok {
		return s
	}
	return writerSink{w: w}
}
