package duffel

import (
	"bufio"
	"io"
)

// Source is the byte input a Decoder reads from.
type Source interface {
	io.ByteReader

	// Take returns the next n bytes of input. The returned slice may
	// alias an internal buffer and is only valid until the next read.
	// Returns ErrUnexpectedEOF if fewer than n bytes remain.
	Take(n int) ([]byte, error)
}

// SliceSource reads from an in-memory byte slice without copying.
type SliceSource struct {
	data []byte
	pos  int
}

// NewSliceSource creates a SliceSource over data.
// The source aliases data; the caller must not modify it while decoding.
func NewSliceSource(data []byte) *SliceSource {
	return &SliceSource{data: data}
}

// ReadByte returns the next input byte.
func (s *SliceSource) ReadByte() (byte, error) {
	if s.pos >= len(s.data) {
		return 0, ErrUnexpectedEOF
	}
	b := s.data[s.pos]
	s.pos++
	return b, nil
}

// Take returns the next n bytes as a sub-slice of the input.
func (s *SliceSource) Take(n int) ([]byte, error) {
	if n < 0 || s.pos+n > len(s.data) {
		return nil, ErrUnexpectedEOF
	}
	out := s.data[s.pos : s.pos+n]
	s.pos += n
	return out, nil
}

// Pos returns the number of bytes consumed so far.
func (s *SliceSource) Pos() int {
	return s.pos
}

// Rest returns the unconsumed remainder of the input.
func (s *SliceSource) Rest() []byte {
	return s.data[s.pos:]
}

// StreamSource reads from an io.Reader with internal buffering.
type StreamSource struct {
	r       *bufio.Reader
	scratch []byte
}

// NewStreamSource creates a StreamSource reading from r.
func NewStreamSource(r io.Reader) *StreamSource {
	return &StreamSource{r: bufio.NewReader(r)}
}

// ReadByte returns the next input byte.
func (s *StreamSource) ReadByte() (byte, error) {
	b, err := s.r.ReadByte()
	if err != nil {
		return 0, eofErr(err)
	}
	return b, nil
}

// takeChunk bounds each allocation while filling a Take request, so a
// malformed length prefix cannot force a huge up-front allocation.
const takeChunk = 64 * 1024

// Take reads the next n bytes. The returned slice is reused by
// subsequent calls.
func (s *StreamSource) Take(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrUnexpectedEOF
	}
	if cap(s.scratch) < n && n <= takeChunk {
		s.scratch = make([]byte, n)
	}

	if n <= cap(s.scratch) {
		buf := s.scratch[:n]
		if _, err := io.ReadFull(s.r, buf); err != nil {
			return nil, eofErr(err)
		}
		return buf, nil
	}

	// Large request: grow incrementally as data actually arrives.
	buf := make([]byte, 0, takeChunk)
	for len(buf) < n {
		step := n - len(buf)
		if step > takeChunk {
			step = takeChunk
		}
		start := len(buf)
		buf = append(buf, make([]byte, step)...)
		if _, err := io.ReadFull(s.r, buf[start:]); err != nil {
			return nil, eofErr(err)
		}
	}
	return buf, nil
}

func eofErr(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrUnexpectedEOF
	}
	return err
}

// sourceOf returns r as a Source, wrapping it if necessary.
func sourceOf(r io.Reader) Source {
	if s, ok := r.(Source); ok {
		return s
	}
	return NewStreamSource(r)
}
