package duffel

import "github.com/blockberries/duffel/internal/wire"

// readFrame tracks decode progress through one skippable block.
type readFrame struct {
	// remaining counts unread payload bytes of the current chunk.
	remaining int

	// hasNext is true while another chunk record may follow. It is
	// cleared by the first chunk header shorter than chunkMax.
	hasNext bool
}

// skipReader is the decode-side dual of skipWriter. Reads inside an
// open block are satisfied from its chunk records, transparently
// crossing chunk boundaries. Closing a block drains any unread chunks,
// which is what lets a reader skip content it does not understand.
type skipReader struct {
	src    Source
	frames []readFrame
}

func newSkipReader(src Source) *skipReader {
	return &skipReader{src: src}
}

// ReadByte returns the next byte from the innermost open block, or from
// the source when no block is open. Returns ErrEndOfBlock when the
// innermost block is exhausted.
func (sr *skipReader) ReadByte() (byte, error) {
	return sr.readByteAt(len(sr.frames))
}

// Take returns the next n bytes. The returned slice may alias the
// source's buffer and is only valid until the next read.
func (sr *skipReader) Take(n int) ([]byte, error) {
	return sr.takeAt(len(sr.frames), n)
}

// readByteAt reads one byte at nesting level (level == 0 is the source,
// level == k reads through frame k-1).
func (sr *skipReader) readByteAt(level int) (byte, error) {
	if level == 0 {
		return sr.src.ReadByte()
	}
	f := &sr.frames[level-1]
	if err := sr.ensure(level); err != nil {
		return 0, err
	}
	if f.remaining == 0 {
		return 0, ErrEndOfBlock
	}
	b, err := sr.readByteAt(level - 1)
	if err != nil {
		return 0, err
	}
	f.remaining--
	return b, nil
}

// takeAt reads n bytes at the given nesting level.
func (sr *skipReader) takeAt(level, n int) ([]byte, error) {
	if level == 0 {
		return sr.src.Take(n)
	}
	f := &sr.frames[level-1]
	if err := sr.ensure(level); err != nil {
		return nil, err
	}

	// Fast path: the request fits in the current chunk.
	if f.remaining >= n {
		buf, err := sr.takeAt(level-1, n)
		if err != nil {
			return nil, err
		}
		f.remaining -= n
		return buf, nil
	}

	// The request spans chunks; assemble it in a fresh buffer.
	out := make([]byte, 0, n)
	for len(out) < n {
		if err := sr.ensure(level); err != nil {
			return nil, err
		}
		if f.remaining == 0 {
			return nil, ErrEndOfBlock
		}
		step := n - len(out)
		if step > f.remaining {
			step = f.remaining
		}
		part, err := sr.takeAt(level-1, step)
		if err != nil {
			return nil, err
		}
		out = append(out, part...)
		f.remaining -= step
	}
	return out, nil
}

// ensure loads the next chunk header of the frame at the given level if
// its current chunk is exhausted and more chunks may follow.
func (sr *skipReader) ensure(level int) error {
	f := &sr.frames[level-1]
	if f.remaining > 0 || !f.hasNext {
		return nil
	}
	n, err := sr.readChunkHeader(level - 1)
	if err != nil {
		return err
	}
	f.remaining = int(n)
	f.hasNext = n == chunkMax
	return nil
}

// readChunkHeader reads a varint uint16 chunk length at the given level.
func (sr *skipReader) readChunkHeader(level int) (uint16, error) {
	var v uint16
	var shift uint
	for i := 0; i < wire.MaxVarintLen16; i++ {
		b, err := sr.readByteAt(level)
		if err != nil {
			return 0, err
		}
		if b < 0x80 {
			if i == wire.MaxVarintLen16-1 && b > wire.MaxLastByte16 {
				return 0, ErrBadVarint
			}
			return v | uint16(b)<<shift, nil
		}
		v |= uint16(b&0x7f) << shift
		shift += 7
	}
	return 0, ErrBadVarint
}

// more reports whether the innermost block holds further payload bytes.
// Only meaningful at a value boundary inside an unknown-length region.
func (sr *skipReader) more() (bool, error) {
	if len(sr.frames) == 0 {
		panic("duffel: more without an open skippable block")
	}
	if err := sr.ensure(len(sr.frames)); err != nil {
		return false, err
	}
	return sr.frames[len(sr.frames)-1].remaining > 0, nil
}

// beginBlock enters a skippable block.
// Must be paired with a call to endBlock.
func (sr *skipReader) beginBlock() {
	sr.frames = append(sr.frames, readFrame{remaining: 0, hasNext: true})
}

// endBlock leaves the innermost block, reading and discarding any
// remainder the caller did not consume.
func (sr *skipReader) endBlock() error {
	if len(sr.frames) == 0 {
		panic("duffel: endBlock without an open skippable block")
	}
	level := len(sr.frames)
	f := &sr.frames[level-1]
	for {
		if err := sr.ensure(level); err != nil {
			return err
		}
		if f.remaining == 0 {
			break
		}
		if _, err := sr.takeAt(level-1, f.remaining); err != nil {
			return err
		}
		f.remaining = 0
	}
	sr.frames = sr.frames[:level-1]
	return nil
}

// depth returns the number of open blocks.
func (sr *skipReader) depth() int {
	return len(sr.frames)
}

// finalize verifies that every block has been closed.
// An open block at finalize time is a caller protocol violation.
func (sr *skipReader) finalize() {
	if len(sr.frames) != 0 {
		panic("duffel: finalize with skippable block still open")
	}
}
