package duffel

import (
	"fmt"

	"github.com/blockberries/duffel/internal/wire"
)

// skipWriter chunks everything written inside an open skippable block
// into length-prefixed records: a varint uint16 chunk length followed by
// that many bytes. A chunk of exactly chunkMax bytes is non-terminal;
// the block ends with the first shorter chunk, which may be empty.
//
// Chunking lets a writer emit a region whose total size is not known
// upfront, without buffering the whole region or backpatching a length,
// and lets any reader skip the region without understanding its contents.
//
// Blocks nest. Each open block accumulates into its own buffer, and a
// nested block's chunk records pass through the chunking of its parent.
// Unbalanced beginBlock/endBlock calls are a bug in the code driving the
// writer, not a data condition, and panic.
type skipWriter struct {
	sink   Sink
	frames [][]byte
}

func newSkipWriter(sink Sink) *skipWriter {
	return &skipWriter{sink: sink}
}

// Write pushes p through the innermost open block, or directly to the
// sink when no block is open.
func (sw *skipWriter) Write(p []byte) (int, error) {
	if len(sw.frames) == 0 {
		return sw.sink.Write(p)
	}
	if err := sw.writeFrame(len(sw.frames)-1, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriteByte pushes a single byte.
func (sw *skipWriter) WriteByte(b byte) error {
	if len(sw.frames) == 0 {
		return sw.sink.WriteByte(b)
	}
	i := len(sw.frames) - 1
	sw.frames[i] = append(sw.frames[i], b)
	return sw.flushFull(i)
}

// writeFrame appends p to the buffer of frame i and flushes any chunks
// that filled up.
func (sw *skipWriter) writeFrame(i int, p []byte) error {
	sw.frames[i] = append(sw.frames[i], p...)
	return sw.flushFull(i)
}

// flushFull emits full non-terminal chunks from frame i while its
// buffer holds at least chunkMax bytes, keeping the remainder buffered.
func (sw *skipWriter) flushFull(i int) error {
	for len(sw.frames[i]) >= chunkMax {
		if err := sw.emit(i, sw.frames[i][:chunkMax]); err != nil {
			return err
		}
		n := copy(sw.frames[i], sw.frames[i][chunkMax:])
		sw.frames[i] = sw.frames[i][:n]
	}
	return nil
}

// emit writes one chunk record of frame i to the enclosing level.
func (sw *skipWriter) emit(i int, chunk []byte) error {
	var hdr [wire.MaxVarintLen16]byte
	h := wire.AppendUvarint(hdr[:0], uint64(len(chunk)))
	if err := sw.writeBelow(i, h); err != nil {
		return err
	}
	return sw.writeBelow(i, chunk)
}

// writeBelow writes to the level enclosing frame i: frame i-1, or the
// sink when i is the outermost frame.
func (sw *skipWriter) writeBelow(i int, p []byte) error {
	if i == 0 {
		_, err := sw.sink.Write(p)
		return err
	}
	return sw.writeFrame(i-1, p)
}

// beginBlock opens a new skippable block.
// Must be paired with a call to endBlock.
func (sw *skipWriter) beginBlock() {
	sw.frames = append(sw.frames, getBuffer(4096))
}

// endBlock closes the innermost block, emitting its buffered remainder
// as the terminal chunk (shorter than chunkMax, possibly empty).
func (sw *skipWriter) endBlock() error {
	if len(sw.frames) == 0 {
		panic("duffel: endBlock without an open skippable block")
	}
	i := len(sw.frames) - 1
	buf := sw.frames[i]
	sw.frames = sw.frames[:i]
	if len(buf) >= chunkMax {
		// flushFull keeps every buffer strictly below chunkMax.
		panic(fmt.Sprintf("duffel: skippable block buffer overflow: %d bytes", len(buf)))
	}

	var hdr [wire.MaxVarintLen16]byte
	h := wire.AppendUvarint(hdr[:0], uint64(len(buf)))
	if _, err := sw.Write(h); err != nil {
		return err
	}
	_, err := sw.Write(buf)
	putBuffer(buf)
	return err
}

// depth returns the number of open blocks.
func (sw *skipWriter) depth() int {
	return len(sw.frames)
}

// finalize verifies that every block has been closed.
// An open block at finalize time is a caller protocol violation.
func (sw *skipWriter) finalize() {
	if len(sw.frames) != 0 {
		panic("duffel: finalize with skippable block still open")
	}
}
