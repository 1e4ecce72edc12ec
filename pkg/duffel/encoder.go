package duffel

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/blockberries/duffel/internal/wire"
)

// Encoder emits the Duffel wire format one primitive value at a time.
// The caller drives it with one call per structural shape: scalars,
// strings, options, sequences, maps, structs and enum variants.
//
// An Encoder is not safe for concurrent use. Independent Encoders may
// run concurrently on independent sinks with no synchronization.
type Encoder struct {
	out *skipWriter
	cfg Config

	// seqs tracks open sequences and maps; true entries were opened
	// with an unknown length and own a skippable block.
	seqs []bool

	scratch [wire.MaxVarintLen128]byte
}

// NewEncoder creates an Encoder writing to w with DefaultConfig.
func NewEncoder(w io.Writer) *Encoder {
	return NewEncoderWithConfig(w, DefaultConfig)
}

// NewEncoderWithConfig creates an Encoder writing to w.
// The configuration must match the one the eventual reader uses.
func NewEncoderWithConfig(w io.Writer, cfg Config) *Encoder {
	return &Encoder{out: newSkipWriter(sinkOf(w)), cfg: cfg}
}

// Config returns the encoder's configuration.
func (e *Encoder) Config() Config {
	return e.cfg
}

// Finalize verifies that every sequence, map, struct and field the
// caller opened has been closed. Leaving one open is a bug in the code
// driving the encoder and panics.
func (e *Encoder) Finalize() {
	if len(e.seqs) != 0 {
		panic("duffel: Finalize with open sequence or map")
	}
	e.out.finalize()
}

func (e *Encoder) writeUvarint(v uint64) error {
	buf := wire.AppendUvarint(e.scratch[:0], v)
	_, err := e.out.Write(buf)
	return err
}

func (e *Encoder) writeLen(n int) error {
	if n < 0 {
		return NewEncodeError(fmt.Sprintf("negative length %d", n), ErrBadLen)
	}
	return e.writeUvarint(uint64(n))
}

// WriteBool writes a bool as a single byte, 0 or 1.
func (e *Encoder) WriteBool(v bool) error {
	if v {
		return e.out.WriteByte(trueByte)
	}
	return e.out.WriteByte(falseByte)
}

// WriteUint8 writes a uint8 as one raw byte.
func (e *Encoder) WriteUint8(v uint8) error {
	return e.out.WriteByte(v)
}

// WriteUint16 writes a varint-encoded uint16.
func (e *Encoder) WriteUint16(v uint16) error {
	return e.writeUvarint(uint64(v))
}

// WriteUint32 writes a varint-encoded uint32.
func (e *Encoder) WriteUint32(v uint32) error {
	return e.writeUvarint(uint64(v))
}

// WriteUint64 writes a varint-encoded uint64.
func (e *Encoder) WriteUint64(v uint64) error {
	return e.writeUvarint(v)
}

// WriteUint128 writes a varint-encoded 128-bit unsigned integer given
// as high and low 64-bit words.
func (e *Encoder) WriteUint128(hi, lo uint64) error {
	buf := wire.AppendUvarint128(e.scratch[:0], hi, lo)
	_, err := e.out.Write(buf)
	return err
}

// WriteInt8 writes an int8 as one raw byte.
func (e *Encoder) WriteInt8(v int8) error {
	return e.out.WriteByte(byte(v))
}

// WriteInt16 writes a zigzag-folded varint int16.
func (e *Encoder) WriteInt16(v int16) error {
	return e.writeUvarint(uint64(wire.Zigzag16(v)))
}

// WriteInt32 writes a zigzag-folded varint int32.
func (e *Encoder) WriteInt32(v int32) error {
	return e.writeUvarint(uint64(wire.Zigzag32(v)))
}

// WriteInt64 writes a zigzag-folded varint int64.
func (e *Encoder) WriteInt64(v int64) error {
	return e.writeUvarint(wire.Zigzag64(v))
}

// WriteInt128 writes a zigzag-folded varint 128-bit signed integer
// given as a sign-carrying high word and a low word.
func (e *Encoder) WriteInt128(hi int64, lo uint64) error {
	uhi, ulo := wire.Zigzag128(hi, lo)
	return e.WriteUint128(uhi, ulo)
}

// WriteFloat32 writes the raw IEEE-754 bit pattern, little-endian, 4 bytes.
func (e *Encoder) WriteFloat32(v float32) error {
	buf := wire.AppendFloat32(e.scratch[:0], v)
	_, err := e.out.Write(buf)
	return err
}

// WriteFloat64 writes the raw IEEE-754 bit pattern, little-endian, 8 bytes.
func (e *Encoder) WriteFloat64(v float64) error {
	buf := wire.AppendFloat64(e.scratch[:0], v)
	_, err := e.out.Write(buf)
	return err
}

// WriteRune writes a single character as a length-prefixed UTF-8
// sequence of at most 4 bytes.
func (e *Encoder) WriteRune(r rune) error {
	if !utf8.ValidRune(r) {
		return NewEncodeError(fmt.Sprintf("invalid rune %#x", r), ErrBadChar)
	}
	var buf [utf8.UTFMax]byte
	n := utf8.EncodeRune(buf[:], r)
	if err := e.writeLen(n); err != nil {
		return err
	}
	_, err := e.out.Write(buf[:n])
	return err
}

// WriteString writes a varint length prefix followed by the raw bytes.
func (e *Encoder) WriteString(s string) error {
	if err := e.writeLen(len(s)); err != nil {
		return err
	}
	_, err := io.WriteString(e.out, s)
	return err
}

// WriteBytes writes a varint length prefix followed by the raw bytes.
func (e *Encoder) WriteBytes(b []byte) error {
	if err := e.writeLen(len(b)); err != nil {
		return err
	}
	_, err := e.out.Write(b)
	return err
}

// WriteOption writes an option tag: 0 for absent, 1 for present.
// When present is true, the caller writes the inner value next.
func (e *Encoder) WriteOption(present bool) error {
	if present {
		return e.out.WriteByte(someByte)
	}
	return e.out.WriteByte(noneByte)
}

// writeSeqLen writes the length marker for a sequence or map of known
// length, escaping the reserved sentinel value.
func (e *Encoder) writeSeqLen(n int) error {
	if n == specialLen {
		if err := e.writeUvarint(specialLen); err != nil {
			return err
		}
		return e.writeUvarint(specialLen)
	}
	return e.writeLen(n)
}

// BeginSeq starts a sequence of n elements. The caller writes each
// element in order and then calls EndSeq.
func (e *Encoder) BeginSeq(n int) error {
	if err := e.writeSeqLen(n); err != nil {
		return err
	}
	e.seqs = append(e.seqs, false)
	return nil
}

// BeginSeqUnknown starts a sequence whose element count is not known in
// advance. The elements are framed in a skippable block, so neither the
// writer needs to buffer them to learn the count, nor does a reader
// need to understand them to advance past the sequence.
func (e *Encoder) BeginSeqUnknown() error {
	if err := e.writeUvarint(specialLen); err != nil {
		return err
	}
	if err := e.writeUvarint(unknownLen); err != nil {
		return err
	}
	e.out.beginBlock()
	e.seqs = append(e.seqs, true)
	return nil
}

// EndSeq ends the innermost open sequence or map.
func (e *Encoder) EndSeq() error {
	if len(e.seqs) == 0 {
		panic("duffel: EndSeq without an open sequence")
	}
	unknown := e.seqs[len(e.seqs)-1]
	e.seqs = e.seqs[:len(e.seqs)-1]
	if unknown {
		return e.out.endBlock()
	}
	return nil
}

// BeginMap starts a map of n key/value pairs. The caller writes
// alternating keys and values and then calls EndMap.
func (e *Encoder) BeginMap(n int) error {
	return e.BeginSeq(n)
}

// BeginMapUnknown starts a map whose pair count is not known in advance.
func (e *Encoder) BeginMapUnknown() error {
	return e.BeginSeqUnknown()
}

// EndMap ends the innermost open map.
func (e *Encoder) EndMap() error {
	return e.EndSeq()
}

// BeginStruct starts a struct with the given field count. The caller
// wraps each field in BeginField/EndField and finishes with EndStruct.
//
// Under Full, each field is individually framed in a skippable block
// keyed by its identifier. Under Slim, the whole struct body shares one
// skippable block and fields are positional.
func (e *Encoder) BeginStruct(numFields int) error {
	if err := e.writeLen(numFields); err != nil {
		return err
	}
	if !e.cfg.WithIdentifiers {
		e.out.beginBlock()
	}
	return nil
}

// BeginField starts one struct field. Under Full it writes the field
// identifier and opens the field's skippable block; under Slim it is
// only a position marker.
func (e *Encoder) BeginField(name string) error {
	if !e.cfg.WithIdentifiers {
		return nil
	}
	if err := e.writeIdentifier(name); err != nil {
		return err
	}
	e.out.beginBlock()
	return nil
}

// EndField ends the current struct field.
func (e *Encoder) EndField() error {
	if !e.cfg.WithIdentifiers {
		return nil
	}
	return e.out.endBlock()
}

// EndStruct ends the current struct.
func (e *Encoder) EndStruct() error {
	if !e.cfg.WithIdentifiers {
		return e.out.endBlock()
	}
	return nil
}

// WriteVariant writes an enum variant discriminant: the variant name
// under Full, the varint variant index under Slim. The caller writes
// the variant payload next, if any.
func (e *Encoder) WriteVariant(name string, index uint32) error {
	if e.cfg.WithIdentifiers {
		return e.writeIdentifier(name)
	}
	return e.writeUvarint(uint64(index))
}

// WriteDisplay formats v with the fmt package and writes the result as
// a length-prefixed string. The value is formatted twice: a first pass
// to learn the length, a second to emit the bytes. This avoids either
// buffering the formatted text or backpatching a length header, at the
// cost of the double traversal. Not a performance-critical path.
func (e *Encoder) WriteDisplay(v any) error {
	var counter countWriter
	fmt.Fprintf(&counter, "%v", v)
	if err := e.writeLen(counter.n); err != nil {
		return err
	}
	_, err := fmt.Fprintf(e.out, "%v", v)
	return err
}

// countWriter counts bytes without storing them.
type countWriter struct {
	n int
}

func (c *countWriter) Write(p []byte) (int, error) {
	c.n += len(p)
	return len(p), nil
}
