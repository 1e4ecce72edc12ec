package duffel

import (
	"io"
	"math"
	"unicode/utf8"

	"github.com/blockberries/duffel/internal/wire"
)

// Decoder reconstructs values from the Duffel wire format, validating
// every framing invariant as it reads. It is the exact mirror of
// Encoder: the caller issues one call per structural shape, in the
// order the data was written.
//
// A Decoder is not safe for concurrent use. Independent Decoders may
// run concurrently on independent sources with no synchronization.
type Decoder struct {
	in  *skipReader
	cfg Config

	// seqs tracks open sequences and maps; true entries were encoded
	// with an unknown length and own a skippable block.
	seqs []bool
}

// NewDecoder creates a Decoder reading from r with DefaultConfig.
func NewDecoder(r io.Reader) *Decoder {
	return NewDecoderWithConfig(r, DefaultConfig)
}

// NewDecoderWithConfig creates a Decoder reading from r.
// The configuration must match the one the writer used.
func NewDecoderWithConfig(r io.Reader, cfg Config) *Decoder {
	return &Decoder{in: newSkipReader(sourceOf(r)), cfg: cfg}
}

// NewDecoderBytes creates a Decoder reading from data without copying.
func NewDecoderBytes(data []byte) *Decoder {
	return NewDecoderBytesWithConfig(data, DefaultConfig)
}

// NewDecoderBytesWithConfig creates a Decoder over data.
func NewDecoderBytesWithConfig(data []byte, cfg Config) *Decoder {
	return &Decoder{in: newSkipReader(NewSliceSource(data)), cfg: cfg}
}

// Config returns the decoder's configuration.
func (d *Decoder) Config() Config {
	return d.cfg
}

// Finalize verifies that every sequence, map, struct and field the
// caller opened has been closed. Leaving one open is a bug in the code
// driving the decoder and panics.
func (d *Decoder) Finalize() {
	if len(d.seqs) != 0 {
		panic("duffel: Finalize with open sequence or map")
	}
	d.in.finalize()
}

// readUvarint reads a varint bounded by maxLen bytes whose terminal
// byte at maximum length must not exceed maxLast.
func (d *Decoder) readUvarint(maxLen int, maxLast byte) (uint64, error) {
	var v uint64
	var shift uint
	for i := 0; i < maxLen; i++ {
		b, err := d.in.ReadByte()
		if err != nil {
			return 0, err
		}
		if b < 0x80 {
			if i == maxLen-1 && b > maxLast {
				return 0, ErrBadVarint
			}
			return v | uint64(b)<<shift, nil
		}
		v |= uint64(b&0x7f) << shift
		shift += 7
	}
	return 0, ErrBadVarint
}

func (d *Decoder) readUvarint16() (uint16, error) {
	v, err := d.readUvarint(wire.MaxVarintLen16, wire.MaxLastByte16)
	return uint16(v), err
}

func (d *Decoder) readUvarint32() (uint32, error) {
	v, err := d.readUvarint(wire.MaxVarintLen32, wire.MaxLastByte32)
	return uint32(v), err
}

func (d *Decoder) readUvarint64() (uint64, error) {
	return d.readUvarint(wire.MaxVarintLen64, wire.MaxLastByte64)
}

func (d *Decoder) readUvarint128() (hi, lo uint64, err error) {
	var shift uint
	for i := 0; i < wire.MaxVarintLen128; i++ {
		b, rerr := d.in.ReadByte()
		if rerr != nil {
			return 0, 0, rerr
		}
		last := b < 0x80
		if i == wire.MaxVarintLen128-1 && (!last || b > wire.MaxLastByte128) {
			return 0, 0, ErrBadVarint
		}

		c := uint64(b & 0x7f)
		switch {
		case shift < 58:
			lo |= c << shift
		case shift < 64:
			lo |= c << shift
			hi |= c >> (64 - shift)
		default:
			hi |= c << (shift - 64)
		}

		if last {
			return hi, lo, nil
		}
		shift += 7
	}
	return 0, 0, ErrBadVarint
}

// readLen reads a varint length via the 64-bit path and range-checks it
// against the platform int width, keeping the wire format independent
// of the decoding platform.
func (d *Decoder) readLen() (int, error) {
	v, err := d.readUvarint64()
	if err != nil {
		return 0, err
	}
	if v > uint64(math.MaxInt) {
		return 0, ErrLenOverflow
	}
	return int(v), nil
}

// ReadBool reads a bool byte, rejecting anything but 0 or 1.
func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.in.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case falseByte:
		return false, nil
	case trueByte:
		return true, nil
	default:
		return false, ErrBadBool
	}
}

// ReadUint8 reads one raw byte.
func (d *Decoder) ReadUint8() (uint8, error) {
	return d.in.ReadByte()
}

// ReadUint16 reads a varint-encoded uint16.
func (d *Decoder) ReadUint16() (uint16, error) {
	return d.readUvarint16()
}

// ReadUint32 reads a varint-encoded uint32.
func (d *Decoder) ReadUint32() (uint32, error) {
	return d.readUvarint32()
}

// ReadUint64 reads a varint-encoded uint64.
func (d *Decoder) ReadUint64() (uint64, error) {
	return d.readUvarint64()
}

// ReadUint128 reads a varint-encoded 128-bit unsigned integer as high
// and low 64-bit words.
func (d *Decoder) ReadUint128() (hi, lo uint64, err error) {
	return d.readUvarint128()
}

// ReadInt8 reads one raw byte as int8.
func (d *Decoder) ReadInt8() (int8, error) {
	b, err := d.in.ReadByte()
	return int8(b), err
}

// ReadInt16 reads a zigzag-folded varint int16.
func (d *Decoder) ReadInt16() (int16, error) {
	v, err := d.readUvarint16()
	return wire.Unzigzag16(v), err
}

// ReadInt32 reads a zigzag-folded varint int32.
func (d *Decoder) ReadInt32() (int32, error) {
	v, err := d.readUvarint32()
	return wire.Unzigzag32(v), err
}

// ReadInt64 reads a zigzag-folded varint int64.
func (d *Decoder) ReadInt64() (int64, error) {
	v, err := d.readUvarint64()
	return wire.Unzigzag64(v), err
}

// ReadInt128 reads a zigzag-folded varint 128-bit signed integer.
func (d *Decoder) ReadInt128() (hi int64, lo uint64, err error) {
	uhi, ulo, err := d.readUvarint128()
	if err != nil {
		return 0, 0, err
	}
	hi, lo = wire.Unzigzag128(uhi, ulo)
	return hi, lo, nil
}

// ReadFloat32 reads a raw little-endian IEEE-754 float32.
func (d *Decoder) ReadFloat32() (float32, error) {
	buf, err := d.in.Take(wire.Float32Size)
	if err != nil {
		return 0, err
	}
	return wire.DecodeFloat32(buf)
}

// ReadFloat64 reads a raw little-endian IEEE-754 float64.
func (d *Decoder) ReadFloat64() (float64, error) {
	buf, err := d.in.Take(wire.Float64Size)
	if err != nil {
		return 0, err
	}
	return wire.DecodeFloat64(buf)
}

// ReadRune reads a single length-prefixed UTF-8 character.
func (d *Decoder) ReadRune() (rune, error) {
	n, err := d.readLen()
	if err != nil {
		return 0, err
	}
	if n == 0 || n > utf8.UTFMax {
		return 0, ErrBadChar
	}
	buf, err := d.in.Take(n)
	if err != nil {
		return 0, err
	}
	r, size := utf8.DecodeRune(buf)
	if r == utf8.RuneError && size <= 1 || size != n {
		return 0, ErrBadChar
	}
	return r, nil
}

// ReadString reads a length-prefixed UTF-8 string.
func (d *Decoder) ReadString() (string, error) {
	n, err := d.readLen()
	if err != nil {
		return "", err
	}
	if max := d.cfg.Limits.MaxStringLen; max > 0 && n > max {
		return "", ErrMaxStringLength
	}
	buf, err := d.in.Take(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(buf) {
		return "", ErrBadString
	}
	return string(buf), nil
}

// ReadBytes reads a length-prefixed byte slice.
// The returned slice is a copy and remains valid after further reads.
func (d *Decoder) ReadBytes() ([]byte, error) {
	n, err := d.readLen()
	if err != nil {
		return nil, err
	}
	if max := d.cfg.Limits.MaxBytesLen; max > 0 && n > max {
		return nil, ErrMaxBytesLength
	}
	buf, err := d.in.Take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	return out, nil
}

// ReadOption reads an option tag, rejecting anything but 0 or 1.
// When it returns true, the caller reads the inner value next.
func (d *Decoder) ReadOption() (bool, error) {
	b, err := d.in.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case noneByte:
		return false, nil
	case someByte:
		return true, nil
	default:
		return false, ErrBadOption
	}
}

// ReadSeqLen reads a sequence length marker. When known is true, the
// sequence holds exactly n elements. When known is false, the element
// count was not recorded; the caller iterates with More and must still
// call EndSeq, which drains any unread elements.
func (d *Decoder) ReadSeqLen() (n int, known bool, err error) {
	v, err := d.readLen()
	if err != nil {
		return 0, false, err
	}
	if v != specialLen {
		d.seqs = append(d.seqs, false)
		return v, true, nil
	}
	w, err := d.readLen()
	if err != nil {
		return 0, false, err
	}
	switch w {
	case specialLen:
		// The length is literally the sentinel value.
		d.seqs = append(d.seqs, false)
		return specialLen, true, nil
	case unknownLen:
		d.in.beginBlock()
		d.seqs = append(d.seqs, true)
		return 0, false, nil
	default:
		return 0, false, ErrBadLen
	}
}

// More reports whether an unknown-length sequence or map holds another
// element. Only valid at an element boundary.
func (d *Decoder) More() (bool, error) {
	if len(d.seqs) == 0 || !d.seqs[len(d.seqs)-1] {
		panic("duffel: More outside an unknown-length sequence")
	}
	return d.in.more()
}

// EndSeq ends the innermost open sequence or map, discarding any
// elements of an unknown-length sequence the caller did not read.
func (d *Decoder) EndSeq() error {
	if len(d.seqs) == 0 {
		panic("duffel: EndSeq without an open sequence")
	}
	unknown := d.seqs[len(d.seqs)-1]
	d.seqs = d.seqs[:len(d.seqs)-1]
	if unknown {
		return d.in.endBlock()
	}
	return nil
}

// ReadMapLen reads a map length marker; semantics match ReadSeqLen with
// elements being alternating keys and values.
func (d *Decoder) ReadMapLen() (n int, known bool, err error) {
	return d.ReadSeqLen()
}

// EndMap ends the innermost open map.
func (d *Decoder) EndMap() error {
	return d.EndSeq()
}

// ReadStructHeader reads a struct's field count. Under Slim it also
// enters the struct's skippable block. The caller reads the fields and
// finishes with EndStruct.
func (d *Decoder) ReadStructHeader() (numFields int, err error) {
	n, err := d.readLen()
	if err != nil {
		return 0, err
	}
	if !d.cfg.WithIdentifiers {
		d.in.beginBlock()
	}
	return n, nil
}

// ReadFieldName reads the identifier of the next struct field.
// Only valid under Full.
func (d *Decoder) ReadFieldName() (string, error) {
	if !d.cfg.WithIdentifiers {
		panic("duffel: ReadFieldName under Slim configuration")
	}
	return d.readIdentifier()
}

// BeginField enters the skippable block holding the next field's value.
// Only valid under Full; under Slim, field values follow positionally.
func (d *Decoder) BeginField() {
	if !d.cfg.WithIdentifiers {
		panic("duffel: BeginField under Slim configuration")
	}
	d.in.beginBlock()
}

// EndField leaves the current field's block, discarding whatever part
// of the value was not read. Skipping an entire unknown field is just
// BeginField directly followed by EndField.
func (d *Decoder) EndField() error {
	if !d.cfg.WithIdentifiers {
		panic("duffel: EndField under Slim configuration")
	}
	return d.in.endBlock()
}

// EndStruct ends the current struct. Under Slim this drains any
// trailing fields a newer writer appended beyond what the caller read.
func (d *Decoder) EndStruct() error {
	if !d.cfg.WithIdentifiers {
		return d.in.endBlock()
	}
	return nil
}

// ReadVariant reads an enum variant discriminant: the variant name
// under Full (index is zero), the variant index under Slim (name is
// empty). The caller reads the variant payload next, if any.
func (d *Decoder) ReadVariant() (name string, index uint32, err error) {
	if d.cfg.WithIdentifiers {
		name, err = d.readIdentifier()
		return name, 0, err
	}
	index, err = d.readUvarint32()
	return "", index, err
}
