package duffel

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestDecodeScalarRoundTrip(t *testing.T) {
	encoded := encodeWith(t, Full, func(e *Encoder) error {
		if err := e.WriteBool(true); err != nil {
			return err
		}
		if err := e.WriteUint8(200); err != nil {
			return err
		}
		if err := e.WriteUint16(0xA5C7); err != nil {
			return err
		}
		if err := e.WriteUint32(math.MaxUint32); err != nil {
			return err
		}
		if err := e.WriteUint64(math.MaxUint64); err != nil {
			return err
		}
		if err := e.WriteInt8(-100); err != nil {
			return err
		}
		if err := e.WriteInt16(-30000); err != nil {
			return err
		}
		if err := e.WriteInt32(math.MinInt32); err != nil {
			return err
		}
		if err := e.WriteInt64(math.MinInt64); err != nil {
			return err
		}
		if err := e.WriteFloat32(3.5); err != nil {
			return err
		}
		if err := e.WriteFloat64(-2.25); err != nil {
			return err
		}
		if err := e.WriteRune('世'); err != nil {
			return err
		}
		if err := e.WriteString("héllo"); err != nil {
			return err
		}
		return e.WriteBytes([]byte{0, 255, 127})
	})

	d := NewDecoderBytes(encoded)
	if v, err := d.ReadBool(); err != nil || v != true {
		t.Fatalf("bool: (%v, %v)", v, err)
	}
	if v, err := d.ReadUint8(); err != nil || v != 200 {
		t.Fatalf("uint8: (%v, %v)", v, err)
	}
	if v, err := d.ReadUint16(); err != nil || v != 0xA5C7 {
		t.Fatalf("uint16: (%#x, %v)", v, err)
	}
	if v, err := d.ReadUint32(); err != nil || v != math.MaxUint32 {
		t.Fatalf("uint32: (%v, %v)", v, err)
	}
	if v, err := d.ReadUint64(); err != nil || v != math.MaxUint64 {
		t.Fatalf("uint64: (%v, %v)", v, err)
	}
	if v, err := d.ReadInt8(); err != nil || v != -100 {
		t.Fatalf("int8: (%v, %v)", v, err)
	}
	if v, err := d.ReadInt16(); err != nil || v != -30000 {
		t.Fatalf("int16: (%v, %v)", v, err)
	}
	if v, err := d.ReadInt32(); err != nil || v != math.MinInt32 {
		t.Fatalf("int32: (%v, %v)", v, err)
	}
	if v, err := d.ReadInt64(); err != nil || v != math.MinInt64 {
		t.Fatalf("int64: (%v, %v)", v, err)
	}
	if v, err := d.ReadFloat32(); err != nil || v != 3.5 {
		t.Fatalf("float32: (%v, %v)", v, err)
	}
	if v, err := d.ReadFloat64(); err != nil || v != -2.25 {
		t.Fatalf("float64: (%v, %v)", v, err)
	}
	if v, err := d.ReadRune(); err != nil || v != '世' {
		t.Fatalf("rune: (%q, %v)", v, err)
	}
	if v, err := d.ReadString(); err != nil || v != "héllo" {
		t.Fatalf("string: (%q, %v)", v, err)
	}
	if v, err := d.ReadBytes(); err != nil || !bytes.Equal(v, []byte{0, 255, 127}) {
		t.Fatalf("bytes: (%x, %v)", v, err)
	}
	d.Finalize()
}

func TestDecodeUint128RoundTrip(t *testing.T) {
	pairs := [][2]uint64{
		{0, 0},
		{0, 300},
		{0, math.MaxUint64},
		{1, 0},
		{math.MaxUint64, math.MaxUint64},
	}
	for _, p := range pairs {
		encoded := encodeWith(t, Full, func(e *Encoder) error {
			return e.WriteUint128(p[0], p[1])
		})
		d := NewDecoderBytes(encoded)
		hi, lo, err := d.ReadUint128()
		if err != nil || hi != p[0] || lo != p[1] {
			t.Errorf("uint128 (%d, %d): got (%d, %d, %v)", p[0], p[1], hi, lo, err)
		}
	}
}

func TestDecodeInt128RoundTrip(t *testing.T) {
	pairs := []struct {
		hi int64
		lo uint64
	}{
		{0, 0},
		{0, 1},
		{-1, math.MaxUint64},           // -1
		{-1, 0},                        // -2^64
		{math.MaxInt64, math.MaxUint64},
		{math.MinInt64, 0},
	}
	for _, p := range pairs {
		encoded := encodeWith(t, Full, func(e *Encoder) error {
			return e.WriteInt128(p.hi, p.lo)
		})
		d := NewDecoderBytes(encoded)
		hi, lo, err := d.ReadInt128()
		if err != nil || hi != p.hi || lo != p.lo {
			t.Errorf("int128 (%d, %d): got (%d, %d, %v)", p.hi, p.lo, hi, lo, err)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		read func(*Decoder) error
		want error
	}{
		{
			"bad_bool",
			[]byte{0x02},
			func(d *Decoder) error { _, err := d.ReadBool(); return err },
			ErrBadBool,
		},
		{
			"bad_option",
			[]byte{0x05},
			func(d *Decoder) error { _, err := d.ReadOption(); return err },
			ErrBadOption,
		},
		{
			"varint_last_byte_overflow",
			[]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x1F},
			func(d *Decoder) error { _, err := d.ReadUint32(); return err },
			ErrBadVarint,
		},
		{
			"varint_too_long",
			[]byte{0x80, 0x80, 0x80},
			func(d *Decoder) error { _, err := d.ReadUint16(); return err },
			ErrBadVarint,
		},
		{
			"varint_truncated",
			[]byte{0x80},
			func(d *Decoder) error { _, err := d.ReadUint64(); return err },
			ErrUnexpectedEOF,
		},
		{
			"uint128_overflow",
			bytes.Repeat([]byte{0xFF}, 19),
			func(d *Decoder) error { _, _, err := d.ReadUint128(); return err },
			ErrBadVarint,
		},
		{
			"rune_zero_length",
			[]byte{0x00},
			func(d *Decoder) error { _, err := d.ReadRune(); return err },
			ErrBadChar,
		},
		{
			"rune_too_long",
			[]byte{0x05, 'a', 'b', 'c', 'd', 'e'},
			func(d *Decoder) error { _, err := d.ReadRune(); return err },
			ErrBadChar,
		},
		{
			"rune_invalid_utf8",
			[]byte{0x02, 0xFF, 0xFF},
			func(d *Decoder) error { _, err := d.ReadRune(); return err },
			ErrBadChar,
		},
		{
			"rune_overpadded",
			[]byte{0x02, 0x61, 0x61}, // 'a' followed by a stray byte in the char
			func(d *Decoder) error { _, err := d.ReadRune(); return err },
			ErrBadChar,
		},
		{
			"string_invalid_utf8",
			[]byte{0x02, 0xC3, 0x28},
			func(d *Decoder) error { _, err := d.ReadString(); return err },
			ErrBadString,
		},
		{
			"string_truncated",
			[]byte{0x0A, 'h', 'i'},
			func(d *Decoder) error { _, err := d.ReadString(); return err },
			ErrUnexpectedEOF,
		},
		{
			"seq_bad_second_marker",
			[]byte{0x7D, 0x07},
			func(d *Decoder) error { _, _, err := d.ReadSeqLen(); return err },
			ErrBadLen,
		},
		{
			"float_truncated",
			[]byte{0x00, 0x00},
			func(d *Decoder) error { _, err := d.ReadFloat32(); return err },
			ErrUnexpectedEOF,
		},
		{
			"empty_input",
			nil,
			func(d *Decoder) error { _, err := d.ReadBool(); return err },
			ErrUnexpectedEOF,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoderBytes(tt.data)
			if err := tt.read(d); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeLimits(t *testing.T) {
	cfg := Full
	cfg.Limits.MaxStringLen = 3
	cfg.Limits.MaxBytesLen = 3

	long := encodeWith(t, Full, func(e *Encoder) error {
		return e.WriteString("abcdef")
	})
	d := NewDecoderBytesWithConfig(long, cfg)
	if _, err := d.ReadString(); err != ErrMaxStringLength {
		t.Errorf("string limit: got %v, want ErrMaxStringLength", err)
	}

	blob := encodeWith(t, Full, func(e *Encoder) error {
		return e.WriteBytes(make([]byte, 10))
	})
	d = NewDecoderBytesWithConfig(blob, cfg)
	if _, err := d.ReadBytes(); err != ErrMaxBytesLength {
		t.Errorf("bytes limit: got %v, want ErrMaxBytesLength", err)
	}
}

func TestDecodeSeqKnown(t *testing.T) {
	encoded := encodeWith(t, Full, func(e *Encoder) error {
		if err := e.BeginSeq(3); err != nil {
			return err
		}
		for _, v := range []uint16{10, 2000, 70000 & 0xFFFF} {
			if err := e.WriteUint16(v); err != nil {
				return err
			}
		}
		return e.EndSeq()
	})

	d := NewDecoderBytes(encoded)
	n, known, err := d.ReadSeqLen()
	if err != nil || !known || n != 3 {
		t.Fatalf("ReadSeqLen = (%d, %v, %v)", n, known, err)
	}
	want := []uint16{10, 2000, 70000 & 0xFFFF}
	for i, w := range want {
		v, err := d.ReadUint16()
		if err != nil || v != w {
			t.Fatalf("element %d: (%d, %v), want %d", i, v, err, w)
		}
	}
	if err := d.EndSeq(); err != nil {
		t.Fatal(err)
	}
	d.Finalize()
}

func TestDecodeSeqLiteralSentinelLength(t *testing.T) {
	encoded := encodeWith(t, Full, func(e *Encoder) error {
		if err := e.BeginSeq(specialLen); err != nil {
			return err
		}
		for i := 0; i < specialLen; i++ {
			if err := e.WriteUint8(byte(i)); err != nil {
				return err
			}
		}
		return e.EndSeq()
	})

	d := NewDecoderBytes(encoded)
	n, known, err := d.ReadSeqLen()
	if err != nil || !known || n != specialLen {
		t.Fatalf("ReadSeqLen = (%d, %v, %v), want (125, true, nil)", n, known, err)
	}
}

func TestDecodeSeqUnknown(t *testing.T) {
	encoded := encodeWith(t, Full, func(e *Encoder) error {
		if err := e.BeginSeqUnknown(); err != nil {
			return err
		}
		for _, v := range []uint8{1, 2, 3, 4} {
			if err := e.WriteUint8(v); err != nil {
				return err
			}
		}
		return e.EndSeq()
	})

	d := NewDecoderBytes(encoded)
	_, known, err := d.ReadSeqLen()
	if err != nil || known {
		t.Fatalf("ReadSeqLen known = %v, err = %v", known, err)
	}
	var got []uint8
	for {
		more, err := d.More()
		if err != nil {
			t.Fatal(err)
		}
		if !more {
			break
		}
		v, err := d.ReadUint8()
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, v)
	}
	if !bytes.Equal(got, []uint8{1, 2, 3, 4}) {
		t.Fatalf("elements = %v", got)
	}
	if err := d.EndSeq(); err != nil {
		t.Fatal(err)
	}
	d.Finalize()
}

func TestDecodeSeqUnknownPartialRead(t *testing.T) {
	// EndSeq must discard unread elements and leave the decoder at the
	// value following the sequence.
	encoded := encodeWith(t, Full, func(e *Encoder) error {
		if err := e.BeginSeqUnknown(); err != nil {
			return err
		}
		for i := 0; i < 100; i++ {
			if err := e.WriteUint64(uint64(i) * 1000); err != nil {
				return err
			}
		}
		if err := e.EndSeq(); err != nil {
			return err
		}
		return e.WriteString("after")
	})

	d := NewDecoderBytes(encoded)
	if _, _, err := d.ReadSeqLen(); err != nil {
		t.Fatal(err)
	}
	if _, err := d.ReadUint64(); err != nil {
		t.Fatal(err)
	}
	if err := d.EndSeq(); err != nil {
		t.Fatal(err)
	}
	s, err := d.ReadString()
	if err != nil || s != "after" {
		t.Fatalf("after sequence: (%q, %v)", s, err)
	}
	d.Finalize()
}

func TestDecodeStructFull(t *testing.T) {
	encoded := encodeWith(t, Full, func(e *Encoder) error {
		if err := e.BeginStruct(2); err != nil {
			return err
		}
		if err := e.BeginField("x"); err != nil {
			return err
		}
		if err := e.WriteInt32(-5); err != nil {
			return err
		}
		if err := e.EndField(); err != nil {
			return err
		}
		if err := e.BeginField("y"); err != nil {
			return err
		}
		if err := e.WriteString("hey"); err != nil {
			return err
		}
		if err := e.EndField(); err != nil {
			return err
		}
		return e.EndStruct()
	})

	d := NewDecoderBytes(encoded)
	n, err := d.ReadStructHeader()
	if err != nil || n != 2 {
		t.Fatalf("header: (%d, %v)", n, err)
	}

	name, err := d.ReadFieldName()
	if err != nil || name != "x" {
		t.Fatalf("field 0 name: (%q, %v)", name, err)
	}
	d.BeginField()
	if v, err := d.ReadInt32(); err != nil || v != -5 {
		t.Fatalf("field x: (%d, %v)", v, err)
	}
	if err := d.EndField(); err != nil {
		t.Fatal(err)
	}

	name, err = d.ReadFieldName()
	if err != nil || name != "y" {
		t.Fatalf("field 1 name: (%q, %v)", name, err)
	}
	// Skip y's value entirely.
	d.BeginField()
	if err := d.EndField(); err != nil {
		t.Fatal(err)
	}

	if err := d.EndStruct(); err != nil {
		t.Fatal(err)
	}
	d.Finalize()
}

func TestDecodeStructSlim(t *testing.T) {
	encoded := encodeWith(t, Slim, func(e *Encoder) error {
		if err := e.BeginStruct(2); err != nil {
			return err
		}
		e.BeginField("x")
		if err := e.WriteInt32(-5); err != nil {
			return err
		}
		e.EndField()
		e.BeginField("y")
		if err := e.WriteString("hey"); err != nil {
			return err
		}
		e.EndField()
		return e.EndStruct()
	})

	d := NewDecoderBytesWithConfig(encoded, Slim)
	n, err := d.ReadStructHeader()
	if err != nil || n != 2 {
		t.Fatalf("header: (%d, %v)", n, err)
	}
	if v, err := d.ReadInt32(); err != nil || v != -5 {
		t.Fatalf("field 0: (%d, %v)", v, err)
	}
	// Leave field 1 unread; EndStruct discards it.
	if err := d.EndStruct(); err != nil {
		t.Fatal(err)
	}
	d.Finalize()
}

func TestDecodeVariant(t *testing.T) {
	full := encodeWith(t, Full, func(e *Encoder) error {
		return e.WriteVariant("Move", 1)
	})
	d := NewDecoderBytes(full)
	name, _, err := d.ReadVariant()
	if err != nil || name != "Move" {
		t.Fatalf("full: (%q, %v)", name, err)
	}

	slim := encodeWith(t, Slim, func(e *Encoder) error {
		return e.WriteVariant("Move", 1)
	})
	d = NewDecoderBytesWithConfig(slim, Slim)
	name, index, err := d.ReadVariant()
	if err != nil || name != "" || index != 1 {
		t.Fatalf("slim: (%q, %d, %v)", name, index, err)
	}
}

func TestDecodeOptionRoundTrip(t *testing.T) {
	encoded := encodeWith(t, Full, func(e *Encoder) error {
		if err := e.WriteOption(true); err != nil {
			return err
		}
		if err := e.WriteUint32(77); err != nil {
			return err
		}
		return e.WriteOption(false)
	})

	d := NewDecoderBytes(encoded)
	present, err := d.ReadOption()
	if err != nil || !present {
		t.Fatalf("option 0: (%v, %v)", present, err)
	}
	if v, err := d.ReadUint32(); err != nil || v != 77 {
		t.Fatalf("inner: (%d, %v)", v, err)
	}
	present, err = d.ReadOption()
	if err != nil || present {
		t.Fatalf("option 1: (%v, %v)", present, err)
	}
	d.Finalize()
}

func TestDecoderPanics(t *testing.T) {
	t.Run("more_outside_seq", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected panic")
			}
		}()
		NewDecoderBytes(nil).More()
	})

	t.Run("field_name_under_slim", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected panic")
			}
		}()
		NewDecoderBytesWithConfig([]byte{0x01}, Slim).ReadFieldName()
	})
}
