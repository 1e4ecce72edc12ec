package wire

import (
	"encoding/binary"
	"math"
)

// Floats are the only fixed-width multi-byte values in the Duffel wire
// format. They are written as their raw IEEE-754 bit pattern in
// little-endian byte order: 4 bytes for float32, 8 bytes for float64.
// Bit patterns are preserved exactly, including NaN payloads and
// negative zero.

// Size constants for fixed-width types.
const (
	Float32Size = 4
	Float64Size = 8
)

// AppendFloat32 appends a float32 in little-endian IEEE-754 format.
func AppendFloat32(buf []byte, v float32) []byte {
	bits := math.Float32bits(v)
	return append(buf,
		byte(bits),
		byte(bits>>8),
		byte(bits>>16),
		byte(bits>>24),
	)
}

// AppendFloat64 appends a float64 in little-endian IEEE-754 format.
func AppendFloat64(buf []byte, v float64) []byte {
	bits := math.Float64bits(v)
	return append(buf,
		byte(bits),
		byte(bits>>8),
		byte(bits>>16),
		byte(bits>>24),
		byte(bits>>32),
		byte(bits>>40),
		byte(bits>>48),
		byte(bits>>56),
	)
}

// DecodeFloat32 decodes a little-endian float32.
// Returns an error if the input is shorter than 4 bytes.
func DecodeFloat32(data []byte) (float32, error) {
	if len(data) < Float32Size {
		return 0, ErrVarintTruncated
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(data)), nil
}

// DecodeFloat64 decodes a little-endian float64.
// Returns an error if the input is shorter than 8 bytes.
func DecodeFloat64(data []byte) (float64, error) {
	if len(data) < Float64Size {
		return 0, ErrVarintTruncated
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(data)), nil
}
