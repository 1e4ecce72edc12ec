// Package wire provides low-level encoding primitives for the Duffel wire format.
package wire

import "errors"

// Maximum number of bytes for a varint-encoded value of each width.
// Each varint byte carries 7 payload bits, so a value of N bits needs
// ceil(N/7) bytes.
const (
	MaxVarintLen16  = 3
	MaxVarintLen32  = 5
	MaxVarintLen64  = 10
	MaxVarintLen128 = 19
)

// Maximum value of the terminal byte of a maximum-length varint.
// The terminal byte may only carry the bits left over after the
// preceding bytes, e.g. a uint32 varint of 5 bytes has 32-28 = 4 bits
// remaining, so its last byte must not exceed 0x0F. Anything larger
// is a non-canonical encoding and is rejected.
const (
	MaxLastByte16  = 0x03
	MaxLastByte32  = 0x0F
	MaxLastByte64  = 0x01
	MaxLastByte128 = 0x03
)

// Errors for varint decoding.
var (
	// ErrVarintTruncated indicates the input data ended before the varint terminated.
	ErrVarintTruncated = errors.New("wire: varint truncated")

	// ErrVarintTooLong indicates the varint did not terminate within the
	// maximum number of bytes for its width, or its terminal byte carries
	// bits that do not fit the width.
	ErrVarintTooLong = errors.New("wire: varint exceeds integer width")
)

// AppendUvarint appends the varint encoding of v to buf and returns the extended buffer.
//
// The encoding uses 7 bits per byte, with the MSB as a continuation flag.
// Bytes are ordered from least significant to most significant (little-endian varint).
//
// Example encodings:
//   - 0 → [0x00]
//   - 127 → [0x7f]
//   - 128 → [0x80, 0x01]
//   - 300 → [0xac, 0x02]
func AppendUvarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// AppendUvarint128 appends the varint encoding of the 128-bit value hi:lo.
func AppendUvarint128(buf []byte, hi, lo uint64) []byte {
	for hi != 0 {
		buf = append(buf, byte(lo)|0x80)
		lo = lo>>7 | hi<<57
		hi >>= 7
	}
	return AppendUvarint(buf, lo)
}

// decodeUvarint is the shared decode loop. maxLen bounds the number of
// bytes and maxLast bounds the terminal byte of a maximum-length varint.
func decodeUvarint(data []byte, maxLen int, maxLast byte) (uint64, int, error) {
	var v uint64
	var shift uint

	for i := 0; i < len(data); i++ {
		if i >= maxLen {
			return 0, 0, ErrVarintTooLong
		}

		b := data[i]
		if b < 0x80 {
			if i == maxLen-1 && b > maxLast {
				return 0, 0, ErrVarintTooLong
			}
			return v | uint64(b)<<shift, i + 1, nil
		}
		if i == maxLen-1 {
			return 0, 0, ErrVarintTooLong
		}

		v |= uint64(b&0x7f) << shift
		shift += 7
	}

	return 0, 0, ErrVarintTruncated
}

// DecodeUvarint16 decodes a varint-encoded uint16 from data.
// Returns the value and the number of bytes consumed.
func DecodeUvarint16(data []byte) (uint16, int, error) {
	v, n, err := decodeUvarint(data, MaxVarintLen16, MaxLastByte16)
	return uint16(v), n, err
}

// DecodeUvarint32 decodes a varint-encoded uint32 from data.
// Returns the value and the number of bytes consumed.
func DecodeUvarint32(data []byte) (uint32, int, error) {
	v, n, err := decodeUvarint(data, MaxVarintLen32, MaxLastByte32)
	return uint32(v), n, err
}

// DecodeUvarint64 decodes a varint-encoded uint64 from data.
// Returns the value and the number of bytes consumed.
func DecodeUvarint64(data []byte) (uint64, int, error) {
	// Fast path for single-byte varints (values 0-127).
	if len(data) > 0 && data[0] < 0x80 {
		return uint64(data[0]), 1, nil
	}
	return decodeUvarint(data, MaxVarintLen64, MaxLastByte64)
}

// DecodeUvarint128 decodes a varint-encoded 128-bit value from data.
// Returns the high and low words and the number of bytes consumed.
func DecodeUvarint128(data []byte) (hi, lo uint64, n int, err error) {
	var shift uint

	for i := 0; i < len(data); i++ {
		if i >= MaxVarintLen128 {
			return 0, 0, 0, ErrVarintTooLong
		}

		b := data[i]
		last := b < 0x80
		if i == MaxVarintLen128-1 && (!last || b > MaxLastByte128) {
			return 0, 0, 0, ErrVarintTooLong
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
			return hi, lo, i + 1, nil
		}
		shift += 7
	}

	return 0, 0, 0, ErrVarintTruncated
}

// Zigzag16 folds a signed 16-bit integer into an unsigned one so that
// values of small magnitude, positive or negative, encode short:
// 0 → 0, -1 → 1, 1 → 2, -2 → 3, 2 → 4, ...
func Zigzag16(v int16) uint16 {
	return uint16(v<<1) ^ uint16(v>>15)
}

// Zigzag32 folds a signed 32-bit integer into an unsigned one.
func Zigzag32(v int32) uint32 {
	return uint32(v<<1) ^ uint32(v>>31)
}

// Zigzag64 folds a signed 64-bit integer into an unsigned one.
func Zigzag64(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63)
}

// Zigzag128 folds a signed 128-bit integer, given as a sign-carrying high
// word and a low word, into an unsigned 128-bit value.
func Zigzag128(hi int64, lo uint64) (uint64, uint64) {
	// 128-bit left shift by one, then XOR with the spread sign bit.
	sign := uint64(hi >> 63)
	shi := uint64(hi)<<1 | lo>>63
	slo := lo << 1
	return shi ^ sign, slo ^ sign
}

// Unzigzag16 is the inverse of Zigzag16.
func Unzigzag16(v uint16) int16 {
	return int16(v>>1) ^ -int16(v&1)
}

// Unzigzag32 is the inverse of Zigzag32.
func Unzigzag32(v uint32) int32 {
	return int32(v>>1) ^ -int32(v&1)
}

// Unzigzag64 is the inverse of Zigzag64.
func Unzigzag64(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}

// Unzigzag128 is the inverse of Zigzag128.
func Unzigzag128(hi, lo uint64) (int64, uint64) {
	sign := -(lo & 1)
	ulo := lo>>1 | hi<<63
	uhi := hi >> 1
	return int64(uhi ^ sign), ulo ^ sign
}

// UvarintSize returns the number of bytes required to encode v as a varint.
func UvarintSize(v uint64) int {
	switch {
	case v < 1<<7:
		return 1
	case v < 1<<14:
		return 2
	case v < 1<<21:
		return 3
	case v < 1<<28:
		return 4
	case v < 1<<35:
		return 5
	case v < 1<<42:
		return 6
	case v < 1<<49:
		return 7
	case v < 1<<56:
		return 8
	case v < 1<<63:
		return 9
	default:
		return 10
	}
}
