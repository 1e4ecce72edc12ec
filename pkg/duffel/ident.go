package duffel

import (
	"strconv"
	"unicode/utf8"

	"github.com/blockberries/duffel/internal/wire"
)

// Identifiers name struct fields and enum variants in the Full dialect.
// Three encodings share one varint-multiplexed space:
//
//   - a name shorter than idLen bytes: [len varint][utf8 bytes]
//   - a longer name: [idLen][actual len varint][utf8 bytes]
//   - a canonical compact name "_<N>" with N < idCount: the single
//     varint idLenName+N
//
// The compact form lets callers opt individual fields into a one-byte
// identifier without giving up readable names elsewhere.

// compactID reports whether name is a canonical compact identifier
// "_<N>" with N below idCount, and returns N. Non-canonical spellings
// such as "_07" take the string encoding so they round-trip unchanged.
func compactID(name string) (int, bool) {
	if len(name) < 2 || len(name) > 3 || name[0] != '_' {
		return 0, false
	}
	digits := name[1:]
	if digits[0] == '0' && len(digits) > 1 {
		return 0, false
	}
	n := 0
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	if n >= idCount {
		return 0, false
	}
	return n, true
}

// writeIdentifier encodes a field or variant name.
func (e *Encoder) writeIdentifier(name string) error {
	if n, ok := compactID(name); ok {
		return e.writeUvarint(uint64(idLenName + n))
	}
	if len(name) < idLen {
		if err := e.writeUvarint(uint64(len(name))); err != nil {
			return err
		}
	} else {
		if err := e.writeUvarint(idLen); err != nil {
			return err
		}
		if err := e.writeUvarint(uint64(len(name))); err != nil {
			return err
		}
	}
	_, err := e.out.Write([]byte(name))
	return err
}

// readIdentifier decodes a field or variant name.
func (d *Decoder) readIdentifier() (string, error) {
	v, err := d.readLen()
	if err != nil {
		return "", err
	}

	if v >= idLenName+idCount {
		return "", ErrBadIdentifier
	}
	if v >= idLenName {
		return "_" + strconv.Itoa(v-idLenName), nil
	}

	n := v
	if v == idLen {
		n, err = d.readLen()
		if err != nil {
			return "", err
		}
	}
	if max := d.cfg.Limits.MaxStringLen; max > 0 && n > max {
		return "", ErrMaxStringLength
	}

	buf, err := d.in.Take(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(buf) {
		return "", ErrBadIdentifier
	}
	return string(buf), nil
}

// identifierSize returns the encoded size of a name in bytes.
func identifierSize(name string) int {
	if _, ok := compactID(name); ok {
		return 1
	}
	if len(name) < idLen {
		return wire.UvarintSize(uint64(len(name))) + len(name)
	}
	return 1 + wire.UvarintSize(uint64(len(name))) + len(name)
}
