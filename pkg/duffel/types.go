package duffel

// Marshaler is implemented by types that encode themselves.
// The implementation issues exactly one structural call (or one
// balanced group, e.g. BeginStruct..EndStruct) against the Encoder.
type Marshaler interface {
	MarshalDuffel(enc *Encoder) error
}

// Unmarshaler is implemented by types that decode themselves.
// The implementation must consume exactly the value its Marshaler
// counterpart wrote.
type Unmarshaler interface {
	UnmarshalDuffel(dec *Decoder) error
}

// Uint128 is a 128-bit unsigned integer, encoded on the wire as a
// single varint of up to 19 bytes.
type Uint128 struct {
	Hi, Lo uint64
}

// MarshalDuffel writes the value as a 128-bit varint.
func (v Uint128) MarshalDuffel(enc *Encoder) error {
	return enc.WriteUint128(v.Hi, v.Lo)
}

// UnmarshalDuffel reads the value from a 128-bit varint.
func (v *Uint128) UnmarshalDuffel(dec *Decoder) error {
	hi, lo, err := dec.ReadUint128()
	if err != nil {
		return err
	}
	v.Hi, v.Lo = hi, lo
	return nil
}

// Int128 is a 128-bit signed integer in two's complement, encoded on
// the wire as a zigzag-folded 128-bit varint.
type Int128 struct {
	Hi int64
	Lo uint64
}

// MarshalDuffel writes the value as a zigzag-folded 128-bit varint.
func (v Int128) MarshalDuffel(enc *Encoder) error {
	return enc.WriteInt128(v.Hi, v.Lo)
}

// UnmarshalDuffel reads the value from a zigzag-folded 128-bit varint.
func (v *Int128) UnmarshalDuffel(dec *Decoder) error {
	hi, lo, err := dec.ReadInt128()
	if err != nil {
		return err
	}
	v.Hi, v.Lo = hi, lo
	return nil
}
