package duffel

// Wire format constants. These are fixed by the format definition and
// shared by every conforming implementation.
const (
	falseByte = 0
	trueByte  = 1

	noneByte = 0
	someByte = 1

	// specialLen is the reserved sentinel value of a length marker.
	// A first marker equal to specialLen is followed by a second marker:
	// specialLen again means "the length is literally specialLen",
	// unknownLen means "length unknown, framed in a skippable block".
	specialLen = 125
	unknownLen = 0

	// idLen marks an identifier whose length needs its own varint.
	// Identifiers shorter than idLen carry the length inline.
	idLen = 64

	// idLenName is the base of the compact numeric identifier range.
	// A marker value of idLenName+N encodes the canonical name "_<N>".
	idLenName = idLen + 1

	// idCount is the number of compact numeric identifiers.
	idCount = 60

	// chunkMax is the maximum payload of one skippable-block chunk.
	// A chunk of exactly chunkMax bytes is non-terminal; any shorter
	// chunk, including an empty one, ends the block.
	chunkMax = 0xFFFF
)

// Config selects the wire dialect and decode resource limits.
// It is fixed for the lifetime of an Encoder or Decoder.
type Config struct {
	// WithIdentifiers selects the Full dialect: struct fields and enum
	// variants carry their names on the wire, and each struct field is
	// individually wrapped in a skippable block so readers can skip
	// fields they do not know.
	//
	// When false (the Slim dialect), fields are positional, enum
	// variants are a varint index, and each struct is wrapped in one
	// skippable block covering all fields so trailing fields added by
	// a newer writer can be discarded.
	WithIdentifiers bool

	// Limits bounds resource use when decoding untrusted input.
	Limits Limits
}

// Limits specifies decode resource limits.
// A zero limit means unlimited.
type Limits struct {
	// MaxStringLen is the maximum decoded string length in bytes.
	MaxStringLen int

	// MaxBytesLen is the maximum decoded byte slice length.
	MaxBytesLen int

	// MaxDepth is the maximum nesting depth of values.
	MaxDepth int
}

// DefaultLimits are permissive limits for trusted input.
var DefaultLimits = Limits{
	MaxStringLen: 1 << 30,
	MaxBytesLen:  1 << 30,
	MaxDepth:     10000,
}

// SecureLimits are conservative limits for untrusted input.
var SecureLimits = Limits{
	MaxStringLen: 1 << 20,
	MaxBytesLen:  1 << 24,
	MaxDepth:     100,
}

// Full is the dialect that carries field and variant identifiers.
// It tolerates added, removed, and reordered struct fields on either side.
var Full = Config{
	WithIdentifiers: true,
	Limits:          DefaultLimits,
}

// Slim is the positional dialect. It produces smaller output and
// tolerates fields appended at the end of a struct, but not removal
// or reordering of existing fields.
var Slim = Config{
	WithIdentifiers: false,
	Limits:          DefaultLimits,
}

// DefaultConfig is the configuration used by Marshal and Unmarshal.
var DefaultConfig = Full
