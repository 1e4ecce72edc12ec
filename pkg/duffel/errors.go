// Package duffel provides compact, schema-less binary serialization with
// forward- and backward-compatible schema evolution.
package duffel

import (
	"errors"
	"fmt"
)

// Sentinel errors for malformed input and capability limits.
// These can be checked using errors.Is().
var (
	// ErrBadVarint indicates a varint that did not terminate within its
	// integer width, or a non-canonical varint encoding.
	ErrBadVarint = errors.New("duffel: invalid varint")

	// ErrBadBool indicates a bool byte other than 0 or 1.
	ErrBadBool = errors.New("duffel: invalid bool")

	// ErrBadChar indicates an invalid UTF-8 character encoding.
	ErrBadChar = errors.New("duffel: invalid char")

	// ErrBadString indicates a string with invalid UTF-8 contents.
	ErrBadString = errors.New("duffel: invalid UTF-8 string")

	// ErrBadOption indicates an option tag other than 0 (absent) or 1 (present).
	ErrBadOption = errors.New("duffel: invalid option tag")

	// ErrBadEnum indicates an enum variant that does not resolve to a
	// known discriminant.
	ErrBadEnum = errors.New("duffel: invalid enum discriminant")

	// ErrBadLen indicates a malformed sequence or map length marker.
	ErrBadLen = errors.New("duffel: invalid length marker")

	// ErrBadIdentifier indicates a field or variant identifier that is
	// out of range or not valid UTF-8.
	ErrBadIdentifier = errors.New("duffel: invalid identifier")

	// ErrEndOfBlock indicates a read past the end of a skippable block.
	ErrEndOfBlock = errors.New("duffel: end of block")

	// ErrUnexpectedEOF indicates the input ended before the value was complete.
	ErrUnexpectedEOF = errors.New("duffel: unexpected end of data")

	// ErrLenOverflow indicates a decoded length does not fit the
	// platform int width.
	ErrLenOverflow = errors.New("duffel: length overflows int")

	// ErrAnyUnsupported indicates an attempt at schema-free decoding.
	// The wire format is not self-describing; decoding always requires
	// a concrete target type.
	ErrAnyUnsupported = errors.New("duffel: schema-free decoding is unsupported")

	// ErrUnknownLength indicates a map or sequence was encoded without a
	// length by an encoder that cannot frame unknown-length collections.
	ErrUnknownLength = errors.New("duffel: collection length unknown")

	// ErrMaxDepthExceeded indicates the maximum nesting depth was exceeded.
	ErrMaxDepthExceeded = errors.New("duffel: maximum nesting depth exceeded")

	// ErrMaxStringLength indicates the maximum string length was exceeded.
	ErrMaxStringLength = errors.New("duffel: maximum string length exceeded")

	// ErrMaxBytesLength indicates the maximum bytes length was exceeded.
	ErrMaxBytesLength = errors.New("duffel: maximum bytes length exceeded")

	// ErrNotPointer indicates the target for unmarshaling is not a pointer.
	ErrNotPointer = errors.New("duffel: target must be a non-nil pointer")

	// ErrUnsupportedType indicates a Go type that has no wire representation.
	ErrUnsupportedType = errors.New("duffel: unsupported type")

	// ErrUnregisteredVariant indicates an interface value whose dynamic
	// type was not registered as a variant.
	ErrUnregisteredVariant = errors.New("duffel: unregistered variant type")

	// ErrDuplicateVariant indicates a variant name or type was registered twice.
	ErrDuplicateVariant = errors.New("duffel: duplicate variant registration")
)

// DecodeError provides context for decoding failures.
// It implements the error interface and supports error unwrapping.
type DecodeError struct {
	// Type is the name of the type being decoded (if known).
	Type string

	// Field is the name of the field being decoded (if applicable).
	Field string

	// Message describes what went wrong.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error returns a formatted error message.
func (e *DecodeError) Error() string {
	prefix := joinTypeField(e.Type, e.Field)
	if prefix != "" {
		return fmt.Sprintf("duffel: decode %s: %s", prefix, e.Message)
	}
	return fmt.Sprintf("duffel: decode: %s", e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// Is reports whether the error matches the target.
// This supports errors.Is() for checking the cause.
func (e *DecodeError) Is(target error) bool {
	return e.Cause != nil && errors.Is(e.Cause, target)
}

// NewDecodeError creates a new DecodeError.
func NewDecodeError(message string, cause error) *DecodeError {
	return &DecodeError{
		Message: message,
		Cause:   cause,
	}
}

// NewFieldDecodeError creates a DecodeError for a specific field.
func NewFieldDecodeError(typeName, fieldName, message string, cause error) *DecodeError {
	return &DecodeError{
		Type:    typeName,
		Field:   fieldName,
		Message: message,
		Cause:   cause,
	}
}

// EncodeError provides context for encoding failures.
type EncodeError struct {
	// Type is the name of the type being encoded.
	Type string

	// Field is the name of the field being encoded (if applicable).
	Field string

	// Message describes what went wrong.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error returns a formatted error message.
func (e *EncodeError) Error() string {
	prefix := joinTypeField(e.Type, e.Field)
	if prefix != "" {
		return fmt.Sprintf("duffel: encode %s: %s", prefix, e.Message)
	}
	return fmt.Sprintf("duffel: encode: %s", e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *EncodeError) Unwrap() error {
	return e.Cause
}

// Is reports whether the error matches the target.
func (e *EncodeError) Is(target error) bool {
	return e.Cause != nil && errors.Is(e.Cause, target)
}

// NewEncodeError creates a new EncodeError.
func NewEncodeError(message string, cause error) *EncodeError {
	return &EncodeError{
		Message: message,
		Cause:   cause,
	}
}

// NewFieldEncodeError creates an EncodeError for a specific field.
func NewFieldEncodeError(typeName, fieldName, message string, cause error) *EncodeError {
	return &EncodeError{
		Type:    typeName,
		Field:   fieldName,
		Message: message,
		Cause:   cause,
	}
}

func joinTypeField(typeName, fieldName string) string {
	switch {
	case typeName != "" && fieldName != "":
		return typeName + "." + fieldName
	case typeName != "":
		return typeName
	default:
		return fieldName
	}
}
