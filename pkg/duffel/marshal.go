package duffel

import (
	"fmt"
	"io"
	"reflect"
	"sort"
)

// Marshal encodes a Go value into the Duffel binary format using
// DefaultConfig.
//
// Supported types: booleans, all integer and float widths, strings,
// byte slices, slices, arrays, maps, pointers (encoded as options),
// structs, registered interface values (encoded as enum variants), and
// any type implementing Marshaler.
func Marshal(v any) ([]byte, error) {
	return MarshalWithConfig(v, DefaultConfig)
}

// MarshalWithConfig encodes a Go value with the specified configuration.
func MarshalWithConfig(v any, cfg Config) ([]byte, error) {
	sink := GetBufferSink()
	defer PutBufferSink(sink)

	if err := marshalTo(sink, v, cfg); err != nil {
		return nil, err
	}
	return sink.BytesCopy(), nil
}

// MarshalTo encodes a Go value to w using DefaultConfig.
func MarshalTo(w io.Writer, v any) error {
	return MarshalToWithConfig(w, v, DefaultConfig)
}

// MarshalToWithConfig encodes a Go value to w.
func MarshalToWithConfig(w io.Writer, v any, cfg Config) error {
	return marshalTo(w, v, cfg)
}

func marshalTo(w io.Writer, v any, cfg Config) error {
	e := NewEncoderWithConfig(w, cfg)
	if err := marshalValue(e, reflect.ValueOf(v), 0); err != nil {
		return err
	}
	e.Finalize()
	return nil
}

var marshalerType = reflect.TypeOf((*Marshaler)(nil)).Elem()

// marshalValue encodes one reflect.Value.
func marshalValue(e *Encoder, rv reflect.Value, depth int) error {
	if !rv.IsValid() {
		return NewEncodeError("cannot encode untyped nil", ErrUnsupportedType)
	}
	if max := e.cfg.Limits.MaxDepth; max > 0 && depth > max {
		return ErrMaxDepthExceeded
	}

	// Pointers map onto the option shape: absent for nil, present
	// followed by the pointee otherwise.
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return e.WriteOption(false)
		}
		if err := e.WriteOption(true); err != nil {
			return err
		}
		return marshalValue(e, rv.Elem(), depth+1)
	}

	if m, ok := asMarshaler(rv); ok {
		return m.MarshalDuffel(e)
	}

	// Interface values encode as enum variants via the registry.
	if rv.Kind() == reflect.Interface {
		return marshalVariant(e, rv, depth)
	}

	switch rv.Kind() {
	case reflect.Bool:
		return e.WriteBool(rv.Bool())
	case reflect.Int8:
		return e.WriteInt8(int8(rv.Int()))
	case reflect.Int16:
		return e.WriteInt16(int16(rv.Int()))
	case reflect.Int32:
		return e.WriteInt32(int32(rv.Int()))
	case reflect.Int64, reflect.Int:
		return e.WriteInt64(rv.Int())
	case reflect.Uint8:
		return e.WriteUint8(uint8(rv.Uint()))
	case reflect.Uint16:
		return e.WriteUint16(uint16(rv.Uint()))
	case reflect.Uint32:
		return e.WriteUint32(uint32(rv.Uint()))
	case reflect.Uint64, reflect.Uint, reflect.Uintptr:
		return e.WriteUint64(rv.Uint())
	case reflect.Float32:
		return e.WriteFloat32(float32(rv.Float()))
	case reflect.Float64:
		return e.WriteFloat64(rv.Float())
	case reflect.String:
		return e.WriteString(rv.String())
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return e.WriteBytes(rv.Bytes())
		}
		return marshalSeq(e, rv, depth)
	case reflect.Array:
		return marshalTuple(e, rv, depth)
	case reflect.Map:
		return marshalMap(e, rv, depth)
	case reflect.Struct:
		return marshalStruct(e, rv, depth)
	default:
		return NewEncodeError(fmt.Sprintf("unsupported type %s", rv.Type()), ErrUnsupportedType)
	}
}

// asMarshaler returns rv as a Marshaler if its type, or its pointer
// type when addressable, implements the interface.
func asMarshaler(rv reflect.Value) (Marshaler, bool) {
	if rv.Type().Implements(marshalerType) {
		return rv.Interface().(Marshaler), true
	}
	if rv.CanAddr() && reflect.PointerTo(rv.Type()).Implements(marshalerType) {
		return rv.Addr().Interface().(Marshaler), true
	}
	return nil, false
}

func marshalSeq(e *Encoder, rv reflect.Value, depth int) error {
	n := rv.Len()
	if err := e.BeginSeq(n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := marshalValue(e, rv.Index(i), depth+1); err != nil {
			return err
		}
	}
	return e.EndSeq()
}

// marshalTuple encodes a fixed-size array: elements in order, no
// length prefix, since the length is part of the type on both sides.
func marshalTuple(e *Encoder, rv reflect.Value, depth int) error {
	for i := 0; i < rv.Len(); i++ {
		if err := marshalValue(e, rv.Index(i), depth+1); err != nil {
			return err
		}
	}
	return nil
}

func marshalMap(e *Encoder, rv reflect.Value, depth int) error {
	if err := e.BeginMap(rv.Len()); err != nil {
		return err
	}
	keys := rv.MapKeys()
	sortMapKeys(keys)
	for _, k := range keys {
		if err := marshalValue(e, k, depth+1); err != nil {
			return err
		}
		if err := marshalValue(e, rv.MapIndex(k), depth+1); err != nil {
			return err
		}
	}
	return e.EndMap()
}

// sortMapKeys orders map keys for deterministic output.
func sortMapKeys(keys []reflect.Value) {
	if len(keys) < 2 {
		return
	}
	switch keys[0].Kind() {
	case reflect.String:
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		sort.Slice(keys, func(i, j int) bool { return keys[i].Int() < keys[j].Int() })
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		sort.Slice(keys, func(i, j int) bool { return keys[i].Uint() < keys[j].Uint() })
	case reflect.Float32, reflect.Float64:
		sort.Slice(keys, func(i, j int) bool { return keys[i].Float() < keys[j].Float() })
	}
}

func marshalStruct(e *Encoder, rv reflect.Value, depth int) error {
	info, err := cachedStructInfo(rv.Type())
	if err != nil {
		return err
	}

	if err := e.BeginStruct(len(info.fields)); err != nil {
		return err
	}
	for i := range info.fields {
		f := &info.fields[i]
		if err := e.BeginField(f.name); err != nil {
			return err
		}
		if err := marshalValue(e, rv.FieldByIndex(f.index), depth+1); err != nil {
			return &EncodeError{
				Type:    rv.Type().Name(),
				Field:   f.name,
				Message: "field encoding failed",
				Cause:   err,
			}
		}
		if err := e.EndField(); err != nil {
			return err
		}
	}
	return e.EndStruct()
}

func marshalVariant(e *Encoder, rv reflect.Value, depth int) error {
	if rv.IsNil() {
		return NewEncodeError("cannot encode nil interface value", ErrUnsupportedType)
	}

	concrete := rv.Elem()
	info, ok := DefaultRegistry.variantOf(concrete.Type())
	if !ok {
		return NewEncodeError(
			fmt.Sprintf("type %s is not a registered variant", concrete.Type()),
			ErrUnregisteredVariant)
	}

	if err := e.WriteVariant(info.name, info.index); err != nil {
		return err
	}
	return marshalValue(e, concrete, depth+1)
}
