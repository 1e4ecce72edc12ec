package duffel

import (
	"fmt"
	"io"
	"reflect"
)

// Unmarshal decodes Duffel-encoded data into the value pointed to by v
// using DefaultConfig. The configuration must match the one the data
// was encoded with.
func Unmarshal(data []byte, v any) error {
	return UnmarshalWithConfig(data, v, DefaultConfig)
}

// UnmarshalWithConfig decodes data with the specified configuration.
func UnmarshalWithConfig(data []byte, v any, cfg Config) error {
	return unmarshalFrom(NewDecoderBytesWithConfig(data, cfg), v)
}

// UnmarshalFrom decodes one value from r using DefaultConfig.
func UnmarshalFrom(r io.Reader, v any) error {
	return UnmarshalFromWithConfig(r, v, DefaultConfig)
}

// UnmarshalFromWithConfig decodes one value from r.
func UnmarshalFromWithConfig(r io.Reader, v any, cfg Config) error {
	return unmarshalFrom(NewDecoderWithConfig(r, cfg), v)
}

func unmarshalFrom(d *Decoder, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return ErrNotPointer
	}
	if err := unmarshalValue(d, rv.Elem(), 0); err != nil {
		return err
	}
	d.Finalize()
	return nil
}

var unmarshalerType = reflect.TypeOf((*Unmarshaler)(nil)).Elem()

// unmarshalValue decodes one value into rv, which must be settable.
func unmarshalValue(d *Decoder, rv reflect.Value, depth int) error {
	if max := d.cfg.Limits.MaxDepth; max > 0 && depth > max {
		return ErrMaxDepthExceeded
	}

	// Pointers mirror the option shape.
	if rv.Kind() == reflect.Pointer {
		present, err := d.ReadOption()
		if err != nil {
			return err
		}
		if !present {
			rv.SetZero()
			return nil
		}
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		return unmarshalValue(d, rv.Elem(), depth+1)
	}

	if u, ok := asUnmarshaler(rv); ok {
		return u.UnmarshalDuffel(d)
	}

	if rv.Kind() == reflect.Interface {
		return unmarshalVariant(d, rv, depth)
	}

	switch rv.Kind() {
	case reflect.Bool:
		v, err := d.ReadBool()
		if err != nil {
			return err
		}
		rv.SetBool(v)
	case reflect.Int8:
		v, err := d.ReadInt8()
		if err != nil {
			return err
		}
		rv.SetInt(int64(v))
	case reflect.Int16:
		v, err := d.ReadInt16()
		if err != nil {
			return err
		}
		rv.SetInt(int64(v))
	case reflect.Int32:
		v, err := d.ReadInt32()
		if err != nil {
			return err
		}
		rv.SetInt(int64(v))
	case reflect.Int64, reflect.Int:
		v, err := d.ReadInt64()
		if err != nil {
			return err
		}
		rv.SetInt(v)
	case reflect.Uint8:
		v, err := d.ReadUint8()
		if err != nil {
			return err
		}
		rv.SetUint(uint64(v))
	case reflect.Uint16:
		v, err := d.ReadUint16()
		if err != nil {
			return err
		}
		rv.SetUint(uint64(v))
	case reflect.Uint32:
		v, err := d.ReadUint32()
		if err != nil {
			return err
		}
		rv.SetUint(uint64(v))
	case reflect.Uint64, reflect.Uint, reflect.Uintptr:
		v, err := d.ReadUint64()
		if err != nil {
			return err
		}
		rv.SetUint(v)
	case reflect.Float32:
		v, err := d.ReadFloat32()
		if err != nil {
			return err
		}
		rv.SetFloat(float64(v))
	case reflect.Float64:
		v, err := d.ReadFloat64()
		if err != nil {
			return err
		}
		rv.SetFloat(v)
	case reflect.String:
		v, err := d.ReadString()
		if err != nil {
			return err
		}
		rv.SetString(v)
	case reflect.Slice:
		return unmarshalSlice(d, rv, depth)
	case reflect.Array:
		return unmarshalTuple(d, rv, depth)
	case reflect.Map:
		return unmarshalMap(d, rv, depth)
	case reflect.Struct:
		return unmarshalStruct(d, rv, depth)
	default:
		return NewDecodeError(fmt.Sprintf("unsupported type %s", rv.Type()), ErrUnsupportedType)
	}
	return nil
}

// asUnmarshaler returns rv as an Unmarshaler if its pointer type
// implements the interface.
func asUnmarshaler(rv reflect.Value) (Unmarshaler, bool) {
	if rv.CanAddr() && reflect.PointerTo(rv.Type()).Implements(unmarshalerType) {
		return rv.Addr().Interface().(Unmarshaler), true
	}
	return nil, false
}

// sliceGrowCap bounds the initial allocation of decoded collections so
// a lying length prefix cannot force a huge up-front allocation.
const sliceGrowCap = 1024

func unmarshalSlice(d *Decoder, rv reflect.Value, depth int) error {
	t := rv.Type()
	if t.Elem().Kind() == reflect.Uint8 {
		b, err := d.ReadBytes()
		if err != nil {
			return err
		}
		rv.SetBytes(b)
		return nil
	}

	n, known, err := d.ReadSeqLen()
	if err != nil {
		return err
	}

	capHint := n
	if capHint > sliceGrowCap {
		capHint = sliceGrowCap
	}
	sl := reflect.MakeSlice(t, 0, capHint)
	el := reflect.New(t.Elem()).Elem()

	if known {
		for i := 0; i < n; i++ {
			el.SetZero()
			if err := unmarshalValue(d, el, depth+1); err != nil {
				return err
			}
			sl = reflect.Append(sl, el)
		}
	} else {
		for {
			next, err := d.More()
			if err != nil {
				return err
			}
			if !next {
				break
			}
			el.SetZero()
			if err := unmarshalValue(d, el, depth+1); err != nil {
				return err
			}
			sl = reflect.Append(sl, el)
		}
	}

	rv.Set(sl)
	return d.EndSeq()
}

func unmarshalTuple(d *Decoder, rv reflect.Value, depth int) error {
	for i := 0; i < rv.Len(); i++ {
		if err := unmarshalValue(d, rv.Index(i), depth+1); err != nil {
			return err
		}
	}
	return nil
}

func unmarshalMap(d *Decoder, rv reflect.Value, depth int) error {
	t := rv.Type()
	n, known, err := d.ReadMapLen()
	if err != nil {
		return err
	}

	sizeHint := n
	if sizeHint > sliceGrowCap {
		sizeHint = sliceGrowCap
	}
	m := reflect.MakeMapWithSize(t, sizeHint)
	key := reflect.New(t.Key()).Elem()
	val := reflect.New(t.Elem()).Elem()

	readPair := func() error {
		key.SetZero()
		val.SetZero()
		if err := unmarshalValue(d, key, depth+1); err != nil {
			return err
		}
		if err := unmarshalValue(d, val, depth+1); err != nil {
			return err
		}
		m.SetMapIndex(key, val)
		return nil
	}

	if known {
		for i := 0; i < n; i++ {
			if err := readPair(); err != nil {
				return err
			}
		}
	} else {
		for {
			next, err := d.More()
			if err != nil {
				return err
			}
			if !next {
				break
			}
			if err := readPair(); err != nil {
				return err
			}
		}
	}

	rv.Set(m)
	return d.EndMap()
}

func unmarshalStruct(d *Decoder, rv reflect.Value, depth int) error {
	info, err := cachedStructInfo(rv.Type())
	if err != nil {
		return err
	}

	n, err := d.ReadStructHeader()
	if err != nil {
		return err
	}

	if d.cfg.WithIdentifiers {
		// Full: each field arrives as an identifier plus a
		// skip-wrapped value. Fields we do not know are drained;
		// fields the writer did not send keep their zero value.
		for i := 0; i < n; i++ {
			name, err := d.ReadFieldName()
			if err != nil {
				return err
			}
			d.BeginField()
			if idx, ok := info.byName[name]; ok {
				f := &info.fields[idx]
				if err := unmarshalValue(d, rv.FieldByIndex(f.index), depth+1); err != nil {
					return &DecodeError{
						Type:    rv.Type().Name(),
						Field:   name,
						Message: "field decoding failed",
						Cause:   err,
					}
				}
			}
			if err := d.EndField(); err != nil {
				return err
			}
		}
		return d.EndStruct()
	}

	// Slim: positional fields inside one struct-wide block. Fields
	// beyond what we know are drained by EndStruct; fields beyond what
	// the writer sent keep their zero value.
	count := n
	if count > len(info.fields) {
		count = len(info.fields)
	}
	for i := 0; i < count; i++ {
		f := &info.fields[i]
		if err := unmarshalValue(d, rv.FieldByIndex(f.index), depth+1); err != nil {
			return &DecodeError{
				Type:    rv.Type().Name(),
				Field:   f.name,
				Message: "field decoding failed",
				Cause:   err,
			}
		}
	}
	return d.EndStruct()
}

func unmarshalVariant(d *Decoder, rv reflect.Value, depth int) error {
	if DefaultRegistry.empty() {
		// Without registered variants the interface target amounts to
		// schema-free decoding, which the wire format cannot support.
		return ErrAnyUnsupported
	}

	name, index, err := d.ReadVariant()
	if err != nil {
		return err
	}

	var typ reflect.Type
	var withPayload, ok bool
	if d.cfg.WithIdentifiers {
		typ, withPayload, ok = DefaultRegistry.resolveName(name)
	} else {
		typ, withPayload, ok = DefaultRegistry.resolveIndex(index)
	}
	if !ok {
		if d.cfg.WithIdentifiers {
			return NewDecodeError(fmt.Sprintf("unknown variant %q", name), ErrBadEnum)
		}
		return NewDecodeError(fmt.Sprintf("unknown variant index %d", index), ErrBadEnum)
	}
	if !typ.AssignableTo(rv.Type()) {
		return NewDecodeError(
			fmt.Sprintf("variant type %s does not implement %s", typ, rv.Type()), ErrBadEnum)
	}

	if !withPayload {
		// Catch-all: the payload belongs to a variant this reader does
		// not know. It is left unread; the enclosing skippable block
		// discards it.
		rv.Set(reflect.Zero(typ))
		return nil
	}

	nv := reflect.New(typ).Elem()
	if err := unmarshalValue(d, nv, depth+1); err != nil {
		return err
	}
	rv.Set(nv)
	return nil
}
