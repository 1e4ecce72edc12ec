package duffel

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// structField describes one encodable field of a struct type.
type structField struct {
	// name is the wire identifier: the Go field name, or the rename
	// from the `duffel:"name"` struct tag. Renaming a field to a
	// compact identifier ("_0" .. "_59") opts it into the one-byte
	// identifier encoding under Full.
	name string

	// index is the reflect field index path.
	index []int
}

// structInfo is the cached encode/decode plan for a struct type.
type structInfo struct {
	fields []structField
	byName map[string]int
}

// structCache caches structInfo per reflect.Type.
var structCache sync.Map // reflect.Type -> *structInfo

// cachedStructInfo returns the field plan for t, computing and caching
// it on first use.
func cachedStructInfo(t reflect.Type) (*structInfo, error) {
	if cached, ok := structCache.Load(t); ok {
		return cached.(*structInfo), nil
	}

	info, err := buildStructInfo(t)
	if err != nil {
		return nil, err
	}
	actual, _ := structCache.LoadOrStore(t, info)
	return actual.(*structInfo), nil
}

func buildStructInfo(t reflect.Type) (*structInfo, error) {
	info := &structInfo{
		byName: make(map[string]int),
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		name := f.Name
		if tag, ok := f.Tag.Lookup("duffel"); ok {
			if tag == "-" {
				continue
			}
			if comma := strings.IndexByte(tag, ','); comma >= 0 {
				tag = tag[:comma]
			}
			if tag != "" {
				name = tag
			}
		}

		if _, dup := info.byName[name]; dup {
			return nil, NewEncodeError(
				fmt.Sprintf("%s: duplicate field name %q", t, name), nil)
		}

		info.byName[name] = len(info.fields)
		info.fields = append(info.fields, structField{
			name:  name,
			index: f.Index,
		})
	}

	return info, nil
}
