package duffel

import (
	"fmt"
	"reflect"
	"sync"
)

// Registry maps interface implementations to enum variants. An
// interface-typed value encodes as a variant discriminant followed by
// the concrete value: the variant name under Full, the varint variant
// index under Slim. Indices are assigned in registration order, so
// writers and readers must register variants in the same order for the
// Slim dialect to interoperate.
//
// A reader may additionally register a catch-all variant. A
// discriminant that does not resolve then yields the catch-all's zero
// value instead of an error, which lets an older reader accept data
// holding variants a newer writer introduced. The unread payload is
// discarded by the enclosing skippable block.
type Registry struct {
	mu       sync.RWMutex
	byType   map[reflect.Type]*variantInfo
	byName   map[string]*variantInfo
	byIndex  []*variantInfo
	catchAll reflect.Type
}

type variantInfo struct {
	name  string
	index uint32
	typ   reflect.Type
}

// NewRegistry creates an empty variant registry.
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[reflect.Type]*variantInfo),
		byName: make(map[string]*variantInfo),
	}
}

// DefaultRegistry is the registry used by Marshal and Unmarshal.
var DefaultRegistry = NewRegistry()

// Register adds a variant with the given name. The prototype's dynamic
// type identifies the variant during encoding; its index is the number
// of previously registered variants.
func (r *Registry) Register(name string, prototype any) error {
	t := reflect.TypeOf(prototype)
	if t == nil {
		return NewEncodeError("cannot register nil prototype", ErrUnsupportedType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("%w: name %q", ErrDuplicateVariant, name)
	}
	if _, dup := r.byType[t]; dup {
		return fmt.Errorf("%w: type %s", ErrDuplicateVariant, t)
	}

	info := &variantInfo{
		name:  name,
		index: uint32(len(r.byIndex)),
		typ:   t,
	}
	r.byType[t] = info
	r.byName[name] = info
	r.byIndex = append(r.byIndex, info)
	return nil
}

// RegisterCatchAll sets the variant an unknown discriminant resolves
// to. The catch-all decodes as its zero value; the unknown payload is
// not read.
func (r *Registry) RegisterCatchAll(prototype any) error {
	t := reflect.TypeOf(prototype)
	if t == nil {
		return NewEncodeError("cannot register nil catch-all", ErrUnsupportedType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.catchAll != nil {
		return fmt.Errorf("%w: catch-all", ErrDuplicateVariant)
	}
	r.catchAll = t
	return nil
}

// RegisterVariant adds a variant to DefaultRegistry.
func RegisterVariant(name string, prototype any) error {
	return DefaultRegistry.Register(name, prototype)
}

// RegisterCatchAll sets the catch-all variant of DefaultRegistry.
func RegisterCatchAll(prototype any) error {
	return DefaultRegistry.RegisterCatchAll(prototype)
}

// empty reports whether the registry holds no variants at all.
func (r *Registry) empty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byIndex) == 0 && r.catchAll == nil
}

// variantOf resolves the variant of a concrete type for encoding.
func (r *Registry) variantOf(t reflect.Type) (*variantInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.byType[t]
	return info, ok
}

// resolveName resolves a decoded variant name to its concrete type.
// withPayload is false when the name fell through to the catch-all.
func (r *Registry) resolveName(name string) (t reflect.Type, withPayload, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if info, found := r.byName[name]; found {
		return info.typ, true, true
	}
	if r.catchAll != nil {
		return r.catchAll, false, true
	}
	return nil, false, false
}

// resolveIndex resolves a decoded variant index to its concrete type.
// withPayload is false when the index fell through to the catch-all.
func (r *Registry) resolveIndex(index uint32) (t reflect.Type, withPayload, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(index) < len(r.byIndex) {
		return r.byIndex[index].typ, true, true
	}
	if r.catchAll != nil {
		return r.catchAll, false, true
	}
	return nil, false, false
}
