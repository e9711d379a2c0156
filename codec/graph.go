package codec

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"reflect"
	"sync"
	"time"
)

const payloadVersion uint8 = 2

// header precedes every object-graph payload. Nested maps the name of every
// registered type held in an interface inside the value to its shape.
type header struct {
	Version uint8
	Type    string
	Shape   string
	Nested  map[string]string
}

// Graph is an allow-list of types the object-graph codec may encode and
// reconstruct. It is safe for concurrent use.
type Graph struct {
	mu     sync.RWMutex
	byType map[reflect.Type]string
	byName map[string]reflect.Type
}

// NewGraph returns a Graph with the built-in value types registered:
// strings, booleans, integers, floats, byte slices, times, and string-keyed
// collections of them.
func NewGraph() *Graph {
	g := &Graph{
		byType: make(map[reflect.Type]string),
		byName: make(map[string]reflect.Type),
	}
	builtins := []struct {
		name  string
		value any
	}{
		{"string", ""},
		{"bool", false},
		{"int", int(0)},
		{"int64", int64(0)},
		{"uint64", uint64(0)},
		{"float64", float64(0)},
		{"bytes", []byte(nil)},
		{"time", time.Time{}},
		{"list", []any(nil)},
		{"strings", []string(nil)},
		{"dict", map[string]any(nil)},
		{"string-dict", map[string]string(nil)},
		{"string-dict-list", []map[string]string(nil)},
		{"string-set", map[string]bool(nil)},
	}
	for _, b := range builtins {
		if err := g.register(reflect.TypeOf(b.value), b.name); err != nil {
			panic(err)
		}
	}
	return g
}

// Register adds T to g under name. The name is recorded in every payload of
// type T, so it must stay stable for as long as such records exist.
func Register[T any](g *Graph, name string) error {
	return g.register(reflect.TypeFor[T](), name)
}

// MustRegister is like Register but panics on error.
func MustRegister[T any](g *Graph, name string) {
	if err := Register[T](g, name); err != nil {
		panic(err)
	}
}

func (g *Graph) register(t reflect.Type, name string) (err error) {
	if name == "" {
		return fmt.Errorf("cannot register %s under an empty name", t)
	}
	switch t.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return fmt.Errorf("cannot register %s: %s values are not storable", t, t.Kind())
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.byName[name]; ok {
		if existing == t {
			return nil
		}
		return fmt.Errorf("name %q already registered for %s", name, existing)
	}
	if existing, ok := g.byType[t]; ok {
		return fmt.Errorf("type %s already registered as %q", t, existing)
	}

	// gob needs the concrete type to move it through interface values such
	// as the elements of []any.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cannot register %s: %v", t, r)
		}
	}()
	gob.Register(reflect.Zero(t).Interface())

	g.byType[t] = name
	g.byName[name] = t
	return nil
}

// Registered reports the name t was registered under.
func (g *Graph) Registered(t reflect.Type) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	name, ok := g.byType[t]
	return name, ok
}

func (g *Graph) lookup(name string) (reflect.Type, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.byName[name]
	return t, ok
}

// Encode serializes v with its type name and shape. Values of unregistered
// types, values holding an unregistered type anywhere inside an interface,
// and registered values gob cannot carry fail with ErrEncodeRejected.
func (g *Graph) Encode(v any) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil value", ErrEncodeRejected)
	}
	t := reflect.TypeOf(v)
	name, ok := g.Registered(t)
	if !ok {
		return nil, fmt.Errorf("%w: type %s is not registered", ErrEncodeRejected, t)
	}

	nested := make(map[string]string)
	if err := g.walk(reflect.ValueOf(v), nested, make(map[uintptr]bool)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeRejected, err)
	}

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	h := header{Version: payloadVersion, Type: name, Shape: shapeOf(t), Nested: nested}
	if err := enc.Encode(&h); err != nil {
		return nil, fmt.Errorf("failed to encode header: %w", err)
	}
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeRejected, err)
	}
	return buf.Bytes(), nil
}

// walk visits every value reachable from v. A concrete value held in an
// interface must be of a type registered with g; its name and shape are
// added to nested.
func (g *Graph) walk(v reflect.Value, nested map[string]string, seen map[uintptr]bool) error {
	if !holdsInterface(v.Type(), make(map[reflect.Type]bool)) {
		return nil
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		elem := v.Elem()
		name, ok := g.Registered(elem.Type())
		if !ok {
			return fmt.Errorf("nested type %s is not registered", elem.Type())
		}
		nested[name] = shapeOf(elem.Type())
		return g.walk(elem, nested, seen)
	case reflect.Pointer:
		if v.IsNil() || seen[v.Pointer()] {
			return nil
		}
		seen[v.Pointer()] = true
		return g.walk(v.Elem(), nested, seen)
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := g.walk(v.Index(i), nested, seen); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if err := g.walk(iter.Key(), nested, seen); err != nil {
				return err
			}
			if err := g.walk(iter.Value(), nested, seen); err != nil {
				return err
			}
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() || ignoredByGob(f.Type) {
				continue
			}
			if err := g.walk(v.Field(i), nested, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

// Inspect returns the type name recorded in a payload without decoding the
// value.
func (g *Graph) Inspect(data []byte) (string, error) {
	h, _, err := readHeader(data)
	if err != nil {
		return "", err
	}
	return h.Type, nil
}

// Decode reconstructs a value from a payload produced by Encode. The
// recorded type, and every type recorded as nested inside it, must be
// registered with g under a matching shape; otherwise Decode fails with
// ErrUnknownType or ErrShapeMismatch before touching the value bytes.
func (g *Graph) Decode(data []byte) (any, error) {
	h, dec, err := readHeader(data)
	if err != nil {
		return nil, err
	}
	t, err := g.check(h.Type, h.Shape)
	if err != nil {
		return nil, err
	}
	for name, shape := range h.Nested {
		if _, err := g.check(name, shape); err != nil {
			return nil, err
		}
	}

	ptr := reflect.New(t)
	if err := dec.DecodeValue(ptr); err != nil {
		return nil, &DecodeError{Codec: "graph", Type: h.Type, Err: err}
	}

	// gob resolves interface values by its process-wide registry, so a type
	// missing from the header can still come back.
	got := make(map[string]string)
	if err := g.walk(ptr.Elem(), got, make(map[uintptr]bool)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownType, err)
	}
	for name := range got {
		if _, ok := h.Nested[name]; !ok {
			return nil, fmt.Errorf("%w: %q not recorded in payload", ErrUnknownType, name)
		}
	}
	return ptr.Elem().Interface(), nil
}

// check returns the type registered under name if its shape matches shape
func (g *Graph) check(name, shape string) (reflect.Type, error) {
	t, ok := g.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	if registered := shapeOf(t); registered != shape {
		return nil, fmt.Errorf("%w: %q recorded as %s, registered as %s", ErrShapeMismatch, name, shape, registered)
	}
	return t, nil
}

func readHeader(data []byte) (header, *gob.Decoder, error) {
	var h header
	if len(data) == 0 {
		return h, nil, &DecodeError{Codec: "graph", Type: "header", Err: fmt.Errorf("empty payload")}
	}
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&h); err != nil {
		return h, nil, &DecodeError{Codec: "graph", Type: "header", Err: err}
	}
	if h.Version != payloadVersion {
		return h, nil, &DecodeError{Codec: "graph", Type: "header", Err: fmt.Errorf("unsupported payload version %d", h.Version)}
	}
	return h, dec, nil
}

// DecodeAs decodes data and narrows the result to T. A stored value that is
// not a T fails with ErrShapeMismatch; it is never converted.
func DecodeAs[T any](g *Graph, data []byte) (T, error) {
	var zero T
	v, err := g.Decode(data)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: stored %T, requested %s", ErrShapeMismatch, v, reflect.TypeFor[T]())
	}
	return out, nil
}
