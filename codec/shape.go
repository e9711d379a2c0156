package codec

import (
	"encoding"
	"encoding/gob"
	"reflect"
	"strconv"
	"strings"
)

var (
	gobEncoderType    = reflect.TypeFor[gob.GobEncoder]()
	binaryMarshalType = reflect.TypeFor[encoding.BinaryMarshaler]()
)

// shapeOf returns a structural fingerprint of t. Two types with the same
// fingerprint decode each other's gob payloads without loss.
func shapeOf(t reflect.Type) string {
	var b strings.Builder
	writeShape(&b, t, make(map[reflect.Type]bool))
	return b.String()
}

func writeShape(b *strings.Builder, t reflect.Type, seen map[reflect.Type]bool) {
	// Types that serialize themselves are opaque to gob, so their own
	// identity is the shape.
	if selfEncoding(t) || (t.Kind() != reflect.Pointer && selfEncoding(reflect.PointerTo(t))) {
		b.WriteString("opaque(")
		b.WriteString(t.String())
		b.WriteByte(')')
		return
	}

	switch t.Kind() {
	case reflect.Pointer:
		b.WriteByte('*')
		writeShape(b, t.Elem(), seen)
	case reflect.Slice:
		b.WriteString("[]")
		writeShape(b, t.Elem(), seen)
	case reflect.Array:
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(t.Len()))
		b.WriteByte(']')
		writeShape(b, t.Elem(), seen)
	case reflect.Map:
		b.WriteString("map[")
		writeShape(b, t.Key(), seen)
		b.WriteByte(']')
		writeShape(b, t.Elem(), seen)
	case reflect.Interface:
		b.WriteString("any")
	case reflect.Struct:
		if seen[t] {
			b.WriteString("self(")
			b.WriteString(t.Name())
			b.WriteByte(')')
			return
		}
		seen[t] = true
		defer delete(seen, t)

		b.WriteString("struct{")
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() || ignoredByGob(f.Type) {
				continue
			}
			b.WriteString(f.Name)
			b.WriteByte(' ')
			writeShape(b, f.Type, seen)
			b.WriteByte(';')
		}
		b.WriteByte('}')
	default:
		b.WriteString(t.Kind().String())
	}
}

func selfEncoding(t reflect.Type) bool {
	return t.Implements(gobEncoderType) || t.Implements(binaryMarshalType)
}

func ignoredByGob(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Chan, reflect.Func:
		return true
	}
	return false
}

// holdsInterface reports whether a value of type t can contain an interface
// value that gob encodes. Self-encoding types are opaque.
func holdsInterface(t reflect.Type, seen map[reflect.Type]bool) bool {
	if selfEncoding(t) || (t.Kind() != reflect.Pointer && selfEncoding(reflect.PointerTo(t))) {
		return false
	}
	switch t.Kind() {
	case reflect.Interface:
		return true
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return holdsInterface(t.Elem(), seen)
	case reflect.Map:
		return holdsInterface(t.Key(), seen) || holdsInterface(t.Elem(), seen)
	case reflect.Struct:
		if seen[t] {
			return false
		}
		seen[t] = true
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.IsExported() && !ignoredByGob(f.Type) && holdsInterface(f.Type, seen) {
				return true
			}
		}
	}
	return false
}
