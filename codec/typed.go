package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"

	"gopkg.in/yaml.v3"
)

// Codec encodes and decodes values of a caller-chosen static type.
type Codec interface {
	// Name returns the codec identifier used for diagnostics.
	Name() string
	// Marshal serializes v into bytes.
	Marshal(v any) ([]byte, error)
	// Unmarshal deserializes data into v, which must be a pointer.
	Unmarshal(data []byte, v any) error
}

// JSON is a strict JSON codec: unknown object fields and trailing data are
// decode errors.
type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSON) Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after top-level value")
	}
	return nil
}

// YAML is a strict YAML codec: mapping keys without a destination field are
// decode errors.
type YAML struct{}

func (YAML) Name() string { return "yaml" }

func (YAML) Marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

func (YAML) Unmarshal(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty document")
		}
		return err
	}
	return nil
}

// Marshal encodes value with c.
func Marshal[T any](c Codec, value T) ([]byte, error) {
	data, err := c.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%s: cannot encode %s: %w", c.Name(), reflect.TypeFor[T](), err)
	}
	return data, nil
}

// Unmarshal decodes data as a T with c. Any failure is a *DecodeError.
func Unmarshal[T any](c Codec, data []byte) (T, error) {
	var out T
	if err := c.Unmarshal(data, &out); err != nil {
		var zero T
		return zero, &DecodeError{Codec: c.Name(), Type: reflect.TypeFor[T]().String(), Err: err}
	}
	return out, nil
}
