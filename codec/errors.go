package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrEncodeRejected marks a value the object-graph codec cannot store.
	ErrEncodeRejected = errors.New("value not supported by object-graph codec")
	// ErrShapeMismatch marks a payload whose recorded shape does not fit the
	// requested or registered type.
	ErrShapeMismatch = errors.New("stored shape does not match requested type")
	// ErrUnknownType marks a payload recorded under a type name that is not
	// registered with the decoding Graph.
	ErrUnknownType = errors.New("stored type is not registered")
)

// DecodeError reports a payload that could not be decoded into Type.
type DecodeError struct {
	Codec string
	Type  string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: cannot decode %s: %v", e.Codec, e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
