// Package codec turns values into the opaque payloads strongbox stores.
//
// Two independent paths are provided:
//   - Graph: a self-describing object-graph codec built on encoding/gob.
//     Only registered types can be encoded, and every payload records the
//     registered type name and a structural fingerprint of that type.
//     Decode refuses payloads whose recorded shape no longer matches the
//     registered type, so records are never reinterpreted as another shape.
//   - Codec: a typed-schema codec for one statically-known type, with JSON
//     and YAML implementations. Malformed payloads surface as *DecodeError.
package codec
