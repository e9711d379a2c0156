// Package strongbox is a namespaced secure key-value store for arbitrary
// values, backed by a protected store such as the OS credential vault.
//
// Every logical key is scoped by the instance namespace: the stored key is
// namespace + "." + key. The namespace defaults to the application identity
// (STRONGBOX_NAMESPACE or the executable name).
//
// Values travel one of two paths:
//   - Archive / Unarchive use the object-graph codec, which stores any
//     registered type together with its shape and never hands back a value
//     of an incompatible shape.
//   - Encode / Decode use a typed-schema codec (JSON, YAML) for a single
//     static type and return a *codec.DecodeError for malformed payloads.
//
// Archive and Remove never return errors: the outcome of the store call is
// reported by the returned Result. Archiving a nil value removes the key.
//
// All operations on one Strongbox are serialized by an instance lock.
// Separate instances sharing a namespace are not coordinated.
//
//	sb := strongbox.New(strongbox.NewKeyringStore(""), strongbox.WithNamespace("com.example.app"))
//	if !sb.Archive("abc123", "Token", strongbox.TierWhenUnlocked).OK() {
//		log.Printf("archive failed: %s", sb.LastStatus())
//	}
//	token, ok := strongbox.UnarchiveAs[string](sb, "Token")
package strongbox
