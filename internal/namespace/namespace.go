// Package namespace derives fully-qualified store keys and resolves the
// default namespace of the running application.
package namespace

import (
	"os"
	"path/filepath"
	"strings"
)

// EnvNamespace overrides the process identity when set.
const EnvNamespace = "STRONGBOX_NAMESPACE"

// Derive returns namespace + "." + key.
//
// An empty namespace yields a leading-dot key. Records written that way
// already exist, so the result is never trimmed or padded.
func Derive(namespace, key string) string {
	return namespace + "." + key
}

// Provider supplies the default namespace of the hosting application.
type Provider interface {
	DefaultNamespace() (string, bool)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func() (string, bool)

func (f ProviderFunc) DefaultNamespace() (string, bool) { return f() }

// ProcessIdentity resolves the namespace from STRONGBOX_NAMESPACE, falling
// back to the executable name without extension. A set but empty variable
// selects the empty namespace.
type ProcessIdentity struct{}

func (ProcessIdentity) DefaultNamespace() (string, bool) {
	if ns, ok := os.LookupEnv(EnvNamespace); ok {
		return ns, true
	}
	exe, err := os.Executable()
	if err != nil {
		return "", false
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name == "" || name == "." {
		return "", false
	}
	return name, true
}

// Resolve asks p for the default namespace. A nil provider or an absent
// identity resolves to the empty namespace; resolution never fails.
func Resolve(p Provider) string {
	if p == nil {
		return ""
	}
	ns, ok := p.DefaultNamespace()
	if !ok {
		return ""
	}
	return ns
}
