package strongbox

import (
	"log/slog"
	"reflect"
	"sync"

	"github.com/illarion/strongbox/codec"
	"github.com/illarion/strongbox/internal/namespace"
	"github.com/illarion/strongbox/internal/store"
)

// ProtectedStore is the record store a Strongbox writes through. Insert is
// create-only and reports store.ErrDuplicateKey; Query and Delete report
// store.ErrNotFound for a missing key.
type ProtectedStore = store.Store

// Record is a single entry in a ProtectedStore.
type Record = store.Record

// Protected store errors, for ProtectedStore implementations outside this module.
var (
	ErrDuplicateKey = store.ErrDuplicateKey
	ErrNotFound     = store.ErrNotFound
	ErrLocked       = store.ErrLocked
)

// IdentityProvider supplies the default namespace when none is configured.
type IdentityProvider = namespace.Provider

// IdentityFunc adapts a function to IdentityProvider.
type IdentityFunc = namespace.ProviderFunc

// ProcessIdentity resolves the namespace from STRONGBOX_NAMESPACE or the
// executable name.
type ProcessIdentity = namespace.ProcessIdentity

type options struct {
	namespace    string
	hasNamespace bool
	identity     IdentityProvider
	graph        *codec.Graph
	logger       *slog.Logger
}

// Option customizes a Strongbox.
type Option func(*options)

// WithNamespace sets the key namespace. An empty namespace is honored and
// produces keys with a leading dot.
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.namespace = ns
		o.hasNamespace = true
	}
}

// WithIdentity sets the provider consulted for the namespace when
// WithNamespace is not given. The default is ProcessIdentity.
func WithIdentity(p IdentityProvider) Option {
	return func(o *options) {
		o.identity = p
	}
}

// WithGraph sets the object-graph codec and its type registry.
func WithGraph(g *codec.Graph) Option {
	return func(o *options) {
		if g != nil {
			o.graph = g
		}
	}
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Strongbox stores values in a ProtectedStore under namespaced keys.
// It is safe for concurrent use.
type Strongbox struct {
	namespace string
	adapter   adapter
	graph     *codec.Graph
	logger    *slog.Logger

	// mu serializes every operation so duplicate-key retries of concurrent
	// upserts cannot interleave.
	mu         sync.Mutex
	lastStatus Status
}

// New creates a Strongbox writing through st.
func New(st ProtectedStore, opts ...Option) *Strongbox {
	o := options{identity: ProcessIdentity{}}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.hasNamespace {
		o.namespace = namespace.Resolve(o.identity)
	}
	if o.graph == nil {
		o.graph = codec.NewGraph()
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	return &Strongbox{
		namespace: o.namespace,
		adapter:   adapter{store: st},
		graph:     o.graph,
		logger:    o.logger.With("namespace", o.namespace),
	}
}

// Namespace returns the key namespace.
func (s *Strongbox) Namespace() string {
	return s.namespace
}

// Graph returns the object-graph codec; register record types on it
// before archiving them.
func (s *Strongbox) Graph() *codec.Graph {
	return s.graph
}

// Key returns the namespaced key stored for key.
func (s *Strongbox) Key(key string) string {
	return namespace.Derive(s.namespace, key)
}

// LastStatus returns the status of the most recent protected-store call
// made by this instance.
func (s *Strongbox) LastStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStatus
}

// Archive stores value under key with the object-graph codec.
//
// A nil value, or a value the codec cannot encode, removes the key
// instead. An existing record is replaced, never merged.
func (s *Strongbox) Archive(value any, key string, tier Tier) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	nk := s.Key(key)
	if isNil(value) {
		return s.record("archive", s.adapter.delete(nk))
	}

	data, err := s.graph.Encode(value)
	if err != nil {
		s.logger.Info("value not encodable, removing key", "key", nk, "error", err)
		return s.record("archive", s.adapter.delete(nk))
	}
	return s.record("archive", s.adapter.upsert(nk, data, tier))
}

// Remove deletes key. Removing a key that does not exist succeeds.
func (s *Strongbox) Remove(key string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record("remove", s.adapter.delete(s.Key(key)))
}

// Unarchive returns the value stored under key by Archive. It returns nil
// with a non-OK result when the key is missing, the store fails, or the
// payload does not decode into a registered shape.
func (s *Strongbox) Unarchive(key string) (any, Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, res := s.adapter.fetch(s.Key(key))
	s.record("unarchive", res)
	if !res.OK() {
		return nil, res
	}

	v, err := s.graph.Decode(data)
	if err != nil {
		s.logger.Info("stored value not decodable", "key", res.Key, "error", err)
		return nil, Result{Key: res.Key, Status: res.Status, Err: err}
	}
	return v, res
}

// UnarchiveAs returns the value stored under key if it is a T. A value of
// any other shape is reported as absent.
func UnarchiveAs[T any](s *Strongbox, key string) (T, bool) {
	var zero T
	v, res := s.Unarchive(key)
	if !res.OK() {
		return zero, false
	}
	out, ok := v.(T)
	if !ok {
		s.logger.Debug("stored value has another shape", "key", res.Key, "stored", reflect.TypeOf(v).String())
		return zero, false
	}
	return out, true
}

// record stores res.Status as the last status and logs the call. It must
// be called with mu held.
func (s *Strongbox) record(op string, res Result) Result {
	s.lastStatus = res.Status
	if res.Err != nil {
		s.logger.Warn("store call failed", "op", op, "key", res.Key, "status", res.Status.String(), "error", res.Err)
	} else {
		s.logger.Debug(op, "key", res.Key, "status", res.Status.String())
	}
	return res
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
