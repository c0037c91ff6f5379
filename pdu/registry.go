package pdu

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/m-lab/netdissect/metrics"
)

// Registry is a pair of process-wide lookup tables translating between a
// numeric next-protocol discriminator and the Builder/Kind that decodes and
// identifies it. Registries are typically mutated at process init and
// read-only thereafter; concurrent reads during parsing are safe. A
// sync.RWMutex guards the maps in case registration continues at runtime:
// lookups share the read lock, and a pending Register blocks new lookups
// until it has finished, so access is not reader-preferred.
//
// The core keeps two Registry instances: DefaultRegistry, the general
// Protocol Dispatch Registry shared by every unit's inner-layer dispatch,
// and ipv6.Allocators, a second, narrower table consulted only as an
// IPv6-specific fallback.
type Registry struct {
	mu        sync.RWMutex
	name      string // metrics label only; "" for an unlabeled registry
	builders  map[uint32]Builder
	kindToID  map[Kind]uint32
	buildKind map[uint32]Kind // remembers which Kind registered each id, for conflict detection
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		builders:  make(map[uint32]Builder),
		kindToID:  make(map[Kind]uint32),
		buildKind: make(map[uint32]Kind),
	}
}

// Named sets the registry's metrics label and returns it, for chaining
// onto a package-level var declaration.
func (r *Registry) Named(name string) *Registry {
	r.name = name
	return r
}

// Register associates the numeric discriminator id with kind and the
// decoder builder. Re-registering the same id+kind pair is accepted
// (idempotent) and replaces the stored builder; registering a different kind under an id already bound to
// another kind, or a different id under a kind already bound to another
// id, is rejected as a conflict.
func (r *Registry) Register(id uint32, kind Kind, b Builder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existingKind, ok := r.buildKind[id]; ok {
		if existingKind != kind {
			return fmt.Errorf("pdu: registry conflict: id %d already bound to kind %d, cannot rebind to %d", id, existingKind, kind)
		}
		// Same kind re-registered: idempotent, accept (builder may be a
		// fresh closure with identical behavior).
		r.builders[id] = b
		return nil
	}
	if existingID, ok := r.kindToID[kind]; ok && existingID != id {
		return fmt.Errorf("pdu: registry conflict: kind %d already bound to id %d, cannot rebind to %d", kind, existingID, id)
	}

	r.builders[id] = b
	r.kindToID[kind] = id
	r.buildKind[id] = kind
	return nil
}

// Lookup returns the Builder registered for id, if any.
func (r *Registry) Lookup(id uint32) (Builder, bool) {
	r.mu.RLock()
	b, ok := r.builders[id]
	r.mu.RUnlock()

	result := "miss"
	if ok {
		result = "hit"
	}
	metrics.RegistryLookupCount.With(prometheus.Labels{"registry": r.label(), "result": result}).Inc()
	return b, ok
}

func (r *Registry) label() string {
	if r.name == "" {
		return "unnamed"
	}
	return r.name
}

// BuilderFor returns the Builder registered for kind, if any. It serves
// dispatch sites where the next layer's identity is fixed by the outer
// frame's structure rather than carried as a numeric discriminator (e.g.
// a data frame's SNAP payload).
func (r *Registry) BuilderFor(kind Kind) (Builder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.kindToID[kind]
	if !ok {
		return nil, false
	}
	b, ok := r.builders[id]
	return b, ok
}

// IDFor returns the numeric discriminator registered for kind, if any. Units
// call this at serialize time to fill in a next-protocol/ethertype field
// from their inner unit's identity.
func (r *Registry) IDFor(kind Kind) (uint32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.kindToID[kind]
	return id, ok
}

// DefaultRegistry is the process-wide Protocol Dispatch Registry shared by
// all protocol units for inner-layer dispatch.
var DefaultRegistry = NewRegistry().Named("default")

// Register adds id/kind/b to DefaultRegistry. Peer protocol modules call
// this from their init functions; see also ipv6.RegisterAllocator for the
// IPv6-specific fallback table.
func Register(id uint32, kind Kind, b Builder) error {
	return DefaultRegistry.Register(id, kind, b)
}
