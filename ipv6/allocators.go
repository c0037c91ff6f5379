package ipv6

import "github.com/m-lab/netdissect/pdu"

// Allocators is the IPv6 Allocator Registry: a
// second process-wide table, distinct from pdu.DefaultRegistry, consulted
// only when the Protocol Dispatch Registry has no builder for a given
// next-header value. It exists so IPv6-specific inner kinds that are not
// otherwise part of the shared dispatch table (e.g. a peer module that only
// ever appears as an IPv6 payload) can still be resolved without polluting
// the registry every other unit consults first.
var Allocators = pdu.NewRegistry().Named("ipv6-allocators")

// RegisterAllocator registers a builder for id/kind in the IPv6 Allocator
// Registry.
func RegisterAllocator(id uint32, kind pdu.Kind, b pdu.Builder) error {
	return Allocators.Register(id, kind, b)
}
