// Package pdu defines the protocol-unit contract every layer (ipv6, dns,
// dot11, and any peer the catalogue eventually grows) implements, plus the
// dispatch registries used to pick an inner unit's decoder from a numeric
// discriminator carried by the outer unit.
package pdu

// Kind tags a Unit's protocol identity. Peer units outside this repository
// (Ethernet, ARP, TCP, UDP, ICMP, SNAP, Radiotap, ...) register their own
// Kind values at init time via Register; the core only defines the kinds it
// implements plus the handful of peer kinds IPv6/DNS/802.11 need to name as
// next-header/ethertype targets.
type Kind uint32

const (
	// KindRaw is the fallback identity for RawPDU.
	KindRaw Kind = iota
	KindIPv6
	KindDNS
	KindDot11

	// Peer kinds referenced as inner-unit targets but implemented outside
	// this repository. Only their numeric wire discriminator and registry
	// Kind are needed here.
	KindEthernet
	KindARP
	KindTCP
	KindUDP
	KindICMP
	KindICMPv6
	KindSNAP
	KindRadiotap
)

// Unit is the polymorphic contract every protocol layer implements: a
// tagged sum dispatched by matching on Kind, in place of the C++ class
// hierarchy the wire layers were originally built around.
type Unit interface {
	// Kind reports this unit's tagged identity.
	Kind() Kind

	// HeaderSize returns the exact number of bytes this unit will write
	// during SerializeInto, excluding its inner unit.
	HeaderSize() uint32

	// Parse decodes b as this unit's fixed header and, where applicable,
	// its variable-length body, consuming only the bytes that belong to
	// this layer. It returns MalformedPacket (wrapped with context) on any
	// bounds violation; it never leaves the receiver partially populated
	// on error.
	Parse(b []byte) error

	// SerializeInto writes exactly HeaderSize() bytes at buf[0:HeaderSize()].
	// parent is the enclosing unit, supplied so a child can read parent
	// fields it needs (e.g. a pseudo-header checksum); it is nil at the
	// top of a chain. Before writing, a unit may adjust self-referential
	// fields that depend on total size or on its inner unit's identity.
	SerializeInto(buf []byte, parent Unit) error

	// MatchesResponse reports whether b, an inbound buffer starting at
	// this layer, could be the reply to the request this instance
	// represents.
	MatchesResponse(b []byte) bool

	// Inner returns the owned next-layer unit, or nil if this unit has
	// none (always nil for RawPDU).
	Inner() Unit

	// SetInner replaces the owned next-layer unit, dropping the prior one.
	SetInner(u Unit)
}

// Builder constructs a Unit from its wire bytes. Registered builders are
// looked up by numeric discriminator in a Registry (registry.go).
type Builder func(b []byte) (Unit, error)

// Base provides the Inner/SetInner bookkeeping shared by every concrete
// Unit implementation, so individual unit types only implement their own
// wire format.
type Base struct {
	inner Unit
}

// Inner returns the owned inner unit.
func (b *Base) Inner() Unit { return b.inner }

// SetInner replaces the owned inner unit.
func (b *Base) SetInner(u Unit) { b.inner = u }

// TotalSize returns u's HeaderSize plus the recursive size of its inner
// chain — the total number of bytes SerializeAll(u) will produce.
func TotalSize(u Unit) uint32 {
	n := u.HeaderSize()
	if in := u.Inner(); in != nil {
		n += TotalSize(in)
	}
	return n
}

// SerializeAll serializes u and its full inner chain into a freshly
// allocated buffer sized via TotalSize, honoring the parent-visibility
// contract of SerializeInto at each layer.
func SerializeAll(u Unit) ([]byte, error) {
	buf := make([]byte, TotalSize(u))
	if err := serializeChain(u, buf, nil); err != nil {
		return nil, err
	}
	return buf, nil
}

func serializeChain(u Unit, buf []byte, parent Unit) error {
	n := u.HeaderSize()
	if err := u.SerializeInto(buf[:n], parent); err != nil {
		return err
	}
	if in := u.Inner(); in != nil {
		return serializeChain(in, buf[n:], u)
	}
	return nil
}

// Chain links units in order, head first, setting each one's inner to the
// next, and returns the head. It is the construction-time counterpart to
// Parse's decode-time chaining, used by callers building a unit chain by
// hand.
func Chain(units ...Unit) Unit {
	if len(units) == 0 {
		return nil
	}
	for i := 0; i < len(units)-1; i++ {
		units[i].SetInner(units[i+1])
	}
	return units[0]
}
