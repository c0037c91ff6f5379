// Package ipv6 implements the IPv6 protocol unit: a fixed 40-byte header
// followed by zero or more chained extension headers and an inner payload
// unit, per RFC 8200.
package ipv6

import (
	"fmt"

	"github.com/m-lab/netdissect/addr"
	"github.com/m-lab/netdissect/pdu"
	"github.com/m-lab/netdissect/wire"
)

// ExtType identifies an IPv6 extension-header kind, or a terminal
// next-header value such as NoNextHeader or an ordinary upper-layer
// protocol number.
type ExtType uint8

// Extension-header and terminal next-header values this unit recognizes
// directly.
const (
	HopByHop                  ExtType = 0
	Routing                   ExtType = 43
	Fragment                  ExtType = 44
	ESP                       ExtType = 50 // Security Encapsulation
	AH                        ExtType = 51 // Authentication
	DestinationOptions        ExtType = 60
	Mobility                  ExtType = 135
	DestinationRoutingOptions ExtType = 139 // Home Address destination option
	NoNextHeader              ExtType = 59
)

// isExtensionHeader reports whether t names a header this unit must keep
// walking past to find the inner unit's discriminator. NoNextHeader is
// deliberately excluded: it is a terminal value, so the walk stops
// immediately and dispatches on it like any ordinary upper-layer protocol
// number, consuming zero further bytes.
func isExtensionHeader(t ExtType) bool {
	switch t {
	case HopByHop, Routing, Fragment, ESP, AH, DestinationOptions, Mobility, DestinationRoutingOptions:
		return true
	}
	return false
}

// ExtHeader is one extension header in the chain: its own NextHeader byte
// (the discriminator of whatever follows it — the next extension header, or
// the inner unit if this is the last one) and its payload.
type ExtHeader struct {
	NextHeader ExtType
	Payload    []byte
}

// totalWireSize returns the number of bytes this extension header occupies
// on the wire, including its two control bytes.
func (e ExtHeader) totalWireSize() int {
	return 2 + len(e.Payload)
}

// FixedHeader holds the 40-byte prefix fields.
type FixedHeader struct {
	TrafficClass uint8
	FlowLabel    uint32 // low 20 bits significant
	NextHeader   ExtType
	HopLimit     uint8
	Src          addr.IPv6
	Dst          addr.IPv6

	// PayloadLength is recomputed at serialize time; exposed for callers
	// that want to inspect what the last parse/serialize observed.
	PayloadLength uint16
}

const FixedHeaderSize = 40

// Unit is the IPv6 protocol unit.
type Unit struct {
	pdu.Base
	Header     FixedHeader
	ExtHeaders []ExtHeader
}

// New returns an empty IPv6 unit with version implicitly 6 (not stored
// explicitly; always written as 6 at serialize time).
func New() *Unit {
	return &Unit{}
}

// Kind reports pdu.KindIPv6.
func (u *Unit) Kind() pdu.Kind { return pdu.KindIPv6 }

// HeaderSize is the 40-byte fixed prefix plus the wire size of every
// extension header, excluding the inner unit.
func (u *Unit) HeaderSize() uint32 {
	n := uint32(FixedHeaderSize)
	for _, e := range u.ExtHeaders {
		n += uint32(e.totalWireSize())
	}
	return n
}

// Parse decodes the 40-byte fixed header, then walks the extension-header
// chain, dispatching the first non-extension next-header value to an inner
// unit via the Protocol Dispatch Registry, falling back to Allocators,
// falling back to RawPDU.
func (u *Unit) Parse(b []byte) (err error) {
	defer func() { pdu.RecordParse("ipv6", err) }()

	r := wire.NewReader(b)
	if !r.CanRead(FixedHeaderSize) {
		return fmt.Errorf("ipv6: fixed header: %w", pdu.MalformedPacket)
	}

	b0, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("ipv6: %w", pdu.MalformedPacket)
	}
	b1, _ := r.ReadByte()
	b2, _ := r.ReadByte()
	b3, _ := r.ReadByte()

	trafficClass := (b0&0x0f)<<4 | b1>>4
	flowLabel := uint32(b1&0x0f)<<16 | uint32(b2)<<8 | uint32(b3)

	payloadLen, err := r.ReadBEUint16()
	if err != nil {
		return fmt.Errorf("ipv6: payload length: %w", pdu.MalformedPacket)
	}
	nextHeader, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("ipv6: next header: %w", pdu.MalformedPacket)
	}
	hopLimit, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("ipv6: hop limit: %w", pdu.MalformedPacket)
	}
	srcBytes, err := r.ReadN(16)
	if err != nil {
		return fmt.Errorf("ipv6: source address: %w", pdu.MalformedPacket)
	}
	dstBytes, err := r.ReadN(16)
	if err != nil {
		return fmt.Errorf("ipv6: destination address: %w", pdu.MalformedPacket)
	}

	header := FixedHeader{
		TrafficClass:  trafficClass,
		FlowLabel:     flowLabel,
		PayloadLength: payloadLen,
		NextHeader:    ExtType(nextHeader),
		HopLimit:      hopLimit,
		Src:           addr.IPv6FromBytes(srcBytes),
		Dst:           addr.IPv6FromBytes(dstBytes),
	}

	var exts []ExtHeader
	cur := header.NextHeader
	for isExtensionHeader(cur) {
		if !r.CanRead(2) {
			return fmt.Errorf("ipv6: truncated extension header: %w", pdu.MalformedPacket)
		}
		extNextHeader, _ := r.ReadByte()
		lengthOctets, _ := r.ReadByte()
		payloadLen := 8*(int(lengthOctets)+1) - 2
		payload, err := r.ReadN(payloadLen)
		if err != nil {
			return fmt.Errorf("ipv6: extension header overruns buffer: %w", pdu.MalformedPacket)
		}
		exts = append(exts, ExtHeader{
			NextHeader: ExtType(extNextHeader),
			Payload:    payload,
		})
		cur = ExtType(extNextHeader)
	}

	inner, err := buildInner(uint32(cur), r.Pointer())
	if err != nil {
		return err
	}
	u.Header = header
	u.ExtHeaders = exts
	u.SetInner(inner)
	return nil
}

// buildInner dispatches on the numeric discriminator id: Protocol Dispatch
// Registry first, then the IPv6 Allocator Registry, then RawPDU.
func buildInner(id uint32, rest []byte) (pdu.Unit, error) {
	if b, ok := pdu.DefaultRegistry.Lookup(id); ok {
		return b(rest)
	}
	if b, ok := Allocators.Lookup(id); ok {
		return b(rest)
	}
	return pdu.NewRawPDU(rest), nil
}

// innerDiscriminator resolves the wire discriminator for in's Kind, trying
// the Protocol Dispatch Registry before the IPv6 Allocator Registry. If in
// is nil, NoNextHeader is resolved, matching the "no more layers" chain
// terminator on the wire. If in's Kind has no registered discriminator
// (a RawPDU wrapping an unrecognized payload), ok is false and the caller
// leaves the chain exactly as parsed or constructed.
func innerDiscriminator(in pdu.Unit) (disc ExtType, ok bool) {
	if in == nil {
		return NoNextHeader, true
	}
	if id, ok := pdu.DefaultRegistry.IDFor(in.Kind()); ok {
		return ExtType(id), true
	}
	if id, ok := Allocators.IDFor(in.Kind()); ok {
		return ExtType(id), true
	}
	return 0, false
}

// SetLastNextHeader overwrites the terminal next-header link: the last
// extension header's NextHeader field, or the fixed header's NextHeader
// field if there are no extension headers. Links earlier in the chain are
// untouched.
func (u *Unit) SetLastNextHeader(t ExtType) {
	if len(u.ExtHeaders) > 0 {
		u.ExtHeaders[len(u.ExtHeaders)-1].NextHeader = t
	} else {
		u.Header.NextHeader = t
	}
}

// AddExtHeader appends an extension header carrying payload, which the
// caller sizes so that the total on-wire length (payload plus the two
// control bytes) is a multiple of 8 octets. The next-header chain is not
// touched here; SerializeInto recomputes the terminal link.
func (u *Unit) AddExtHeader(next ExtType, payload []byte) {
	u.ExtHeaders = append(u.ExtHeaders, ExtHeader{
		NextHeader: next,
		Payload:    append([]byte(nil), payload...),
	})
}

// SerializeInto writes the 40-byte fixed header and every extension header.
// It first rewrites only the terminal next-header link to match the inner
// unit's registered discriminator, and recomputes PayloadLength. All other
// next-header links are left exactly as constructed/parsed.
func (u *Unit) SerializeInto(buf []byte, parent pdu.Unit) error {
	pdu.RecordSerialize("ipv6")
	if disc, ok := innerDiscriminator(u.Inner()); ok {
		u.SetLastNextHeader(disc)
	}

	innerSize := uint32(0)
	if u.Inner() != nil {
		innerSize = pdu.TotalSize(u.Inner())
	}
	u.Header.PayloadLength = uint16(u.HeaderSize() - FixedHeaderSize + innerSize)

	w := wire.NewWriter(buf)
	b0 := byte(6)<<4 | (u.Header.TrafficClass >> 4)
	b1 := (u.Header.TrafficClass << 4) | byte(u.Header.FlowLabel>>16)
	b2 := byte(u.Header.FlowLabel >> 8)
	b3 := byte(u.Header.FlowLabel)
	w.WriteByte(b0)
	w.WriteByte(b1)
	w.WriteByte(b2)
	w.WriteByte(b3)
	w.WriteBEUint16(u.Header.PayloadLength)
	w.WriteByte(byte(u.Header.NextHeader))
	w.WriteByte(u.Header.HopLimit)
	w.Write(u.Header.Src[:])
	w.Write(u.Header.Dst[:])

	for _, e := range u.ExtHeaders {
		w.WriteByte(byte(e.NextHeader))
		w.WriteByte(byte(len(e.Payload) / 8))
		w.Write(e.Payload)
	}
	return nil
}

// MatchesResponse implements the address-symmetry rule with the narrow
// ff02::/16 multicast relaxation, recursing into the inner unit after
// skipping b's own extension-header chain.
func (u *Unit) MatchesResponse(b []byte) bool {
	if len(b) < FixedHeaderSize {
		return false
	}
	candidateSrc := addr.IPv6FromBytes(b[8:24])
	candidateDst := addr.IPv6FromBytes(b[24:40])

	if !candidateSrc.Equal(u.Header.Dst) {
		return false
	}
	if !candidateDst.Equal(u.Header.Src) && !candidateDst.IsLinkLocalMulticast() {
		return false
	}

	if u.Inner() == nil {
		return true
	}

	cur := ExtType(b[6])
	rest := b[FixedHeaderSize:]
	for isExtensionHeader(cur) {
		if len(rest) < 2 {
			return false
		}
		nextHeader := ExtType(rest[0])
		lengthOctets := rest[1]
		payloadLen := 8*(int(lengthOctets)+1) - 2
		if len(rest) < 2+payloadLen {
			return false
		}
		rest = rest[2+payloadLen:]
		cur = nextHeader
	}
	return u.Inner().MatchesResponse(rest)
}
