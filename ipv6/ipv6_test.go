package ipv6

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/go-test/deep"

	"github.com/m-lab/netdissect/addr"
	"github.com/m-lab/netdissect/pdu"
)

// stubUnit is a minimal pdu.Unit used only to exercise dispatch; it stands
// in for an out-of-scope peer module (e.g. TCP) registered by its caller.
type stubUnit struct {
	pdu.Base
	kind    pdu.Kind
	payload []byte
}

func (s *stubUnit) Kind() pdu.Kind     { return s.kind }
func (s *stubUnit) HeaderSize() uint32 { return uint32(len(s.payload)) }
func (s *stubUnit) Parse(b []byte) error {
	s.payload = b
	return nil
}
func (s *stubUnit) SerializeInto(buf []byte, parent pdu.Unit) error {
	copy(buf, s.payload)
	return nil
}
func (s *stubUnit) MatchesResponse(b []byte) bool { return true }

func registerStubTCP(t *testing.T) {
	t.Helper()
	err := pdu.DefaultRegistry.Register(6, pdu.KindTCP, func(b []byte) (pdu.Unit, error) {
		return &stubUnit{kind: pdu.KindTCP, payload: b}, nil
	})
	if err != nil {
		t.Fatalf("register stub tcp: %v", err)
	}
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

func TestParseEmptyPayloadNoNextHeader(t *testing.T) {
	// 60 00 00 00 00 00 3b 40 + src(::1) + dst(::1)
	fixed := mustHex(t, "6000000000003b40")
	loopback := mustHex(t, "00000000000000000000000000000001") // 16 bytes, ::1
	b := append([]byte{}, fixed...)
	b = append(b, loopback...)
	b = append(b, loopback...)

	u := New()
	if err := u.Parse(b); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(u.ExtHeaders) != 0 {
		t.Fatalf("expected no extension headers, got %d", len(u.ExtHeaders))
	}
	raw, ok := u.Inner().(*pdu.RawPDU)
	if !ok {
		t.Fatalf("expected RawPDU inner, got %T", u.Inner())
	}
	if len(raw.Payload) != 0 {
		t.Fatalf("expected zero-length RawPDU payload, got %d", len(raw.Payload))
	}

	out, err := pdu.SerializeAll(u)
	if err != nil {
		t.Fatalf("SerializeAll: %v", err)
	}
	if !bytes.Equal(out, b) {
		t.Fatalf("round trip mismatch:\n got  %x\n want %x", out, b)
	}
}

func TestParseHopByHopThenTCP(t *testing.T) {
	registerStubTCP(t)

	fixed := mustHex(t, "60000000000e0040") // payload_length=14 (8 ext + 6 TCP), next_header=hop-by-hop(0)
	src := make([]byte, 16)
	src[15] = 1
	dst := make([]byte, 16)
	dst[15] = 2
	ext := []byte{0x06, 0x00, 0, 0, 0, 0, 0, 0} // next_header=TCP(6), len_octets=0, 6 bytes payload
	tcpMin := []byte{0, 0, 0, 0, 0, 0}          // minimal stand-in TCP bytes

	full := append([]byte{}, fixed...)
	full = append(full, src...)
	full = append(full, dst...)
	full = append(full, ext...)
	full = append(full, tcpMin...)

	u := New()
	if err := u.Parse(full); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(u.ExtHeaders) != 1 {
		t.Fatalf("expected 1 extension header, got %d", len(u.ExtHeaders))
	}
	if u.ExtHeaders[0].NextHeader != ExtType(6) {
		t.Fatalf("ext header option = %d, want 6", u.ExtHeaders[0].NextHeader)
	}
	if len(u.ExtHeaders[0].Payload) != 6 {
		t.Fatalf("ext header payload len = %d, want 6", len(u.ExtHeaders[0].Payload))
	}
	if u.Inner().Kind() != pdu.KindTCP {
		t.Fatalf("inner kind = %v, want TCP", u.Inner().Kind())
	}

	out, err := pdu.SerializeAll(u)
	if err != nil {
		t.Fatalf("SerializeAll: %v", err)
	}
	if !bytes.Equal(out, full) {
		t.Fatalf("round trip mismatch:\n got  %x\n want %x", out, full)
	}

	reparsed := New()
	if err := reparsed.Parse(out); err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if diff := deep.Equal(u.ExtHeaders, reparsed.ExtHeaders); diff != nil {
		t.Fatalf("extension headers changed across round trip: %v", diff)
	}
}

// TestUnrecognizedPayloadPreservesNextHeader parses a packet whose payload
// protocol has no registered builder (UDP here), so the inner becomes a
// RawPDU, and verifies serialization leaves the original next-header value
// in place rather than normalizing it away.
func TestUnrecognizedPayloadPreservesNextHeader(t *testing.T) {
	fixed := mustHex(t, "6000000000041140") // payload_length=4, next_header=UDP(17)
	full := append([]byte{}, fixed...)
	full = append(full, make([]byte, 32)...) // src + dst
	full = append(full, 0xde, 0xad, 0xbe, 0xef)

	u := New()
	if err := u.Parse(full); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := u.Inner().(*pdu.RawPDU); !ok {
		t.Fatalf("expected RawPDU inner for unregistered protocol, got %T", u.Inner())
	}

	out, err := pdu.SerializeAll(u)
	if err != nil {
		t.Fatalf("SerializeAll: %v", err)
	}
	if !bytes.Equal(out, full) {
		t.Fatalf("round trip mismatch:\n got  %x\n want %x", out, full)
	}
}

func TestAddExtHeaderChainsOnSerialize(t *testing.T) {
	registerStubTCP(t)

	u := New()
	u.Header.HopLimit = 64
	u.AddExtHeader(0, make([]byte, 6)) // 8 wire bytes; link recomputed below
	u.Header.NextHeader = HopByHop
	u.SetInner(&stubUnit{kind: pdu.KindTCP, payload: []byte{1, 2, 3, 4}})

	out, err := pdu.SerializeAll(u)
	if err != nil {
		t.Fatalf("SerializeAll: %v", err)
	}
	if out[6] != byte(HopByHop) {
		t.Fatalf("fixed next_header = %d, want hop-by-hop", out[6])
	}
	if out[FixedHeaderSize] != 6 {
		t.Fatalf("extension option byte = %d, want TCP discriminator 6", out[FixedHeaderSize])
	}
	if got := uint16(out[4])<<8 | uint16(out[5]); got != 8+4 {
		t.Fatalf("payload length = %d, want 12", got)
	}
}

func TestMatchesResponseAddressSymmetry(t *testing.T) {
	registerStubTCP(t)

	a := addr.IPv6{0x20, 0x01, 0xd, 0xb8}
	b := addr.IPv6{0x20, 0x01, 0xd, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 2}

	client := New()
	client.Header.Src = a
	client.Header.Dst = b
	client.SetInner(&stubUnit{kind: pdu.KindTCP})

	// Build a candidate reply buffer: src=b, dst=a, no extension headers,
	// next_header doesn't matter for the address check itself but must be
	// a non-extension value so the inner dispatch loop terminates cleanly.
	buildReply := func(dst addr.IPv6) []byte {
		buf := make([]byte, FixedHeaderSize)
		buf[0] = 0x60
		buf[6] = 6 // TCP
		buf[7] = 64
		copy(buf[8:24], b[:])
		copy(buf[24:40], dst[:])
		return buf
	}

	if !client.MatchesResponse(buildReply(a)) {
		t.Fatalf("expected exact address-symmetry match")
	}

	ff02 := addr.IPv6{0xff, 0x02, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}
	if !client.MatchesResponse(buildReply(ff02)) {
		t.Fatalf("expected ff02 multicast relaxation to match")
	}

	notReply := make([]byte, FixedHeaderSize)
	notReply[0] = 0x60
	notReply[6] = 6
	copy(notReply[8:24], a[:]) // wrong src
	copy(notReply[24:40], b[:])
	if client.MatchesResponse(notReply) {
		t.Fatalf("expected mismatch when src/dst are not swapped")
	}
}
