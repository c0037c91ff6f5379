// Package dot11 implements the IEEE 802.11 frame protocol unit family: a
// fixed header (frame control, duration, three or four MAC addresses,
// sequence control) followed by a subtype-specific body — a management
// frame's fixed fields plus a tagged-parameter list, or a data frame's
// inner payload.
package dot11

import (
	"fmt"

	"github.com/m-lab/netdissect/addr"
	"github.com/m-lab/netdissect/pdu"
)

// Frame types, carried in the 2-bit Type field of the frame control word.
const (
	TypeManagement uint8 = 0
	TypeControl    uint8 = 1
	TypeData       uint8 = 2
)

// Management subtypes this package models directly.
const (
	SubtypeAssocRequest  uint8 = 0
	SubtypeAssocResponse uint8 = 1
	SubtypeBeacon        uint8 = 8
	SubtypeDisassoc      uint8 = 10
)

// baseHeaderSize is the fixed header length without addr4: frame control
// (2) + duration (2) + addr1/2/3 (6 each) + sequence control (2).
const baseHeaderSize = 24

// FrameControl holds the bitfields of the 2-byte frame-control word.
type FrameControl struct {
	Version uint8
	Type    uint8
	Subtype uint8

	ToDS       bool
	FromDS     bool
	MoreFrag   bool
	Retry      bool
	PowerMgmt  bool
	MoreData   bool
	WEP        bool
	Order      bool
}

func parseFrameControl(b0, b1 byte) FrameControl {
	return FrameControl{
		Version:   b0 & 0x03,
		Type:      (b0 >> 2) & 0x03,
		Subtype:   (b0 >> 4) & 0x0F,
		ToDS:      b1&0x01 != 0,
		FromDS:    b1&0x02 != 0,
		MoreFrag:  b1&0x04 != 0,
		Retry:     b1&0x08 != 0,
		PowerMgmt: b1&0x10 != 0,
		MoreData:  b1&0x20 != 0,
		WEP:       b1&0x40 != 0,
		Order:     b1&0x80 != 0,
	}
}

func (fc FrameControl) encode() (b0, b1 byte) {
	b0 = (fc.Version & 0x03) | (fc.Type&0x03)<<2 | (fc.Subtype&0x0F)<<4
	if fc.ToDS {
		b1 |= 0x01
	}
	if fc.FromDS {
		b1 |= 0x02
	}
	if fc.MoreFrag {
		b1 |= 0x04
	}
	if fc.Retry {
		b1 |= 0x08
	}
	if fc.PowerMgmt {
		b1 |= 0x10
	}
	if fc.MoreData {
		b1 |= 0x20
	}
	if fc.WEP {
		b1 |= 0x40
	}
	if fc.Order {
		b1 |= 0x80
	}
	return b0, b1
}

// Unit is the IEEE 802.11 frame protocol unit.
type Unit struct {
	pdu.Base

	FC         FrameControl
	Duration   uint16
	Addr1      addr.MAC
	Addr2      addr.MAC
	Addr3      addr.MAC
	Addr4      *addr.MAC // present iff FC.ToDS && FC.FromDS
	SeqControl uint16    // fragment[4] | sequence[12], little-endian on wire

	// Truncated is set when the source buffer was shorter than the full
	// fixed header; header fields beyond the available bytes read as
	// zero and no body is decoded.
	Truncated bool

	Body    Body                 // management-frame fixed body, or nil
	Params  *TaggedParameterList // management-frame tagged options, or nil
	QoS     *uint16              // QoS control word for QoS data frames
	Payload []byte               // raw trailing bytes when no Body/inner applies
}

func New() *Unit { return &Unit{} }

func (u *Unit) Kind() pdu.Kind { return pdu.KindDot11 }

func (u *Unit) hasAddr4() bool { return u.FC.ToDS && u.FC.FromDS }

func (u *Unit) fixedHeaderSize() int {
	n := baseHeaderSize
	if u.hasAddr4() {
		n += 6
	}
	return n
}

// HeaderSize is the fixed header, the addr4 field if present, a QoS
// control word if present, the body's fixed size if any, the tagged
// parameter list's encoded size if any, and the raw Payload bytes if any.
// A truncated frame reports its zero-padded fixed header. It excludes any
// inner unit (SNAP for data subtypes 0-3).
func (u *Unit) HeaderSize() uint32 {
	if u.Truncated {
		return uint32(len(u.encodeTruncated()))
	}
	n := u.fixedHeaderSize()
	if u.QoS != nil {
		n += 2
	}
	if u.Body != nil {
		n += u.Body.bodySize()
	}
	if u.Params != nil {
		n += u.Params.encodedSize()
	}
	n += len(u.Payload)
	return uint32(n)
}

// Fragment and Sequence decode SeqControl's two subfields.
func (u *Unit) Fragment() uint8  { return uint8(u.SeqControl & 0x000F) }
func (u *Unit) Sequence() uint16 { return u.SeqControl >> 4 }

// Parse decodes the frame per the base-parse rule: at least 2 bytes
// (frame control) are required; a buffer shorter than the full fixed
// header is accepted as a truncated frame with no body.
func (u *Unit) Parse(b []byte) (err error) {
	defer func() { pdu.RecordParse("dot11", err) }()

	if len(b) < 2 {
		return fmt.Errorf("dot11: frame control: %w", pdu.MalformedPacket)
	}
	v := New()
	v.FC = parseFrameControl(b[0], b[1])

	full := baseHeaderSize
	if v.hasAddr4() {
		full += 6
	}
	if len(b) < full {
		v.Truncated = true
		v.parseHeaderFields(zeroPad(b, full))
		*u = *v
		return nil
	}
	v.parseHeaderFields(b)

	if err = v.parseBody(b[full:]); err != nil {
		return err
	}
	*u = *v
	return nil
}

func zeroPad(b []byte, n int) []byte {
	out := make([]byte, n)
	copy(out, b)
	return out
}

func (u *Unit) parseHeaderFields(b []byte) {
	u.Duration = uint16(b[2]) | uint16(b[3])<<8
	u.Addr1 = addr.MACFromBytes(b[4:10])
	u.Addr2 = addr.MACFromBytes(b[10:16])
	u.Addr3 = addr.MACFromBytes(b[16:22])
	u.SeqControl = uint16(b[22]) | uint16(b[23])<<8
	if u.hasAddr4() {
		a4 := addr.MACFromBytes(b[24:30])
		u.Addr4 = &a4
	} else {
		u.Addr4 = nil
	}
}

func (u *Unit) parseBody(rest []byte) error {
	u.Body = nil
	u.Params = nil
	u.QoS = nil
	u.Payload = nil
	u.SetInner(nil)

	switch {
	case u.FC.Type == TypeManagement:
		body, tail, err := parseManagementBody(u.FC.Subtype, rest)
		if err != nil {
			return err
		}
		u.Body = body
		params, err := parseTaggedParameters(tail)
		if err != nil {
			return err
		}
		u.Params = params

	case u.FC.Type == TypeData && u.FC.Subtype < 4:
		// Wrap as SNAP when a SNAP builder is registered; otherwise
		// fall back to RawPDU like any unrecognized inner.
		if b, ok := pdu.DefaultRegistry.BuilderFor(pdu.KindSNAP); ok {
			snapUnit, err := b(rest)
			if err != nil {
				return err
			}
			u.SetInner(snapUnit)
		} else {
			u.SetInner(pdu.NewRawPDU(rest))
		}

	case u.FC.Type == TypeData && u.FC.Subtype >= 8:
		if len(rest) < 2 {
			return fmt.Errorf("dot11: truncated QoS control: %w", pdu.MalformedPacket)
		}
		qos := uint16(rest[0]) | uint16(rest[1])<<8
		u.QoS = &qos
		u.Payload = append([]byte(nil), rest[2:]...)

	default:
		u.Payload = append([]byte(nil), rest...)
	}
	return nil
}

// SerializeInto writes the fixed header, any QoS control word, the body
// and tagged parameters (management frames), or defers to the inner unit
// (data frames wrapping SNAP).
func (u *Unit) SerializeInto(buf []byte, parent pdu.Unit) error {
	pdu.RecordSerialize("dot11")
	if u.Truncated {
		copy(buf, u.encodeTruncated())
		return nil
	}

	pos := 0
	b0, b1 := u.FC.encode()
	buf[0], buf[1] = b0, b1
	buf[2] = byte(u.Duration)
	buf[3] = byte(u.Duration >> 8)
	copy(buf[4:10], u.Addr1[:])
	copy(buf[10:16], u.Addr2[:])
	copy(buf[16:22], u.Addr3[:])
	buf[22] = byte(u.SeqControl)
	buf[23] = byte(u.SeqControl >> 8)
	pos = baseHeaderSize
	if u.hasAddr4() {
		if u.Addr4 == nil {
			return fmt.Errorf("dot11: addr4 required but absent: %w", pdu.MalformedPacket)
		}
		copy(buf[pos:pos+6], u.Addr4[:])
		pos += 6
	}

	if u.QoS != nil {
		buf[pos] = byte(*u.QoS)
		buf[pos+1] = byte(*u.QoS >> 8)
		pos += 2
	}
	if u.Body != nil {
		u.Body.encodeBody(buf[pos:])
		pos += u.Body.bodySize()
	}
	if u.Params != nil {
		copy(buf[pos:], u.Params.encode())
		pos += u.Params.encodedSize()
	}
	if u.Payload != nil {
		copy(buf[pos:], u.Payload)
	}
	return nil
}

func (u *Unit) encodeTruncated() []byte {
	full := baseHeaderSize
	if u.hasAddr4() {
		full += 6
	}
	buf := make([]byte, full)
	b0, b1 := u.FC.encode()
	buf[0], buf[1] = b0, b1
	buf[2] = byte(u.Duration)
	buf[3] = byte(u.Duration >> 8)
	copy(buf[4:10], u.Addr1[:])
	copy(buf[10:16], u.Addr2[:])
	copy(buf[16:22], u.Addr3[:])
	buf[22] = byte(u.SeqControl)
	buf[23] = byte(u.SeqControl >> 8)
	if u.hasAddr4() && u.Addr4 != nil {
		copy(buf[baseHeaderSize:baseHeaderSize+6], u.Addr4[:])
	}
	return buf
}

// MatchesResponse checks the to/from MAC-address symmetry a reply frame
// is expected to carry: a candidate reply's Addr1 should equal this
// frame's Addr2 (the device we sent to now sends back) and vice versa.
// Beacon frames, which never solicit a reply, never match.
func (u *Unit) MatchesResponse(b []byte) bool {
	if u.FC.Type == TypeManagement && u.FC.Subtype == SubtypeBeacon {
		return false
	}
	if len(b) < baseHeaderSize {
		return false
	}
	candidateAddr1 := addr.MACFromBytes(b[4:10])
	candidateAddr2 := addr.MACFromBytes(b[10:16])
	return candidateAddr1 == u.Addr2 && candidateAddr2 == u.Addr1
}
