package dot11

import (
	"fmt"

	"github.com/m-lab/netdissect/pdu"
)

// Body is a management frame's fixed-size body, dispatched on the frame's
// subtype. Unlike the tagged-parameter list that follows it, a body's
// layout is rigid: a short buffer is a malformed frame, not something to
// tolerate.
type Body interface {
	bodySize() int
	encodeBody(buf []byte)
}

// BeaconBody is the 12-byte fixed body of a beacon frame.
type BeaconBody struct {
	Timestamp  uint64
	Interval   uint16
	Capability uint16
}

func (b *BeaconBody) bodySize() int { return 12 }

func (b *BeaconBody) encodeBody(buf []byte) {
	putLE64(buf[0:8], b.Timestamp)
	putLE16(buf[8:10], b.Interval)
	putLE16(buf[10:12], b.Capability)
}

func parseBeaconBody(b []byte) (*BeaconBody, error) {
	if len(b) < 12 {
		return nil, fmt.Errorf("dot11: truncated beacon body: %w", pdu.MalformedPacket)
	}
	return &BeaconBody{
		Timestamp:  getLE64(b[0:8]),
		Interval:   getLE16(b[8:10]),
		Capability: getLE16(b[10:12]),
	}, nil
}

// AssocRequestBody is the 4-byte fixed body of an association request.
type AssocRequestBody struct {
	Capability     uint16
	ListenInterval uint16
}

func (b *AssocRequestBody) bodySize() int { return 4 }

func (b *AssocRequestBody) encodeBody(buf []byte) {
	putLE16(buf[0:2], b.Capability)
	putLE16(buf[2:4], b.ListenInterval)
}

func parseAssocRequestBody(b []byte) (*AssocRequestBody, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("dot11: truncated association request body: %w", pdu.MalformedPacket)
	}
	return &AssocRequestBody{
		Capability:     getLE16(b[0:2]),
		ListenInterval: getLE16(b[2:4]),
	}, nil
}

// AssocResponseBody is the 6-byte fixed body of an association response.
type AssocResponseBody struct {
	Capability uint16
	Status     uint16
	AID        uint16
}

func (b *AssocResponseBody) bodySize() int { return 6 }

func (b *AssocResponseBody) encodeBody(buf []byte) {
	putLE16(buf[0:2], b.Capability)
	putLE16(buf[2:4], b.Status)
	putLE16(buf[4:6], b.AID)
}

func parseAssocResponseBody(b []byte) (*AssocResponseBody, error) {
	if len(b) < 6 {
		return nil, fmt.Errorf("dot11: truncated association response body: %w", pdu.MalformedPacket)
	}
	return &AssocResponseBody{
		Capability: getLE16(b[0:2]),
		Status:     getLE16(b[2:4]),
		AID:        getLE16(b[4:6]),
	}, nil
}

// DisassocBody is the 2-byte fixed body of a disassociation frame. It
// carries no tagged parameters on the wire, but parseManagementBody still
// returns whatever follows the reason code, and the frame parser decodes
// that remainder as a tagged-parameter list like any other body's tail.
type DisassocBody struct {
	Reason uint16
}

func (b *DisassocBody) bodySize() int { return 2 }

func (b *DisassocBody) encodeBody(buf []byte) {
	putLE16(buf[0:2], b.Reason)
}

func parseDisassocBody(b []byte) (*DisassocBody, error) {
	if len(b) < 2 {
		return nil, fmt.Errorf("dot11: truncated disassociation body: %w", pdu.MalformedPacket)
	}
	return &DisassocBody{Reason: getLE16(b[0:2])}, nil
}

// parseManagementBody dispatches on subtype to the matching fixed body
// parser and returns the remaining bytes (the tagged-parameter region, if
// any). Unrecognized subtypes fall back to a generic frame carrying no
// fixed body: the whole remainder becomes the tagged-parameter candidate,
// matching spec's "dispatch to their class or fall back to a generic
// 802.11 frame".
func parseManagementBody(subtype uint8, rest []byte) (Body, []byte, error) {
	switch subtype {
	case SubtypeBeacon:
		body, err := parseBeaconBody(rest)
		if err != nil {
			return nil, nil, err
		}
		return body, rest[12:], nil
	case SubtypeAssocRequest:
		body, err := parseAssocRequestBody(rest)
		if err != nil {
			return nil, nil, err
		}
		return body, rest[4:], nil
	case SubtypeAssocResponse:
		body, err := parseAssocResponseBody(rest)
		if err != nil {
			return nil, nil, err
		}
		return body, rest[6:], nil
	case SubtypeDisassoc:
		body, err := parseDisassocBody(rest)
		if err != nil {
			return nil, nil, err
		}
		return body, rest[2:], nil
	default:
		return nil, rest, nil
	}
}

func putLE16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func putLE64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func getLE16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func getLE64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
