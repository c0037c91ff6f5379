package pdu

// RawPDU wraps an opaque payload that no registered dispatcher or allocator
// could identify. It is the universal fallback, and a unit whose identity
// is RawPDU always has no inner.
type RawPDU struct {
	Payload []byte
}

// NewRawPDU wraps b (not copied) as a RawPDU.
func NewRawPDU(b []byte) *RawPDU {
	return &RawPDU{Payload: b}
}

// Kind always reports KindRaw.
func (r *RawPDU) Kind() Kind { return KindRaw }

// HeaderSize reports the full payload length; RawPDU has no separate body.
func (r *RawPDU) HeaderSize() uint32 { return uint32(len(r.Payload)) }

// Parse stores b as-is; RawPDU never fails to parse.
func (r *RawPDU) Parse(b []byte) error {
	r.Payload = b
	return nil
}

// SerializeInto copies Payload verbatim.
func (r *RawPDU) SerializeInto(buf []byte, parent Unit) error {
	copy(buf, r.Payload)
	return nil
}

// MatchesResponse compares payload bytes for exact equality, the most
// conservative response test available for an unidentified payload.
func (r *RawPDU) MatchesResponse(b []byte) bool {
	if len(b) != len(r.Payload) {
		return false
	}
	for i := range b {
		if b[i] != r.Payload[i] {
			return false
		}
	}
	return true
}

// Inner always returns nil: RawPDU owns no inner unit.
func (r *RawPDU) Inner() Unit { return nil }

// SetInner is a no-op: RawPDU owns no inner unit.
func (r *RawPDU) SetInner(u Unit) {}
