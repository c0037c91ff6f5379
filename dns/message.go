// Package dns implements the DNS message protocol unit: a 12-byte header
// followed by a records_data region holding the question, answer,
// authority, and additional sections, with section boundaries maintained
// as the message is mutated.
package dns

import (
	"fmt"

	"github.com/m-lab/netdissect/pdu"
	"github.com/m-lab/netdissect/wire"
)

// Response codes and opcodes are not enumerated exhaustively here; callers
// needing symbolic names can wrap RCode()/Opcode().

// Unit is the DNS message protocol unit. It has no inner unit of its own —
// it sits at the top of a chain (e.g. rooted under a UDP payload) — but
// still satisfies pdu.Unit's Inner/SetInner contract via pdu.Base.
type Unit struct {
	pdu.Base

	ID    uint16
	Flags uint16

	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16

	// RecordsData holds the wire bytes of every question and resource
	// record, back to back, in on-the-wire form (including any
	// compression pointers present at parse time).
	RecordsData []byte

	// AnswersIdx, AuthorityIdx, AdditionalIdx are byte offsets into
	// RecordsData marking where each section begins. The question
	// section always begins at 0.
	AnswersIdx    int
	AuthorityIdx  int
	AdditionalIdx int
}

const HeaderSize = headerSize

// New returns an empty DNS message unit.
func New() *Unit {
	return &Unit{}
}

func (u *Unit) Kind() pdu.Kind { return pdu.KindDNS }

func (u *Unit) HeaderSize() uint32 {
	return uint32(HeaderSize + len(u.RecordsData))
}

// Flag bit positions within the 16-bit flags word, MSB first: QR(1)
// Opcode(4) AA(1) TC(1) RD(1) RA(1) Z(1) AD(1) CD(1) RCode(4).
const (
	flagQR     = 1 << 15
	flagOpcode = 0xF << 11
	flagAA     = 1 << 10
	flagTC     = 1 << 9
	flagRD     = 1 << 8
	flagRA     = 1 << 7
	flagZ      = 1 << 6
	flagAD     = 1 << 5
	flagCD     = 1 << 4
	flagRCode  = 0xF
)

func (u *Unit) QR() bool        { return u.Flags&flagQR != 0 }
func (u *Unit) SetQR(v bool)    { u.setBit(flagQR, v) }
func (u *Unit) AA() bool        { return u.Flags&flagAA != 0 }
func (u *Unit) SetAA(v bool)    { u.setBit(flagAA, v) }
func (u *Unit) TC() bool        { return u.Flags&flagTC != 0 }
func (u *Unit) SetTC(v bool)    { u.setBit(flagTC, v) }
func (u *Unit) RD() bool        { return u.Flags&flagRD != 0 }
func (u *Unit) SetRD(v bool)    { u.setBit(flagRD, v) }
func (u *Unit) RA() bool        { return u.Flags&flagRA != 0 }
func (u *Unit) SetRA(v bool)    { u.setBit(flagRA, v) }
func (u *Unit) AD() bool        { return u.Flags&flagAD != 0 }
func (u *Unit) SetAD(v bool)    { u.setBit(flagAD, v) }
func (u *Unit) CD() bool        { return u.Flags&flagCD != 0 }
func (u *Unit) SetCD(v bool)    { u.setBit(flagCD, v) }
func (u *Unit) Opcode() uint8   { return uint8((u.Flags & flagOpcode) >> 11) }
func (u *Unit) RCode() uint8    { return uint8(u.Flags & flagRCode) }

func (u *Unit) SetOpcode(op uint8) {
	u.Flags = (u.Flags &^ flagOpcode) | (uint16(op)<<11)&flagOpcode
}

func (u *Unit) SetRCode(rc uint8) {
	u.Flags = (u.Flags &^ flagRCode) | uint16(rc)&flagRCode
}

func (u *Unit) setBit(mask uint16, v bool) {
	if v {
		u.Flags |= mask
	} else {
		u.Flags &^= mask
	}
}

// Parse decodes the 12-byte header, then walks the question, answer,
// authority, and additional sections in order (using the counts just
// read) to establish section boundaries, without materializing any
// records yet — Questions/Answers/Authority/Additional decode on demand.
func (u *Unit) Parse(b []byte) (err error) {
	defer func() { pdu.RecordParse("dns", err) }()

	r := wire.NewReader(b)
	if !r.CanRead(HeaderSize) {
		return fmt.Errorf("dns: header: %w", pdu.MalformedPacket)
	}
	id, _ := r.ReadBEUint16()
	flags, _ := r.ReadBEUint16()
	qd, _ := r.ReadBEUint16()
	an, _ := r.ReadBEUint16()
	ns, _ := r.ReadBEUint16()
	ar, _ := r.ReadBEUint16()

	records := append([]byte(nil), r.Pointer()...)

	answersIdx, authorityIdx, additionalIdx, err := walkSections(
		records, int(qd), int(an), int(ns), int(ar), false, 0, 0)
	if err != nil {
		return err
	}
	u.ID = id
	u.Flags = flags
	u.QDCount, u.ANCount, u.NSCount, u.ARCount = qd, an, ns, ar
	u.RecordsData = records
	u.AnswersIdx, u.AuthorityIdx, u.AdditionalIdx = answersIdx, authorityIdx, additionalIdx
	return nil
}

// SerializeInto writes the 12-byte header followed by RecordsData
// verbatim. Section boundaries and pointer targets are assumed consistent
// with QDCount/ANCount/NSCount/ARCount, an invariant the Add* mutators
// maintain; serialization does not re-validate it.
func (u *Unit) SerializeInto(buf []byte, parent pdu.Unit) error {
	pdu.RecordSerialize("dns")
	w := wire.NewWriter(buf)
	w.WriteBEUint16(u.ID)
	w.WriteBEUint16(u.Flags)
	w.WriteBEUint16(u.QDCount)
	w.WriteBEUint16(u.ANCount)
	w.WriteBEUint16(u.NSCount)
	w.WriteBEUint16(u.ARCount)
	w.Write(u.RecordsData)
	return nil
}

// MatchesResponse compares the first 16 bits of b directly against ID, as
// raw bytes — no endianness conversion and no QR bit check. A resolver
// that mirrors the ID back is assumed to be replying to this query; callers
// needing stricter matching (QR=1, question-section echo) compose it on
// top of this.
func (u *Unit) MatchesResponse(b []byte) bool {
	if len(b) < 2 {
		return false
	}
	return b[0] == byte(u.ID>>8) && b[1] == byte(u.ID)
}

// walkSections advances through the question, answer, authority, and
// additional sections in data starting at offset 0, in order, returning
// the byte offsets at which the answer, authority, and additional
// sections begin. When rewrite is true, every compression pointer
// encountered whose decoded target strictly exceeds threshold has shift
// added to it in place.
func walkSections(data []byte, qd, an, ns, ar int, rewrite bool, threshold, shift int) (answersIdx, authorityIdx, additionalIdx int, err error) {
	pos := 0
	for i := 0; i < qd; i++ {
		pos, err = walkQuestion(data, pos, rewrite, threshold, shift)
		if err != nil {
			return 0, 0, 0, err
		}
	}
	answersIdx = pos
	for i := 0; i < an; i++ {
		pos, err = walkRecord(data, pos, rewrite, threshold, shift)
		if err != nil {
			return 0, 0, 0, err
		}
	}
	authorityIdx = pos
	for i := 0; i < ns; i++ {
		pos, err = walkRecord(data, pos, rewrite, threshold, shift)
		if err != nil {
			return 0, 0, 0, err
		}
	}
	additionalIdx = pos
	for i := 0; i < ar; i++ {
		pos, err = walkRecord(data, pos, rewrite, threshold, shift)
		if err != nil {
			return 0, 0, 0, err
		}
	}
	return answersIdx, authorityIdx, additionalIdx, nil
}

func walkQuestion(data []byte, pos int, rewrite bool, threshold, shift int) (int, error) {
	consumed, err := skipName(data, pos, rewrite, threshold, shift)
	if err != nil {
		return 0, err
	}
	pos += consumed
	if pos+4 > len(data) {
		return 0, fmt.Errorf("dns: question runs past end of buffer: %w", pdu.MalformedPacket)
	}
	return pos + 4, nil
}

func walkRecord(data []byte, pos int, rewrite bool, threshold, shift int) (int, error) {
	consumed, err := skipName(data, pos, rewrite, threshold, shift)
	if err != nil {
		return 0, err
	}
	pos += consumed
	if pos+10 > len(data) {
		return 0, fmt.Errorf("dns: record header runs past end of buffer: %w", pdu.MalformedPacket)
	}
	rtype := uint16(data[pos])<<8 | uint16(data[pos+1])
	rdlength := int(uint16(data[pos+8])<<8 | uint16(data[pos+9]))
	rdataStart := pos + 10
	if rdataStart+rdlength > len(data) {
		return 0, fmt.Errorf("dns: rdata runs past end of buffer: %w", pdu.MalformedPacket)
	}

	switch rtype {
	case TypeNS, TypeCNAME, TypePTR, TypeDNAME:
		if _, err := skipName(data, rdataStart, rewrite, threshold, shift); err != nil {
			return 0, err
		}
	case TypeMX:
		if rdlength < 2 {
			return 0, fmt.Errorf("dns: MX rdata too short: %w", pdu.MalformedPacket)
		}
		if _, err := skipName(data, rdataStart+2, rewrite, threshold, shift); err != nil {
			return 0, err
		}
	}
	return rdataStart + rdlength, nil
}
