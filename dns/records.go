package dns

import (
	"fmt"

	"github.com/m-lab/netdissect/addr"
	"github.com/m-lab/netdissect/pdu"
)

// Resource record types this package decodes specially; anything else is
// carried as opaque RData.
const (
	TypeA     uint16 = 1
	TypeNS    uint16 = 2
	TypeCNAME uint16 = 5
	TypePTR   uint16 = 12
	TypeMX    uint16 = 15
	TypeAAAA  uint16 = 28
	TypeDNAME uint16 = 39
)

const ClassIN uint16 = 1

// Question is one entry in the question section.
type Question struct {
	Name  string
	Type  uint16
	Class uint16
}

// Record is one resource record from the answer, authority, or additional
// section. RData carries the raw on-wire rdata bytes for every type; the
// typed accessors below decode the common cases on demand.
type Record struct {
	Name     string
	Type     uint16
	Class    uint16
	TTL      uint32
	RDLength uint16
	RData    []byte

	// fullBuf and rdataOffset let NS/CNAME/PTR/DNAME/MX decoding
	// resolve compression pointers that point outside this record's own
	// rdata slice.
	fullBuf     []byte
	rdataOffset int
}

// IPv4 decodes an A record's address.
func (r Record) IPv4() (addr.IPv4, error) {
	if r.Type != TypeA || len(r.RData) != 4 {
		return addr.IPv4{}, fmt.Errorf("dns: not a well-formed A record: %w", pdu.MalformedPacket)
	}
	var a addr.IPv4
	copy(a[:], r.RData)
	return a, nil
}

// IPv6 decodes an AAAA record's address.
func (r Record) IPv6() (addr.IPv6, error) {
	if r.Type != TypeAAAA || len(r.RData) != 16 {
		return addr.IPv6{}, fmt.Errorf("dns: not a well-formed AAAA record: %w", pdu.MalformedPacket)
	}
	var a addr.IPv6
	copy(a[:], r.RData)
	return a, nil
}

// DomainName decodes the compressed name carried in an NS, CNAME, PTR, or
// DNAME record's rdata.
func (r Record) DomainName() (string, error) {
	switch r.Type {
	case TypeNS, TypeCNAME, TypePTR, TypeDNAME:
	default:
		return "", fmt.Errorf("dns: record type %d has no domain-name rdata: %w", r.Type, pdu.MalformedPacket)
	}
	name, _, err := decodeName(r.fullBuf, r.rdataOffset)
	return name, err
}

// MXPreference and MXExchange decode an MX record's two rdata fields.
func (r Record) MXPreference() (uint16, error) {
	if r.Type != TypeMX || len(r.RData) < 2 {
		return 0, fmt.Errorf("dns: not a well-formed MX record: %w", pdu.MalformedPacket)
	}
	return uint16(r.RData[0])<<8 | uint16(r.RData[1]), nil
}

func (r Record) MXExchange() (string, error) {
	if r.Type != TypeMX {
		return "", fmt.Errorf("dns: not an MX record: %w", pdu.MalformedPacket)
	}
	name, _, err := decodeName(r.fullBuf, r.rdataOffset+2)
	return name, err
}

// Questions decodes the question section.
func (u *Unit) Questions() ([]Question, error) {
	out := make([]Question, 0, u.QDCount)
	pos := 0
	for i := 0; i < int(u.QDCount); i++ {
		name, consumed, err := decodeName(u.RecordsData, pos)
		if err != nil {
			return nil, err
		}
		pos += consumed
		if pos+4 > len(u.RecordsData) {
			return nil, fmt.Errorf("dns: question runs past end of buffer: %w", pdu.MalformedPacket)
		}
		qtype := uint16(u.RecordsData[pos])<<8 | uint16(u.RecordsData[pos+1])
		qclass := uint16(u.RecordsData[pos+2])<<8 | uint16(u.RecordsData[pos+3])
		pos += 4
		out = append(out, Question{Name: name, Type: qtype, Class: qclass})
	}
	return out, nil
}

// Answers decodes the answer section.
func (u *Unit) Answers() ([]Record, error) {
	return u.decodeRecords(u.AnswersIdx, u.AuthorityIdx, int(u.ANCount))
}

// Authority decodes the authority section.
func (u *Unit) Authority() ([]Record, error) {
	return u.decodeRecords(u.AuthorityIdx, u.AdditionalIdx, int(u.NSCount))
}

// Additional decodes the additional section.
func (u *Unit) Additional() ([]Record, error) {
	return u.decodeRecords(u.AdditionalIdx, len(u.RecordsData), int(u.ARCount))
}

func (u *Unit) decodeRecords(start, end, count int) ([]Record, error) {
	out := make([]Record, 0, count)
	pos := start
	for i := 0; i < count; i++ {
		name, consumed, err := decodeName(u.RecordsData, pos)
		if err != nil {
			return nil, err
		}
		pos += consumed
		if pos+10 > len(u.RecordsData) {
			return nil, fmt.Errorf("dns: record header runs past end of buffer: %w", pdu.MalformedPacket)
		}
		rtype := uint16(u.RecordsData[pos])<<8 | uint16(u.RecordsData[pos+1])
		rclass := uint16(u.RecordsData[pos+2])<<8 | uint16(u.RecordsData[pos+3])
		ttl := uint32(u.RecordsData[pos+4])<<24 | uint32(u.RecordsData[pos+5])<<16 |
			uint32(u.RecordsData[pos+6])<<8 | uint32(u.RecordsData[pos+7])
		rdlength := uint16(u.RecordsData[pos+8])<<8 | uint16(u.RecordsData[pos+9])
		rdataStart := pos + 10
		if rdataStart+int(rdlength) > len(u.RecordsData) {
			return nil, fmt.Errorf("dns: rdata runs past end of buffer: %w", pdu.MalformedPacket)
		}
		out = append(out, Record{
			Name:        name,
			Type:        rtype,
			Class:       rclass,
			TTL:         ttl,
			RDLength:    rdlength,
			RData:       u.RecordsData[rdataStart : rdataStart+int(rdlength)],
			fullBuf:     u.RecordsData,
			rdataOffset: rdataStart,
		})
		pos = rdataStart + int(rdlength)
	}
	if pos != end {
		return nil, fmt.Errorf("dns: section boundary mismatch: %w", pdu.MalformedPacket)
	}
	return out, nil
}
