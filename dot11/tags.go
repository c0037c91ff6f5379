package dot11

import (
	"fmt"

	"github.com/m-lab/netdissect/pdu"
)

// Well-known tag numbers this package decodes specially.
const (
	TagSSID           uint8 = 0
	TagSupportedRates uint8 = 1
	TagRSN            uint8 = 48
)

// TaggedParameter is one {tag, length, value} triplet from a management
// frame's tagged-parameter list.
type TaggedParameter struct {
	Tag   uint8
	Value []byte
}

func (p TaggedParameter) encodedSize() int { return 2 + len(p.Value) }

// TaggedParameterList is the ordered sequence of tagged parameters
// following a management frame's fixed body.
type TaggedParameterList struct {
	Params []TaggedParameter
}

func (l *TaggedParameterList) encodedSize() int {
	n := 0
	for _, p := range l.Params {
		n += p.encodedSize()
	}
	return n
}

func (l *TaggedParameterList) encode() []byte {
	buf := make([]byte, 0, l.encodedSize())
	for _, p := range l.Params {
		buf = append(buf, p.Tag, byte(len(p.Value)))
		buf = append(buf, p.Value...)
	}
	return buf
}

// Add appends a new tagged parameter to the end of the list.
func (l *TaggedParameterList) Add(tag uint8, value []byte) {
	l.Params = append(l.Params, TaggedParameter{Tag: tag, Value: append([]byte(nil), value...)})
}

// Lookup returns the first parameter matching tag, if any.
func (l *TaggedParameterList) Lookup(tag uint8) (TaggedParameter, bool) {
	for _, p := range l.Params {
		if p.Tag == tag {
			return p, true
		}
	}
	return TaggedParameter{}, false
}

// parseTaggedParameters decodes parameters greedily while at least 2 bytes
// remain. A parameter whose declared length would overrun b stops the
// walk silently — a malformed tail is tolerated, not rejected, per
// spec's robustness-against-malformed-captures rule.
func parseTaggedParameters(b []byte) (*TaggedParameterList, error) {
	list := &TaggedParameterList{}
	pos := 0
	for pos+2 <= len(b) {
		tag := b[pos]
		length := int(b[pos+1])
		if pos+2+length > len(b) {
			break
		}
		value := append([]byte(nil), b[pos+2:pos+2+length]...)
		list.Params = append(list.Params, TaggedParameter{Tag: tag, Value: value})
		pos += 2 + length
	}
	return list, nil
}

// ESSID returns the decoded SSID tag's value as a string, or "" if the
// frame carries no SSID tag.
func (u *Unit) ESSID() string {
	if u.Params == nil {
		return ""
	}
	p, ok := u.Params.Lookup(TagSSID)
	if !ok {
		return ""
	}
	return string(p.Value)
}

// SupportedRates decodes the supported-rates tag, if present, into a list
// of Mbit/s rates with the basic-rate bit stripped from each byte.
func (u *Unit) SupportedRates() []float64 {
	if u.Params == nil {
		return nil
	}
	p, ok := u.Params.Lookup(TagSupportedRates)
	if !ok {
		return nil
	}
	return decodeSupportedRates(p.Value)
}

func decodeSupportedRates(b []byte) []float64 {
	rates := make([]float64, 0, len(b))
	for _, raw := range b {
		rate := raw &^ 0x80
		rates = append(rates, float64(rate)*0.5)
	}
	return rates
}

// EncodeSupportedRates reverses SupportedRates' decoding: each rate is
// expressed in 500 kbit/s units, rounded up, with the basic-rate bit set
// when basic[i] is true. The result is a supported-rates tag value.
func EncodeSupportedRates(rates []float64, basic []bool) []byte {
	out := make([]byte, len(rates))
	for i, r := range rates {
		units := uint8(r/0.5 + 0.999999)
		if i < len(basic) && basic[i] {
			units |= 0x80
		}
		out[i] = units
	}
	return out
}

// RSNInfo is the decoded RSN Information tagged parameter (tag 48).
type RSNInfo struct {
	Version         uint16
	GroupCipher     uint32
	PairwiseCiphers []uint32
	AKMSuites       []uint32
	Capabilities    uint16
}

// ParseRSNInfo decodes b (a tag's raw value, without the tag/length
// bytes) per spec's little-endian RSN layout. Any length inconsistency
// between a declared count and the remaining bytes is reported as a
// parse failure rather than tolerated, unlike the tagged-parameter list
// itself.
func ParseRSNInfo(b []byte) (*RSNInfo, error) {
	const fixedPrefix = 2 + 4 + 2 // version + group cipher + pairwise count
	if len(b) < fixedPrefix {
		return nil, fmt.Errorf("dot11: truncated RSN information: %w", pdu.MalformedPacket)
	}
	info := &RSNInfo{
		Version:     getLE16(b[0:2]),
		GroupCipher: getLE32(b[2:6]),
	}
	pos := 8
	pairwiseCount := int(getLE16(b[6:8]))
	if pos+4*pairwiseCount+2 > len(b) {
		return nil, fmt.Errorf("dot11: RSN pairwise cipher count overruns buffer: %w", pdu.MalformedPacket)
	}
	for i := 0; i < pairwiseCount; i++ {
		info.PairwiseCiphers = append(info.PairwiseCiphers, getLE32(b[pos:pos+4]))
		pos += 4
	}
	akmCount := int(getLE16(b[pos : pos+2]))
	pos += 2
	if pos+4*akmCount+2 > len(b) {
		return nil, fmt.Errorf("dot11: RSN AKM suite count overruns buffer: %w", pdu.MalformedPacket)
	}
	for i := 0; i < akmCount; i++ {
		info.AKMSuites = append(info.AKMSuites, getLE32(b[pos:pos+4]))
		pos += 4
	}
	info.Capabilities = getLE16(b[pos : pos+2])
	pos += 2
	if pos != len(b) {
		return nil, fmt.Errorf("dot11: trailing bytes after RSN information: %w", pdu.MalformedPacket)
	}
	return info, nil
}

// Encode produces the contiguous RSN Information tag value for info.
func (info *RSNInfo) Encode() []byte {
	size := 2 + 4 + 2 + 4*len(info.PairwiseCiphers) + 2 + 4*len(info.AKMSuites) + 2
	buf := make([]byte, size)
	putLE16(buf[0:2], info.Version)
	putLE32(buf[2:6], info.GroupCipher)
	putLE16(buf[6:8], uint16(len(info.PairwiseCiphers)))
	pos := 8
	for _, c := range info.PairwiseCiphers {
		putLE32(buf[pos:pos+4], c)
		pos += 4
	}
	putLE16(buf[pos:pos+2], uint16(len(info.AKMSuites)))
	pos += 2
	for _, a := range info.AKMSuites {
		putLE32(buf[pos:pos+4], a)
		pos += 4
	}
	putLE16(buf[pos:pos+2], info.Capabilities)
	return buf
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getLE32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
