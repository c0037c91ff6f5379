package dns

import (
	"fmt"
	"strings"

	"github.com/m-lab/netdissect/pdu"
)

// maxNameBytes is the maximum decoded domain name length, dots included.
const maxNameBytes = 255

// maxPointerJumps bounds the number of compression-pointer hops followed
// while decoding a single name, defending against pointer cycles a length
// check alone would not catch; it also serves as the label-depth cap.
const maxPointerJumps = 128

// headerSize is the byte length of the fixed DNS header preceding
// records_data; pointer targets are absolute offsets into the *original*
// packet, so records_data indices are pointer values minus this constant.
const headerSize = 12

// isPointer reports whether b's top two bits mark it as a compression
// pointer's first byte.
func isPointer(b byte) bool { return b&0xC0 == 0xC0 }

// decodeName materializes the dotted name encoded at data[offset:],
// following compression pointers, and returns the number of bytes consumed
// in the stream at `offset` itself — i.e. ending at the first pointer (2
// bytes) or the terminating zero-length label (1 byte).
func decodeName(data []byte, offset int) (name string, consumed int, err error) {
	var labels []string
	total := 0
	pos := offset
	firstConsumed := -1
	jumps := 0

	for {
		if pos >= len(data) {
			return "", 0, fmt.Errorf("dns: name runs past end of buffer: %w", pdu.MalformedPacket)
		}
		lb := data[pos]
		switch {
		case lb == 0:
			if firstConsumed < 0 {
				firstConsumed = pos + 1 - offset
			}
			return strings.Join(labels, "."), firstConsumed, nil

		case isPointer(lb):
			if pos+1 >= len(data) {
				return "", 0, fmt.Errorf("dns: truncated compression pointer: %w", pdu.MalformedPacket)
			}
			ptrValue := int(lb&0x3F)<<8 | int(data[pos+1])
			if firstConsumed < 0 {
				firstConsumed = pos + 2 - offset
			}
			if ptrValue < headerSize {
				return "", 0, fmt.Errorf("dns: compression pointer targets the header: %w", pdu.MalformedPacket)
			}
			target := ptrValue - headerSize
			if target >= len(data) {
				return "", 0, fmt.Errorf("dns: compression pointer out of range: %w", pdu.MalformedPacket)
			}
			jumps++
			if jumps > maxPointerJumps {
				return "", 0, fmt.Errorf("dns: too many compression pointer hops: %w", pdu.MalformedPacket)
			}
			pos = target

		case lb&0xC0 != 0:
			return "", 0, fmt.Errorf("dns: reserved label length bits: %w", pdu.MalformedPacket)

		default:
			length := int(lb)
			if pos+1+length > len(data) {
				return "", 0, fmt.Errorf("dns: label runs past end of buffer: %w", pdu.MalformedPacket)
			}
			labels = append(labels, string(data[pos+1:pos+1+length]))
			total += length + 1 // label bytes plus the dot that will join it
			if total > maxNameBytes {
				return "", 0, fmt.Errorf("dns: name exceeds %d bytes: %w", maxNameBytes, pdu.MalformedPacket)
			}
			pos += 1 + length
		}
	}
}

// skipName advances past the name encoded at data[offset:] without
// materializing it, optionally rewriting any compression pointer it finds
// in place: a pointer whose decoded target strictly exceeds threshold is
// incremented by shift and re-encoded. It returns the number of bytes
// consumed at offset, matching decodeName's consumed semantics.
func skipName(data []byte, offset int, rewrite bool, threshold, shift int) (consumed int, err error) {
	pos := offset
	jumps := 0
	for {
		if pos >= len(data) {
			return 0, fmt.Errorf("dns: name runs past end of buffer: %w", pdu.MalformedPacket)
		}
		lb := data[pos]
		switch {
		case lb == 0:
			return pos + 1 - offset, nil

		case isPointer(lb):
			if pos+1 >= len(data) {
				return 0, fmt.Errorf("dns: truncated compression pointer: %w", pdu.MalformedPacket)
			}
			ptrValue := int(lb&0x3F)<<8 | int(data[pos+1])
			if ptrValue < headerSize {
				return 0, fmt.Errorf("dns: compression pointer targets the header: %w", pdu.MalformedPacket)
			}
			if ptrValue-headerSize >= len(data) {
				return 0, fmt.Errorf("dns: compression pointer out of range: %w", pdu.MalformedPacket)
			}
			if rewrite && ptrValue-headerSize > threshold {
				newPtr := ptrValue + shift
				data[pos] = 0xC0 | byte(newPtr>>8)
				data[pos+1] = byte(newPtr)
			}
			return pos + 2 - offset, nil

		case lb&0xC0 != 0:
			return 0, fmt.Errorf("dns: reserved label length bits: %w", pdu.MalformedPacket)

		default:
			length := int(lb)
			if pos+1+length > len(data) {
				return 0, fmt.Errorf("dns: label runs past end of buffer: %w", pdu.MalformedPacket)
			}
			jumps++
			if jumps > maxPointerJumps {
				return 0, fmt.Errorf("dns: name has too many labels: %w", pdu.MalformedPacket)
			}
			pos += 1 + length
		}
	}
}

// encodeName converts a dotted name into length-prefixed labels terminated
// by a zero-length label. No compression is ever emitted.
func encodeName(name string) ([]byte, error) {
	name = strings.TrimSuffix(name, ".")
	var labels []string
	if name != "" {
		labels = strings.Split(name, ".")
	}
	out := make([]byte, 0, len(name)+2)
	total := 0
	for _, l := range labels {
		if len(l) == 0 || len(l) > 63 {
			return nil, fmt.Errorf("dns: invalid label length %d in %q: %w", len(l), name, pdu.MalformedPacket)
		}
		out = append(out, byte(len(l)))
		out = append(out, l...)
		total += len(l) + 1
		if total > maxNameBytes {
			return nil, fmt.Errorf("dns: name exceeds %d bytes: %w", maxNameBytes, pdu.MalformedPacket)
		}
	}
	out = append(out, 0)
	return out, nil
}
