// Package addr provides fixed-width value types for the address families
// the protocol units embed: MAC-48, IPv4, and IPv6.
package addr

import (
	"fmt"
	"net"
)

// MAC is a 48-bit hardware address.
type MAC [6]byte

// ParseMAC parses a colon-hex hardware address, e.g. "aa:bb:cc:dd:ee:ff".
func ParseMAC(s string) (MAC, error) {
	hw, err := net.ParseMAC(s)
	if err != nil || len(hw) != 6 {
		return MAC{}, fmt.Errorf("addr: %q is not a MAC-48 address", s)
	}
	return MACFromBytes(hw), nil
}

// String renders the address in colon-hex form, e.g. "aa:bb:cc:dd:ee:ff".
func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// IsBroadcast reports whether m is the all-ones broadcast address.
func (m MAC) IsBroadcast() bool {
	for _, b := range m {
		if b != 0xff {
			return false
		}
	}
	return true
}

// IsMulticast reports whether m has the multicast bit set in its first octet.
func (m MAC) IsMulticast() bool {
	return m[0]&0x01 != 0
}

// MACFromBytes copies a 6-byte slice into a MAC. The caller must ensure b has
// length 6; protocol unit parsers check the buffer length before slicing an
// address out of it.
func MACFromBytes(b []byte) MAC {
	var m MAC
	copy(m[:], b)
	return m
}
