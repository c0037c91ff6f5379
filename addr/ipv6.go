package addr

import (
	"fmt"
	"net"
)

// IPv6 is a 128-bit IPv6 address.
type IPv6 [16]byte

// IPv6FromBytes copies a 16-byte slice into an IPv6 value.
func IPv6FromBytes(b []byte) IPv6 {
	var a IPv6
	copy(a[:], b)
	return a
}

// ParseIPv6 parses the textual form of an IPv6 address, e.g. "2001:db8::1".
func ParseIPv6(s string) (IPv6, error) {
	ip := net.ParseIP(s)
	if ip == nil || ip.To4() != nil {
		return IPv6{}, fmt.Errorf("addr: %q is not an IPv6 address", s)
	}
	return IPv6FromBytes(ip.To16()), nil
}

// String renders the address using the standard library's IPv6 text form.
func (a IPv6) String() string {
	return net.IP(a[:]).String()
}

// ToNetIP converts a to the standard library's net.IP representation.
func (a IPv6) ToNetIP() net.IP {
	ip := make(net.IP, 16)
	copy(ip, a[:])
	return ip
}

// IsLoopback reports whether a is ::1.
func (a IPv6) IsLoopback() bool {
	return a.ToNetIP().IsLoopback()
}

// IsMulticast reports whether a's first octet is 0xff.
func (a IPv6) IsMulticast() bool {
	return a[0] == 0xff
}

// IsLinkLocalMulticast reports whether a is in the ff02::/16 link-local
// multicast range, the narrow check used by MatchesResponse — not the
// wider ff0x::/8 range.
func (a IPv6) IsLinkLocalMulticast() bool {
	return a[0] == 0xff && a[1] == 0x02
}

// Equal reports whether a and b are the same address.
func (a IPv6) Equal(b IPv6) bool {
	return a == b
}
