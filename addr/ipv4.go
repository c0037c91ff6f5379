package addr

import (
	"encoding/binary"
	"fmt"
	"net"
)

// IPv4 is a 32-bit IPv4 address stored in network byte order.
type IPv4 [4]byte

// IPv4FromBytes copies a 4-byte slice into an IPv4 value.
func IPv4FromBytes(b []byte) IPv4 {
	var a IPv4
	copy(a[:], b)
	return a
}

// IPv4FromUint32 builds an IPv4 value from a host-order uint32 (as produced
// by wire.Reader.ReadBEUint32 over the on-wire bytes).
func IPv4FromUint32(v uint32) IPv4 {
	var a IPv4
	binary.BigEndian.PutUint32(a[:], v)
	return a
}

// ParseIPv4 parses a dotted-decimal address, e.g. "93.184.216.34".
func ParseIPv4(s string) (IPv4, error) {
	ip := net.ParseIP(s)
	if ip == nil || ip.To4() == nil {
		return IPv4{}, fmt.Errorf("addr: %q is not an IPv4 address", s)
	}
	return IPv4FromBytes(ip.To4()), nil
}

// String renders the address in dotted-decimal form.
func (a IPv4) String() string {
	return net.IP(a[:]).String()
}

// ToNetIP converts a to the standard library's net.IP representation.
func (a IPv4) ToNetIP() net.IP {
	return net.IPv4(a[0], a[1], a[2], a[3]).To4()
}

// IsLoopback reports whether a is in 127.0.0.0/8.
func (a IPv4) IsLoopback() bool {
	return a[0] == 127
}

// IsMulticast reports whether a is in 224.0.0.0/4.
func (a IPv4) IsMulticast() bool {
	return a[0]&0xf0 == 0xe0
}
