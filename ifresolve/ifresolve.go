// Package ifresolve implements the interface-resolution collaborator
// spec.md §6 describes but leaves out of the core: given a textual
// interface name, return its index, hardware address, IPv4, netmask, and
// broadcast/up status; given a destination IPv4, return the egress
// interface chosen by longest-prefix-match routing. It is a concrete,
// swappable adapter, not part of the synchronous no-I/O dissection core.
package ifresolve

import (
	"net"

	"github.com/vishvananda/netlink"

	"github.com/m-lab/netdissect/addr"
	"github.com/m-lab/netdissect/pdu"
)

// Interface describes everything the send path needs to know about a
// local network interface.
type Interface struct {
	Index     int
	HWAddr    addr.MAC
	IPv4      addr.IPv4
	Netmask   addr.IPv4
	Broadcast addr.IPv4 // zero for a point-to-point link
	Up        bool
}

// Resolver resolves interface names and destination addresses to local
// interfaces, the collaborator interface spec.md §6 references.
type Resolver interface {
	ByName(name string) (Interface, error)
	ForDestination(dst addr.IPv4) (Interface, error)
}

// netlinkResolver implements Resolver using github.com/vishvananda/netlink,
// the same library the teacher links for AF_NETLINK access (there: raw
// INET_DIAG socket diagnostics; here: link and route introspection).
type netlinkResolver struct{}

// New returns a Resolver backed by the host's netlink socket.
func New() Resolver {
	return netlinkResolver{}
}

// ByName resolves name to its index, hardware address, IPv4, netmask, and
// broadcast address. Returns pdu.InvalidInterface if name does not name a
// link on this host.
func (netlinkResolver) ByName(name string) (Interface, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return Interface{}, pdu.InvalidInterface
	}
	attrs := link.Attrs()

	iface := Interface{
		Index:  attrs.Index,
		HWAddr: addr.MACFromBytes(attrs.HardwareAddr),
		Up:     attrs.Flags&net.FlagUp != 0,
	}

	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil || len(addrs) == 0 {
		return iface, nil
	}
	a := addrs[0]
	if ip4 := a.IP.To4(); ip4 != nil {
		iface.IPv4 = addr.IPv4FromBytes(ip4)
	}
	if a.Mask != nil {
		iface.Netmask = addr.IPv4FromBytes(net.IP(a.Mask).To4())
	}
	if attrs.Flags&net.FlagPointToPoint == 0 && a.Broadcast != nil {
		iface.Broadcast = addr.IPv4FromBytes(a.Broadcast.To4())
	}
	return iface, nil
}

// ForDestination resolves the interface netlink's routing table would use
// to reach dst: the route with the longest matching prefix and, among
// ties, the smallest metric. The platform loopback address resolves to
// the loopback device.
func (r netlinkResolver) ForDestination(dst addr.IPv4) (Interface, error) {
	ip := net.IP(dst[:])
	if ip.IsLoopback() {
		return r.ByName("lo")
	}

	routes, err := netlink.RouteGet(ip)
	if err != nil || len(routes) == 0 {
		return Interface{}, pdu.InvalidInterface
	}
	link, err := netlink.LinkByIndex(routes[0].LinkIndex)
	if err != nil {
		return Interface{}, pdu.InvalidInterface
	}
	return r.ByName(link.Attrs().Name)
}
