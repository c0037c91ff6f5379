// Package inject declares the packet-injection collaborator the dissection
// core's send path targets: a PacketSender that accepts layer-2 frame sends
// and layer-3 packet sends over a chosen raw-socket kind. Like ifresolve,
// it is a swappable adapter boundary, not part of the synchronous no-I/O
// core; only the interface and the socket-kind selection rules live here.
package inject

import (
	"github.com/m-lab/netdissect/addr"
	"github.com/m-lab/netdissect/ifresolve"
	"github.com/m-lab/netdissect/ipv6"
	"github.com/m-lab/netdissect/pdu"
)

// SocketKind selects the raw-socket family an L3 send uses.
type SocketKind int

const (
	SocketIPv4 SocketKind = iota
	SocketIPv6
	SocketICMP
	SocketICMPv6
)

// L2Target addresses a layer-2 send: the egress interface and its hardware
// address, as resolved by ifresolve.
type L2Target struct {
	IfIndex int
	HWAddr  addr.MAC
}

// L3Target addresses a layer-3 send. The port is always zero; raw-socket
// sends are addressed by destination address alone.
type L3Target struct {
	Dst  addr.IPv6
	Kind SocketKind
}

// PacketSender is the injection collaborator. Implementations bind the
// OS-specific sockets the core deliberately does not.
type PacketSender interface {
	SendL2(frame []byte, to L2Target) error
	SendL3(packet []byte, to L3Target) error
}

// L3TargetFor computes where and how SendL3 delivers an IPv6 chain: the
// ICMPv6 socket kind when the inner unit is ICMP, the plain IPv6 socket
// kind otherwise, addressed to the chain's destination with zero port.
func L3TargetFor(u *ipv6.Unit) L3Target {
	kind := SocketIPv6
	if in := u.Inner(); in != nil {
		switch in.Kind() {
		case pdu.KindICMP, pdu.KindICMPv6:
			kind = SocketICMPv6
		}
	}
	return L3Target{Dst: u.Header.Dst, Kind: kind}
}

// L2TargetFor pairs an 802.11 frame's egress interface with its hardware
// address; 802.11 chains always send at layer 2 with an interface index.
func L2TargetFor(iface ifresolve.Interface) L2Target {
	return L2Target{IfIndex: iface.Index, HWAddr: iface.HWAddr}
}
