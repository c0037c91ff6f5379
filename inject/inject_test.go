package inject

import (
	"testing"

	"github.com/m-lab/netdissect/addr"
	"github.com/m-lab/netdissect/ifresolve"
	"github.com/m-lab/netdissect/ipv6"
	"github.com/m-lab/netdissect/pdu"
)

type icmpStub struct {
	pdu.Base
}

func (s *icmpStub) Kind() pdu.Kind                           { return pdu.KindICMPv6 }
func (s *icmpStub) HeaderSize() uint32                       { return 0 }
func (s *icmpStub) Parse(b []byte) error                     { return nil }
func (s *icmpStub) SerializeInto(b []byte, p pdu.Unit) error { return nil }
func (s *icmpStub) MatchesResponse(b []byte) bool            { return false }

func TestL3TargetForSocketKindSelection(t *testing.T) {
	dst, err := addr.ParseIPv6("2001:db8::2")
	if err != nil {
		t.Fatalf("ParseIPv6: %v", err)
	}

	u := ipv6.New()
	u.Header.Dst = dst

	u.SetInner(pdu.NewRawPDU([]byte{1}))
	got := L3TargetFor(u)
	if got.Kind != SocketIPv6 || got.Dst != dst {
		t.Fatalf("L3TargetFor non-ICMP = %+v, want IPv6 socket to %s", got, dst)
	}

	u.SetInner(&icmpStub{})
	got = L3TargetFor(u)
	if got.Kind != SocketICMPv6 {
		t.Fatalf("L3TargetFor ICMP inner = %+v, want ICMPv6 socket", got)
	}
}

func TestL2TargetForUsesInterfaceIndex(t *testing.T) {
	iface := ifresolve.Interface{Index: 3, HWAddr: addr.MAC{0, 1, 2, 3, 4, 5}}
	got := L2TargetFor(iface)
	if got.IfIndex != 3 || got.HWAddr != iface.HWAddr {
		t.Fatalf("L2TargetFor = %+v", got)
	}
}
