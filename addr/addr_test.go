package addr

import "testing"

func TestMACString(t *testing.T) {
	m := MACFromBytes([]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff})
	if m.String() != "aa:bb:cc:dd:ee:ff" {
		t.Fatalf("String = %q", m.String())
	}
}

func TestMACBroadcastMulticast(t *testing.T) {
	bcast := MACFromBytes([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
	if !bcast.IsBroadcast() {
		t.Fatalf("expected broadcast")
	}
	mcast := MACFromBytes([]byte{0x01, 0x00, 0x5e, 0x00, 0x00, 0x01})
	if !mcast.IsMulticast() {
		t.Fatalf("expected multicast bit set")
	}
	uni := MACFromBytes([]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x01})
	if uni.IsMulticast() {
		t.Fatalf("expected no multicast bit")
	}
}

func TestIPv4RoundTrip(t *testing.T) {
	a := IPv4FromBytes([]byte{93, 184, 216, 34})
	if a.String() != "93.184.216.34" {
		t.Fatalf("String = %q", a.String())
	}
	if back, err := ParseIPv4(a.String()); err != nil || back != a {
		t.Fatalf("ParseIPv4(%q) = %v, %v, want %v", a.String(), back, err, a)
	}
	loop := IPv4FromBytes([]byte{127, 0, 0, 1})
	if !loop.IsLoopback() {
		t.Fatalf("expected loopback")
	}
	mc := IPv4FromBytes([]byte{224, 0, 0, 1})
	if !mc.IsMulticast() {
		t.Fatalf("expected multicast")
	}
}

func TestIPv6RoundTrip(t *testing.T) {
	loopback := IPv6{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}
	if loopback.String() != "::1" {
		t.Fatalf("String = %q", loopback.String())
	}
	if back, err := ParseIPv6(loopback.String()); err != nil || back != loopback {
		t.Fatalf("ParseIPv6(%q) = %v, %v, want %v", loopback.String(), back, err, loopback)
	}
	if !loopback.IsLoopback() {
		t.Fatalf("expected loopback")
	}

	mc := IPv6{0xff, 0x02, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}
	if !mc.IsMulticast() || !mc.IsLinkLocalMulticast() {
		t.Fatalf("expected ff02 multicast")
	}
	wide := IPv6{0xff, 0x05, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}
	if wide.IsLinkLocalMulticast() {
		t.Fatalf("ff05 must not satisfy the narrow ff02 check")
	}
}

func TestParseTextualForms(t *testing.T) {
	m, err := ParseMAC("aa:bb:cc:dd:ee:ff")
	if err != nil || m.String() != "aa:bb:cc:dd:ee:ff" {
		t.Fatalf("ParseMAC = %v, %v", m, err)
	}
	if _, err := ParseMAC("not-a-mac"); err == nil {
		t.Fatalf("expected ParseMAC failure")
	}

	v4, err := ParseIPv4("93.184.216.34")
	if err != nil || v4 != (IPv4{93, 184, 216, 34}) {
		t.Fatalf("ParseIPv4 = %v, %v", v4, err)
	}
	if _, err := ParseIPv4("::1"); err == nil {
		t.Fatalf("expected ParseIPv4 failure on an IPv6 literal")
	}

	v6, err := ParseIPv6("2001:db8::1")
	if err != nil || v6.String() != "2001:db8::1" {
		t.Fatalf("ParseIPv6 = %v, %v", v6, err)
	}
	if _, err := ParseIPv6("10.0.0.1"); err == nil {
		t.Fatalf("expected ParseIPv6 failure on an IPv4 literal")
	}
}
