package pdu

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/m-lab/netdissect/metrics"
)

// MalformedPacket is returned by Parse when a length field exceeds buffer
// bounds, a compression pointer is out of range, a domain name exceeds its
// length bound, or a fixed-size header cannot be read in full. A parser
// either returns a fully-formed Unit or this error, never a partial unit.
var MalformedPacket = errors.New("pdu: malformed packet")

// InvalidInterface is raised only by the interface-resolution collaborator
// (see ifresolve); it is declared here because the send path (outside the
// core) propagates it alongside MalformedPacket.
var InvalidInterface = errors.New("pdu: invalid interface")

// RecordParse updates ParseCount (and MalformedPacketCount on failure) for
// a Parse call made by the named unit package ("ipv6", "dns", "dot11").
// Called via defer at the top of each unit's Parse method.
func RecordParse(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "malformed"
		metrics.MalformedPacketCount.With(prometheus.Labels{"package": kind}).Inc()
	}
	metrics.ParseCount.With(prometheus.Labels{"kind": kind, "result": result}).Inc()
}

// RecordSerialize updates SerializeCount for a SerializeInto call made by
// the named unit package.
func RecordSerialize(kind string) {
	metrics.SerializeCount.With(prometheus.Labels{"kind": kind}).Inc()
}
