// Package metrics defines prometheus metric types instrumenting the
// dissection core: parse attempts, malformed-packet detections, serialize
// calls, and registry lookups, across ipv6/dns/dot11.
//
// When adding a new metric, these are helpful values to track:
//  - things coming into or going out of a parser: buffers, records, units.
//  - the success or error status of any of the above.
//  - the distribution of section-shift/byte-size work.
package metrics

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ParseCount tracks calls to Unit.Parse, labeled by protocol unit
	// kind ("ipv6", "dns", "dot11") and outcome ("ok", "malformed").
	//
	// Provides metrics:
	//   netdissect_parse_total
	// Example usage:
	//   metrics.ParseCount.With(prometheus.Labels{"kind": "ipv6", "result": "ok"}).Inc()
	ParseCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netdissect_parse_total",
			Help: "The total number of Parse calls, by unit kind and outcome.",
		}, []string{"kind", "result"})

	// SerializeCount tracks calls to Unit.SerializeInto, labeled by kind.
	SerializeCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netdissect_serialize_total",
			Help: "The total number of SerializeInto calls, by unit kind.",
		}, []string{"kind"})

	// MalformedPacketCount counts MalformedPacket detections, labeled by
	// the package that raised them.
	MalformedPacketCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netdissect_malformed_packet_total",
			Help: "The total number of MalformedPacket errors raised, by package.",
		}, []string{"package"})

	// DNSSectionShiftBytes tracks the byte size of each DNS records_data
	// insertion (AddQuestion/AddAnswer/AddAuthority/AddAdditional), the
	// direct descendant of the teacher's byte-rate histograms, now
	// measuring mutation size rather than socket throughput.
	DNSSectionShiftBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "netdissect_dns_section_shift_bytes",
			Help:    "size in bytes of each DNS records_data insertion",
			Buckets: prometheus.ExponentialBuckets(8, 2, 10),
		})

	// RegistryLookupCount counts Protocol Dispatch Registry / IPv6
	// Allocator Registry lookups, labeled by registry name and whether a
	// builder was found.
	RegistryLookupCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netdissect_registry_lookup_total",
			Help: "The total number of registry lookups, by registry and hit/miss.",
		}, []string{"registry", "result"})
)

// init logs once at load time that the metrics are registered, matching
// the teacher's metrics.init() announcement.
func init() {
	log.Println("Prometheus metrics in netdissect.metrics are registered.")
}
