package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/m-lab/netdissect/metrics"
)

func TestParseCountIncrements(t *testing.T) {
	before := testutil.ToFloat64(metrics.ParseCount.With(prometheus.Labels{"kind": "ipv6", "result": "ok"}))
	metrics.ParseCount.With(prometheus.Labels{"kind": "ipv6", "result": "ok"}).Inc()
	after := testutil.ToFloat64(metrics.ParseCount.With(prometheus.Labels{"kind": "ipv6", "result": "ok"}))
	if after != before+1 {
		t.Fatalf("ParseCount did not increment: before=%v after=%v", before, after)
	}
}

func TestDNSSectionShiftBytesObserves(t *testing.T) {
	before := testutil.CollectAndCount(metrics.DNSSectionShiftBytes)
	metrics.DNSSectionShiftBytes.Observe(14)
	after := testutil.CollectAndCount(metrics.DNSSectionShiftBytes)
	if after != before {
		t.Fatalf("unexpected metric family count change: before=%d after=%d", before, after)
	}
}
