package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegistered(t *testing.T) {
	for _, c := range []prometheus.Collector{Ticks, ItemsDemoted, StepErrors, LastRun, FieldCacheHits, FieldCacheMisses, AuditWrites} {
		if err := prometheus.Register(c); err == nil {
			t.Errorf("collector was not registered by init")
		} else if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			t.Errorf("unexpected register error: %v", err)
		}
	}
}

func TestTicksByOutcome(t *testing.T) {
	before := testutil.ToFloat64(Ticks.WithLabelValues("updated"))
	Ticks.WithLabelValues("updated").Inc()
	if got := testutil.ToFloat64(Ticks.WithLabelValues("updated")); got != before+1 {
		t.Fatalf("ticks{updated} = %v, want %v", got, before+1)
	}
}

func TestLastRunExposition(t *testing.T) {
	LastRun.Set(1700000000)
	expected := `
# HELP adverthide_last_run_timestamp_seconds Unix time of the last tick that ran the update cycle.
# TYPE adverthide_last_run_timestamp_seconds gauge
adverthide_last_run_timestamp_seconds 1.7e+09
`
	if err := testutil.CollectAndCompare(LastRun, strings.NewReader(expected)); err != nil {
		t.Fatal(err)
	}
}
