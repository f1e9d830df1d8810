package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var Ticks = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "adverthide_ticks_total",
	Help: "Ticks handled, by outcome.",
}, []string{"outcome"})
var ItemsDemoted = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "adverthide_items_demoted_total",
	Help: "Content items moved from the public to the registered access group.",
})
var StepErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "adverthide_step_errors_total",
	Help: "Failed tick steps, by step.",
}, []string{"step"})
var LastRun = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "adverthide_last_run_timestamp_seconds",
	Help: "Unix time of the last tick that ran the update cycle.",
})
var FieldCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "adverthide_field_cache_hits_total",
})
var FieldCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "adverthide_field_cache_misses_total",
})
var AuditWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "adverthide_audit_writes_total",
}, []string{"destination", "result"})

func init() {
	prometheus.MustRegister(Ticks)
	prometheus.MustRegister(ItemsDemoted)
	prometheus.MustRegister(StepErrors)
	prometheus.MustRegister(LastRun)
	prometheus.MustRegister(FieldCacheHits)
	prometheus.MustRegister(FieldCacheMisses)
	prometheus.MustRegister(AuditWrites)
}
