package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "marketdash_cycles_total", Help: "Completed poll cycles by outcome"},
		[]string{"outcome"},
	)
	FetchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "marketdash_fetch_errors_total", Help: "Per-symbol fetch failures"},
		[]string{"symbol"},
	)
	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "marketdash_transitions_total", Help: "Emitted trend transitions"},
		[]string{"symbol", "state"},
	)
	CycleDuration = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "marketdash_cycle_duration_seconds", Help: "Duration of the last completed poll cycle"},
	)
)

func init() {
	prometheus.MustRegister(CyclesTotal, FetchErrorsTotal, TransitionsTotal, CycleDuration)
}
