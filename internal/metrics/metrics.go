// Package metrics holds the Prometheus collectors shared by the carrier
// generator. Counters are updated from the sink goroutine, so only atomic
// collector methods (Inc, Add, Set) are used on hot paths.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters
var (
	SupplyCallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fl2k_carrier_supply_calls_total",
		Help: "Total buffer-supply callbacks served to the sink",
	})
	DeviceErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fl2k_carrier_device_errors_total",
		Help: "Total supply callbacks that reported a transient device error",
	})
	RateSetFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fl2k_carrier_rate_set_failures_total",
		Help: "Total sample-rate changes rejected by the sink",
	})
)

// Gauges
var (
	AppliedSampleRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fl2k_carrier_applied_sample_rate_hz",
		Help: "Sample rate read back from the sink",
	})
	EffectiveCarrier = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fl2k_carrier_effective_frequency_hz",
		Help: "Carrier frequency implied by the applied sample rate",
	})
	SessionState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fl2k_carrier_session_state",
		Help: "Lifecycle state: 0 uninitialized, 1 opened, 2 streaming, 3 stopping, 4 closed",
	})
)
