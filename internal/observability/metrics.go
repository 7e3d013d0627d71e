// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Mint metrics
	MintsSubmitted       *prometheus.CounterVec
	MintOutcomes         *prometheus.CounterVec
	ValidationRejections *prometheus.CounterVec
	MintDuration         *prometheus.HistogramVec
	MintInFlight         prometheus.Gauge

	// Network metrics
	NetworkSwitches *prometheus.CounterVec
	NetworkMismatch prometheus.Counter

	// Transport metrics
	RPCCallLatency *prometheus.HistogramVec

	// Health metrics
	LastSuccessfulMint prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "sbt_minter"
	}

	return &Metrics{
		MintsSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "submitted_total",
			Help:      "Total number of mint transactions handed to the wallet by kind",
		}, []string{"kind"}),
		MintOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "outcomes_total",
			Help:      "Total number of settled mint submissions by kind and phase",
		}, []string{"kind", "phase"}),
		ValidationRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "validation_rejections_total",
			Help:      "Total number of mint intents rejected before submission",
		}, []string{"kind", "reason"}),
		MintDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "duration_seconds",
			Help:      "Time from submission to confirmation or failure",
			Buckets:   []float64{1, 2, 5, 10, 15, 30, 60, 120, 300},
		}, []string{"kind"}),
		MintInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "in_flight",
			Help:      "1 while a mint submission is pending",
		}),

		NetworkSwitches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "network",
			Name:      "switch_requests_total",
			Help:      "Total number of network switch requests by result",
		}, []string{"result"}),
		NetworkMismatch: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "network",
			Name:      "mismatch_total",
			Help:      "Total number of submissions blocked by a wrong wallet network",
		}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_latency_seconds",
			Help:      "JSON-RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		LastSuccessfulMint: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_mint_timestamp",
			Help:      "Unix timestamp of last confirmed mint",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordMintSubmitted increments the submitted counter for kind.
func RecordMintSubmitted(kind string) {
	DefaultMetrics.MintsSubmitted.WithLabelValues(kind).Inc()
}

// RecordMintOutcome records a settled submission.
func RecordMintOutcome(kind, phase string, durationSeconds float64, finishedUnix int64) {
	DefaultMetrics.MintOutcomes.WithLabelValues(kind, phase).Inc()
	DefaultMetrics.MintDuration.WithLabelValues(kind).Observe(durationSeconds)
	if phase == "success" {
		DefaultMetrics.LastSuccessfulMint.Set(float64(finishedUnix))
	}
}

// RecordValidationRejection records an intent rejected before submission.
func RecordValidationRejection(kind, reason string) {
	DefaultMetrics.ValidationRejections.WithLabelValues(kind, reason).Inc()
}

// SetMintInFlight updates the in-flight gauge.
func SetMintInFlight(inFlight bool) {
	if inFlight {
		DefaultMetrics.MintInFlight.Set(1)
		return
	}
	DefaultMetrics.MintInFlight.Set(0)
}

// RecordNetworkSwitch records a network switch request result.
func RecordNetworkSwitch(result string) {
	DefaultMetrics.NetworkSwitches.WithLabelValues(result).Inc()
}

// RecordNetworkMismatch records a submission blocked by the wrong network.
func RecordNetworkMismatch() {
	DefaultMetrics.NetworkMismatch.Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}
