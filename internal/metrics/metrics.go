// Package metrics provides Prometheus metrics for dnsshift.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every dnsshift metric.
const Namespace = "dnsshift"

var (
	// BuildInfo exposes version information as labels on a constant 1 gauge.
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "build_info",
		Help:      "Build information for dnsshift.",
	}, []string{"version", "go_version"})

	// PassesTotal counts reconciliation passes by outcome (success, partial, error).
	PassesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "passes_total",
		Help:      "Total number of reconciliation passes by status.",
	}, []string{"status"})

	// PassDuration observes how long each reconciliation pass took.
	PassDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "pass_duration_seconds",
		Help:      "Duration of reconciliation passes in seconds.",
		Buckets:   prometheus.DefBuckets,
	})

	// RecordsUpdatedTotal counts records rewritten to the desired address.
	RecordsUpdatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "records_updated_total",
		Help:      "Total number of DNS records updated, by pass (declared, discovery).",
	}, []string{"pass"})

	// RecordsSkippedTotal counts records left untouched, by reason.
	RecordsSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "records_skipped_total",
		Help:      "Total number of DNS records left untouched, by pass and reason.",
	}, []string{"pass", "reason"})

	// FailuresTotal counts per-domain and per-zone failures.
	FailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "failures_total",
		Help:      "Total number of failed units of work, by pass.",
	}, []string{"pass"})

	// DesiredAddress is 1 for the currently desired address and 0 for the other managed one.
	DesiredAddress = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "desired_address",
		Help:      "Currently desired address (1) versus the other managed address (0).",
	}, []string{"address"})

	// LastPassTimestamp is the unix time the last pass completed.
	LastPassTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "last_pass_timestamp_seconds",
		Help:      "Unix timestamp of the last completed reconciliation pass.",
	})
)

// SetBuildInfo records the running version.
func SetBuildInfo(version, goVersion string) {
	BuildInfo.WithLabelValues(version, goVersion).Set(1)
}

// SetDesiredAddress marks desired as active among the managed addresses.
func SetDesiredAddress(desired string, managed []string) {
	for _, addr := range managed {
		value := 0.0
		if addr == desired {
			value = 1
		}
		DesiredAddress.WithLabelValues(addr).Set(value)
	}
}
