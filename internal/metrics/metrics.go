// Package metrics holds the Prometheus collectors of the bot.
// All recording methods are safe on a nil *Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of the bot
type Metrics struct {
	MessagesTotal     *prometheus.CounterVec
	BundlesActive     prometheus.Gauge
	BundleFlushTotal  *prometheus.CounterVec
	BundleSize        prometheus.Histogram
	ExtractionsTotal  *prometheus.CounterVec
	LookupsTotal      *prometheus.CounterVec
	SheetAppendsTotal *prometheus.CounterVec
	CompletionsTotal  *prometheus.CounterVec
	JobsTotal         *prometheus.CounterVec
	CallSeconds       *prometheus.HistogramVec
}

// New registers the metrics with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		MessagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sourcing_messages_total",
				Help: "Inbound chat messages by route",
			},
			[]string{"route"},
		),
		BundlesActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sourcing_bundles_active",
				Help: "Bundles waiting for a flush",
			},
		),
		BundleFlushTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sourcing_bundle_flushes_total",
				Help: "Bundle flushes by reason",
			},
			[]string{"reason"},
		),
		BundleSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sourcing_bundle_messages",
				Help:    "Messages per flushed bundle",
				Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
			},
		),
		ExtractionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sourcing_extractions_total",
				Help: "Bundle extractions by outcome",
			},
			[]string{"outcome"},
		),
		LookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sourcing_pricing_lookups_total",
				Help: "Pricing lookups by status",
			},
			[]string{"status"},
		),
		SheetAppendsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sourcing_sheet_appends_total",
				Help: "Sheet row appends by status",
			},
			[]string{"status"},
		),
		CompletionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sourcing_chat_completions_total",
				Help: "Chat completion calls by purpose and status",
			},
			[]string{"purpose", "status"},
		),
		JobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sourcing_jobs_total",
				Help: "Scheduled job runs by job and status",
			},
			[]string{"job", "status"},
		),
		CallSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sourcing_collaborator_call_seconds",
				Help:    "Latency of calls to external services",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"collaborator"},
		),
	}
}

// Message counts an inbound message by route
func (m *Metrics) Message(route string) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(route).Inc()
}

// SetActiveBundles sets the active bundle gauge
func (m *Metrics) SetActiveBundles(n int) {
	if m == nil {
		return
	}
	m.BundlesActive.Set(float64(n))
}

// Flush counts a bundle flush
func (m *Metrics) Flush(reason string, messages int) {
	if m == nil {
		return
	}
	m.BundleFlushTotal.WithLabelValues(reason).Inc()
	m.BundleSize.Observe(float64(messages))
}

// Extraction counts an extraction outcome
func (m *Metrics) Extraction(outcome string) {
	if m == nil {
		return
	}
	m.ExtractionsTotal.WithLabelValues(outcome).Inc()
}

// Lookup counts a pricing lookup
func (m *Metrics) Lookup(status string) {
	if m == nil {
		return
	}
	m.LookupsTotal.WithLabelValues(status).Inc()
}

// SheetAppend counts a sheet append
func (m *Metrics) SheetAppend(status string) {
	if m == nil {
		return
	}
	m.SheetAppendsTotal.WithLabelValues(status).Inc()
}

// Completion counts a chat completion
func (m *Metrics) Completion(purpose, status string) {
	if m == nil {
		return
	}
	m.CompletionsTotal.WithLabelValues(purpose, status).Inc()
}

// Job counts a scheduled job run
func (m *Metrics) Job(job, status string) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(job, status).Inc()
}

// ObserveCall records the latency of an external call started at start
func (m *Metrics) ObserveCall(collaborator string, start time.Time) {
	if m == nil {
		return
	}
	m.CallSeconds.WithLabelValues(collaborator).Observe(time.Since(start).Seconds())
}
