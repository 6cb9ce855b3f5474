package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/hostelsec"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Event lifecycle metrics
	EventsOpenedTotal   metric.Int64Counter
	EventsDisposedTotal metric.Int64Counter
	EventsRejectedTotal metric.Int64Counter

	// Broadcast metrics
	BroadcastPublishTotal   metric.Int64Counter
	BroadcastDeliveryErrors metric.Int64Counter
	BroadcastDuration       metric.Float64Histogram
	ActiveObservers         metric.Int64UpDownCounter
	ObserversPrunedTotal    metric.Int64Counter

	// Authorization metrics
	AuthzDenialsTotal metric.Int64Counter

	// Agent ingest metrics
	AgentAuthFailuresTotal metric.Int64Counter
	EvidenceUploadsTotal   metric.Int64Counter
	EvidenceFailuresTotal  metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	// Event lifecycle metrics
	m.EventsOpenedTotal, _ = meter.Int64Counter(
		"hostelsec.events.opened.total",
		metric.WithDescription("Total number of access events opened"),
		metric.WithUnit("{event}"),
	)

	m.EventsDisposedTotal, _ = meter.Int64Counter(
		"hostelsec.events.disposed.total",
		metric.WithDescription("Total number of event dispositions applied"),
		metric.WithUnit("{event}"),
	)

	m.EventsRejectedTotal, _ = meter.Int64Counter(
		"hostelsec.events.rejected.total",
		metric.WithDescription("Total number of dispositions rejected by validation"),
		metric.WithUnit("{event}"),
	)

	// Broadcast metrics
	m.BroadcastPublishTotal, _ = meter.Int64Counter(
		"hostelsec.broadcast.publish.total",
		metric.WithDescription("Total number of messages published to observers"),
		metric.WithUnit("{message}"),
	)

	m.BroadcastDeliveryErrors, _ = meter.Int64Counter(
		"hostelsec.broadcast.delivery.errors.total",
		metric.WithDescription("Total number of failed deliveries to observers"),
		metric.WithUnit("{error}"),
	)

	m.BroadcastDuration, _ = meter.Float64Histogram(
		"hostelsec.broadcast.publish.duration",
		metric.WithDescription("Duration of a publish across all observers"),
		metric.WithUnit("ms"),
	)

	m.ActiveObservers, _ = meter.Int64UpDownCounter(
		"hostelsec.broadcast.observers.active",
		metric.WithDescription("Number of subscribed observers"),
		metric.WithUnit("{observer}"),
	)

	m.ObserversPrunedTotal, _ = meter.Int64Counter(
		"hostelsec.broadcast.observers.pruned.total",
		metric.WithDescription("Total number of observers removed after a failed delivery"),
		metric.WithUnit("{observer}"),
	)

	// Authorization metrics
	m.AuthzDenialsTotal, _ = meter.Int64Counter(
		"hostelsec.authz.denials.total",
		metric.WithDescription("Total number of denied authorization checks"),
		metric.WithUnit("{denial}"),
	)

	// Agent ingest metrics
	m.AgentAuthFailuresTotal, _ = meter.Int64Counter(
		"hostelsec.agents.auth_failures.total",
		metric.WithDescription("Total number of rejected agent credentials"),
		metric.WithUnit("{request}"),
	)

	m.EvidenceUploadsTotal, _ = meter.Int64Counter(
		"hostelsec.evidence.uploads.total",
		metric.WithDescription("Total number of evidence images stored"),
		metric.WithUnit("{object}"),
	)

	m.EvidenceFailuresTotal, _ = meter.Int64Counter(
		"hostelsec.evidence.failures.total",
		metric.WithDescription("Total number of evidence uploads that failed and were skipped"),
		metric.WithUnit("{object}"),
	)

	return m
}
