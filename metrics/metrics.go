package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons used with [DroppedTotal].
const (
	ReasonInactive     = "inactive"
	ReasonNoHandler    = "no_handler"
	ReasonCrossThread  = "cross_thread"
	ReasonUnregistered = "unregistered"
)

var (
	ProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_processed_total",
		Help: "Total number of events handed to a handler, by bus kind and event type",
	}, []string{"bus", "event"})

	DroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_dropped_total",
		Help: "Total number of events or registrations that were ignored, by bus kind and reason",
	}, []string{"bus", "reason"})

	HandlerPanicsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_handler_panics_total",
		Help: "Total number of handler panics recovered by a bus",
	}, []string{"bus", "event"})

	DefaultsInstalledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_defaults_installed_total",
		Help: "Total number of lazily installed default handlers",
	}, []string{"bus", "event"})

	RedirectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_router_redirects_total",
		Help: "Total number of router redirects from one message type to another",
	}, []string{"from", "to"})

	InFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dispatch_inflight_handlers",
		Help: "Number of handlers currently executing",
	}, []string{"bus"})
)

// IncDropped records an ignored operation with a concrete reason.
func IncDropped(bus, reason string) {
	if reason == "" {
		reason = "unknown"
	}
	DroppedTotal.WithLabelValues(bus, reason).Inc()
}
