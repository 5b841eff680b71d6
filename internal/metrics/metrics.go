// Package metrics holds the Prometheus collectors of the planner API.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry is the dedicated Prometheus registry for the API.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by method, route pattern and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "route", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "route", "status"},
	)

	// PlannerCommands counts applied draft commands by type.
	PlannerCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "planner_commands_total", Help: "Draft commands applied, by type."},
		[]string{"type"},
	)
	// PlaceReconciliations counts ensure-place calls by result
	// (created, exists, failed).
	PlaceReconciliations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "place_reconciliations_total", Help: "Place reconciliation calls by result."},
		[]string{"result"},
	)
	// ItinerarySaves counts save attempts by mode (create, update) and
	// outcome (ok, partial, failed). partial is a save that went through with
	// place warnings.
	ItinerarySaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "itinerary_saves_total", Help: "Itinerary saves by mode and outcome."},
		[]string{"mode", "outcome"},
	)
	// SaveDuration records end-to-end save latency in seconds.
	SaveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "itinerary_save_duration_seconds", Help: "Itinerary save duration in seconds.", Buckets: prometheus.DefBuckets},
	)
)

var regOnce sync.Once

// RegisterDefault registers every collector on Registry. Safe to call more
// than once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(PlannerCommands)
		Registry.MustRegister(PlaceReconciliations)
		Registry.MustRegister(ItinerarySaves)
		Registry.MustRegister(SaveDuration)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler serves Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
