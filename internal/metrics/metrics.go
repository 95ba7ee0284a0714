package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SessionsStartedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qgeomap_sessions_started_total",
		Help: "Editing sessions started, by start mode",
	}, []string{"mode"})
	SessionsEndedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qgeomap_sessions_ended_total",
		Help: "Editing sessions ended, by whether a geometry result was returned",
	}, []string{"result"})
	ShapesCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "qgeomap_shapes_created_total",
		Help: "Shapes added to staging by toolkit created events",
	})
	ShapesDeletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "qgeomap_shapes_deleted_total",
		Help: "Shapes removed from staging by toolkit deleted events",
	})
	ToolkitEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "qgeomap_toolkit_events_total",
		Help: "Diagnostic toolkit lifecycle events observed",
	}, []string{"event"})
	StagedShapes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "qgeomap_staged_shapes",
		Help:    "Shapes staged when a session ended",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
	})
)

func init() {
	prometheus.MustRegister(SessionsStartedTotal)
	prometheus.MustRegister(SessionsEndedTotal)
	prometheus.MustRegister(ShapesCreatedTotal)
	prometheus.MustRegister(ShapesDeletedTotal)
	prometheus.MustRegister(ToolkitEventsTotal)
	prometheus.MustRegister(StagedShapes)
}

// Handler serves the registered metrics for scraping at /metrics.
func Handler() http.Handler { return promhttp.Handler() }
