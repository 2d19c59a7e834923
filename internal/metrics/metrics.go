package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Render kinds used as the "kind" label.
const (
	KindMap  = "map"
	KindCard = "card"
	KindPage = "page"
)

// Metrics provides observability for map rendering and selection.
// Each instance owns its registry so tests can build several.
type Metrics struct {
	registry *prometheus.Registry

	Renders        *prometheus.CounterVec
	RenderDuration *prometheus.HistogramVec
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	Selections     prometheus.Counter
}

// New creates a Metrics instance with all metrics registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Renders: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "popmap_renders_total",
			Help: "Total number of SVG renders by kind",
		}, []string{"kind"}),
		RenderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "popmap_render_duration_seconds",
			Help:    "Duration of SVG renders by kind",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"kind"}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "popmap_render_cache_hits_total",
			Help: "Total number of rendered SVGs served from cache",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "popmap_render_cache_misses_total",
			Help: "Total number of render cache misses",
		}),
		Selections: factory.NewCounter(prometheus.CounterOpts{
			Name: "popmap_selections_total",
			Help: "Total number of country picks applied to a selection",
		}),
	}
}

// ObserveRender records a render of kind.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRender(kind string, start time.Time) {
	m.Renders.WithLabelValues(kind).Inc()
	m.RenderDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// ObserveCache records a render cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if hit {
		m.CacheHits.Inc()
		return
	}
	m.CacheMisses.Inc()
}

// AddSelections records n applied picks.
func (m *Metrics) AddSelections(n int) {
	if n > 0 {
		m.Selections.Add(float64(n))
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
