// Package metrics holds the Prometheus collectors of the geometry pipeline
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for construction and the catalog.
// All methods are nil-safe so components can run without metrics
type Metrics struct {
	// Detectors fully emitted, by model kind
	DetectorsBuilt *prometheus.CounterVec

	// Detectors that failed and were rolled back, by error code
	DetectorsFailed *prometheus.CounterVec

	// Solids handed to the backend, by shape
	SolidsCreated *prometheus.CounterVec

	// Time to emit one detector
	BuildLatency prometheus.Histogram

	// Catalog writes by driver and outcome
	CatalogWrites *prometheus.CounterVec
}

// New registers the collectors with the default registry
func New() *Metrics { return NewWith(prometheus.DefaultRegisterer) }

// NewWith registers the collectors with reg; tests pass a fresh prometheus.NewRegistry()
func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DetectorsBuilt: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pixgeo_detectors_built_total",
			Help: "Detectors whose full geometry was emitted to the backend",
		}, []string{"kind"}),

		DetectorsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pixgeo_detectors_failed_total",
			Help: "Detectors whose construction failed and was rolled back",
		}, []string{"code"}),

		SolidsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pixgeo_solids_created_total",
			Help: "Solids created in the backend by shape",
		}, []string{"shape"}), // box, sphere, cylinder, union, multi_union, subtraction

		BuildLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "pixgeo_detector_build_duration_seconds",
			Help:    "Duration of one detector construction pass",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),

		CatalogWrites: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pixgeo_catalog_writes_total",
			Help: "Geometry manifests written to the catalog",
		}, []string{"driver", "outcome"}),
	}
}

// IncrementBuilt records a successfully built detector
func (m *Metrics) IncrementBuilt(kind string) {
	if m != nil {
		m.DetectorsBuilt.WithLabelValues(kind).Inc()
	}
}

// IncrementFailed records a failed detector
func (m *Metrics) IncrementFailed(code string) {
	if m != nil {
		m.DetectorsFailed.WithLabelValues(code).Inc()
	}
}

// AddSolid records one solid of the given shape
func (m *Metrics) AddSolid(shape string) {
	if m != nil {
		m.SolidsCreated.WithLabelValues(shape).Inc()
	}
}

// ObserveBuild records the duration of one detector construction
func (m *Metrics) ObserveBuild(d time.Duration) {
	if m != nil {
		m.BuildLatency.Observe(d.Seconds())
	}
}

// IncrementCatalogWrite records a catalog write attempt
func (m *Metrics) IncrementCatalogWrite(driver string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.CatalogWrites.WithLabelValues(driver, outcome).Inc()
}
