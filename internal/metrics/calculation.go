package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search and calculation Prometheus metrics.
var (
	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Emission factor search duration in seconds, embedding included",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)

	// ProcessesTotal counts calculated or omitted processes by source type and outcome
	// ("matched", "low_confidence", "no_match", "default").
	ProcessesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "processes_total",
			Help:      "Processes handled by the emissions calculator",
		},
		[]string{"source", "outcome"},
	)

	// ReportsTotal counts reports by completeness ("complete", "partial", "failed").
	ReportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Emissions reports produced",
		},
		[]string{"status"},
	)

	CatalogFactors = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_factors",
			Help:      "Emission factors in the active catalog",
		},
		[]string{"version"},
	)
)

var calcMetricsRegistered bool

// RegisterCalculationMetrics registers search and calculation metrics. Must be called once from main.
func RegisterCalculationMetrics() {
	if calcMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchDuration, ProcessesTotal, ReportsTotal, CatalogFactors)
	calcMetricsRegistered = true
}
