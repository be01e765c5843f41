package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CatalogFallbacks counts shop renders served from the sample products
	CatalogFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_fallback_renders_total",
			Help: "Shop catalog loads that failed and fell back to sample products",
		},
	)

	// ImageIngests counts ingest outcomes by result ("ok" or a validation reason)
	ImageIngests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_ingest_total",
			Help: "Image ingest attempts by outcome",
		},
		[]string{"outcome"},
	)

	// FormSubmissions counts product form submissions by mode and outcome
	FormSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_form_submissions_total",
			Help: "Product form submissions by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	// DashboardSessions tracks open dashboard shells
	DashboardSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_sessions_open",
			Help: "Dashboard shells currently held in memory",
		},
	)
)
