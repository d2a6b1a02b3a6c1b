// Package metric exposes the agent's prometheus instrumentation.
package metric

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Observations counts decoded readings by protocol token.
	Observations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amr_observations_total",
		Help: "Decoded meter readings consumed from the radio decoder.",
	}, []string{"protocol"})

	// MetersDiscovered counts meters newly added to the catalog.
	MetersDiscovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "amr_meters_discovered_total",
		Help: "Meters added to the discovery catalog.",
	})

	// CatalogSize tracks the current catalog size.
	CatalogSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "amr_catalog_size",
		Help: "Meters currently held in the discovery catalog.",
	})

	// MergeAdditions counts meters merged into the primary configuration.
	MergeAdditions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "amr_merge_additions_total",
		Help: "Discovered meters written into the primary configuration.",
	})

	// PublishErrors counts failed MQTT publishes.
	PublishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "amr_publish_errors_total",
		Help: "MQTT publishes that failed.",
	})
)

// Serve exposes /metrics on addr in the background. Listen failures are
// logged; metrics are an aid, not a dependency.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Default().Warn("metrics listener stopped", "addr", addr, "error", err)
		}
	}()
}
