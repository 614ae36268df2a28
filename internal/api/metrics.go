package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/heysubinoy/pyazkv/internal/store"
)

// MetricsHandler returns current store metrics as JSON.
func MetricsHandler(instrumentedStore *store.InstrumentedStore, backend store.Kind, fallback bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics := instrumentedStore.GetMetrics()

		response := map[string]interface{}{
			"backend": map[string]interface{}{
				"kind":     backend,
				"fallback": fallback,
			},
			"operations": map[string]uint64{
				"save":   metrics.SaveCount,
				"get":    metrics.GetCount,
				"delete": metrics.DeleteCount,
				"errors": metrics.ErrorCount,
			},
			"avg_latency": map[string]string{
				"save":   metrics.SaveAvgLatency.String(),
				"get":    metrics.GetAvgLatency.String(),
				"delete": metrics.DeleteAvgLatency.String(),
			},
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}
}

// RegisterMetrics mounts the JSON snapshot at /api/metrics and the
// Prometheus exposition at /metrics.
func RegisterMetrics(m *mux.Router, sel *store.Selection, instrumented *store.InstrumentedStore, gatherer prometheus.Gatherer) {
	m.Handle("/api/metrics", MetricsHandler(instrumented, sel.Kind(), sel.Fallback())).Methods(http.MethodGet)
	m.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}
