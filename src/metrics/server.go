package metrics

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func healthHandler(rw http.ResponseWriter, r *http.Request) {
	rw.WriteHeader(http.StatusOK)
}

// Handler serves /metrics for gatherer and a /health probe. A nil gatherer
// uses the default registry.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	m := mux.NewRouter()

	if gatherer == nil {
		m.Handle("/metrics", promhttp.Handler())
	} else {
		m.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	m.HandleFunc("/health", healthHandler).Methods(http.MethodGet, http.MethodHead)

	return m
}
