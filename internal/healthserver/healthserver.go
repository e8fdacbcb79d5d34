// Package healthserver exposes the pod process's /healthz and /metrics
// endpoints, grounded on the teacher's chi-routed internal/app/router.go
// (srv.HealthzHandler, promhttp.Handler) but pared down to what a pod
// runtime needs: liveness plus Prometheus scraping, no application API.
package healthserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Checker reports whether the pod is currently healthy, e.g. whether the
// main loop is still running.
type Checker func() error

// NewRouter builds the health/metrics HTTP handler. reg is the Prometheus
// registry the pod's observability.Metrics were registered against.
func NewRouter(reg *prometheus.Registry, check Checker) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", healthzHandler(check))
	r.Get("/readyz", healthzHandler(check))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return r
}

func healthzHandler(check Checker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// Serve builds an HTTP server for handler on addr without starting it; the
// caller runs ListenAndServe and can Shutdown it gracefully, grounded on the
// teacher's cmd/worker metrics server goroutine pattern.
func Serve(addr string, handler http.Handler) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv
}
