package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fileworks/fileworks/internal/metrics"
)

// NewRouter wires the HTTP surface. Submission routes sit behind the quota
// middleware; status, download and delete do not count against the limit.
func NewRouter(s *Server) http.Handler {
	mux := http.NewServeMux()

	submit := func(h http.HandlerFunc) http.Handler {
		return s.Quota.Middleware(h)
	}

	mux.Handle("POST /api/v1/jobs/image", submit(s.SubmitImageJob))
	mux.Handle("POST /api/v1/jobs/pdf", submit(s.SubmitPDFJob))
	mux.HandleFunc("GET /api/v1/jobs/{id}", s.GetJob)
	mux.HandleFunc("GET /api/v1/jobs/{id}/download", s.DownloadJob)
	mux.HandleFunc("DELETE /api/v1/jobs/{id}", s.DeleteJob)

	mux.HandleFunc("GET /healthz", s.Healthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = metrics.HTTPMetricsMiddleware(handler)
	handler = LoggingMiddleware(handler)
	handler = RecoveryMiddleware(handler)
	handler = RequestIDMiddleware(handler)
	return handler
}

// Healthz reports liveness plus storage reachability.
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := s.Storage.HealthCheck(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  "storage unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
