package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes mounts the status API. /metrics serves this process's default
// registry (Go runtime and process collectors); loader run metrics are pushed
// to the Pushgateway by the ingest binary and are not served here.
func SetupRoutes(status *StatusService) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", status.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/coverage/{period}", status.GetCoverage)
		r.Get("/suspects", status.GetSuspects)
		r.Get("/units/{period}/{region}", status.GetUnitRecords)
	})

	return r
}
