package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fiscal/internal/platform/middleware"
)

// NewRouter assembles the public surface. Health and metrics stay outside the
// authenticated chain.
func NewRouter(h *Handler, validator *middleware.JWTValidator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	api := chi.NewRouter()
	api.Use(middleware.Timeout(60 * time.Second))
	api.Use(middleware.RequireAuth(validator, logger))
	h.Register(api)
	r.Mount("/", api)

	return r
}
