package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// NewRouter 注册全部路由。metrics 为 nil 时不暴露 /metrics。
func NewRouter(h *RecommendHandler, logger zerolog.Logger, metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(Identity)

	r.Get("/health", Health)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/api/recommendations", func(r chi.Router) {
		r.Get("/popular", h.GetPopular)
		r.Get("/similar/{productId}", h.GetSimilar)

		r.Group(func(r chi.Router) {
			r.Use(RequireUser)
			r.With(RequireConsent).Get("/", h.GetRecommendations)
			r.With(RequireConsent).Post("/track", h.Track)
			r.Get("/history", h.History)
			r.Delete("/history", h.DeleteHistory)
		})
	})
	r.Get("/api/products/{productId}/stats", h.ProductStats)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		fail(w, http.StatusNotFound, "route not found")
	})
	return r
}
