package main

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// newRouter wires the challenge endpoints. Paths match case-insensitively
// and CORS is fully open so browser clients can call from anywhere.
func newRouter(log *slog.Logger, h *handler) http.Handler {
	r := chi.NewRouter()

	r.Use(lowercasePath)
	r.Use(requestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Post("/challenge_1", h.challenge1)
	r.Post("/challenge_2", h.challenge2)
	r.Post("/challenge_3", h.challenge3)
	r.Post("/challenge_4", h.challenge4)
	r.Get("/health", h.health)

	notFound := func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "Endpoint not found.")
	}
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	return r
}

func lowercasePath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.URL.Path = strings.ToLower(r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Info("request handled",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"duration", time.Since(start).String())
		})
	}
}
