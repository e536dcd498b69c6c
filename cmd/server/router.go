package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tendant/simple-posts/pkg/simpleposts"
	"github.com/tendant/simple-posts/pkg/simpleposts/api"
	"github.com/tendant/simple-posts/pkg/simpleposts/config"
)

// NewRouter sets up the HTTP routes
func NewRouter(svc simpleposts.Service, serverConfig *config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS for development
	if serverConfig.Environment == "development" {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusOK)
					return
				}

				next.ServeHTTP(w, r)
			})
		})
	}

	r.Get("/health", api.Health)

	handler := api.NewPostsHandler(svc,
		api.WithLogger(serverConfig.Logger),
		api.WithMaxUploadSize(serverConfig.MaxUploadSize),
		api.WithUploadRateLimit(serverConfig.UploadRateLimit),
	)
	r.Mount("/posts", handler.Routes())

	return r
}
