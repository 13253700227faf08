package api

import (
	"context"
	"net/http"

	"github.com/questx-lab/authserver/config"
	"github.com/rs/cors"
)

type Router struct {
	mux    *http.ServeMux
	inject func(context.Context) context.Context
}

// NewRouter returns an empty router. inject attaches the process services
// (configs, logger, database) to every request context.
func NewRouter(inject func(context.Context) context.Context) *Router {
	if inject == nil {
		inject = func(ctx context.Context) context.Context { return ctx }
	}

	return &Router{mux: http.NewServeMux(), inject: inject}
}

// Handle registers a plain http handler, for example the metrics endpoint.
func (r *Router) Handle(path string, handler http.Handler) {
	r.mux.Handle(path, handler)
}

// Handler returns the router wrapped by the CORS policy.
func (r *Router) Handler(cfg config.CorsConfigs) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.Origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		ExposedHeaders:   cfg.ExposedHeaders,
		AllowCredentials: true,
	}).Handler(r.mux)
}
