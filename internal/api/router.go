package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates and configures the HTTP router with all routes and middleware.
// staticDir is served read-only under StaticPrefix.
func NewRouter(h *Handlers, staticDir string, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	// Add middleware stack
	r.Use(RequestID)
	r.Use(RequestIDResponse) // Add X-Request-ID to response headers
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(Recovery(logger))
	r.Use(middleware.Compress(5, "application/json", "application/geo+json", "text/plain"))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"}, // The map frontend may be served from anywhere
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	// JSON API routes
	r.Group(func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/health", h.Health)
		r.Get("/", h.LandingPage)
		r.Get("/.well-known/appspecific/com.chrome.devtools.json", h.DevToolsManifest)

		r.Route("/ndvi", func(r chi.Router) {
			r.Post("/", h.NDVI)
			r.Get("/items/{itemId}", h.Item)
		})
	})

	// Generated rasters and overlays
	r.Get(StaticPrefix+"/*", staticFiles(staticDir))

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, "endpoint not found")
	})

	// 405 handler
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})

	return r
}

// staticFiles serves files from dir without directory listings.
func staticFiles(dir string) http.HandlerFunc {
	fs := http.StripPrefix(StaticPrefix, http.FileServer(http.Dir(dir)))
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			WriteNotFound(w, "file not found")
			return
		}
		fs.ServeHTTP(w, r)
	}
}
