// Package web provides the HTTP server, HTML pages and JSON API.
package web

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"

	"github.com/JonMunkholm/datasweeper/internal/config"
	"github.com/JonMunkholm/datasweeper/internal/core"
	mw "github.com/JonMunkholm/datasweeper/internal/web/middleware"
)

//go:embed static
var staticFiles embed.FS

// Server is the HTTP server for the data sweeper.
type Server struct {
	cfg      *config.Config
	service  *core.Service
	router   *chi.Mux
	server   *http.Server
	validate *validator.Validate
	limiter  *rateLimiter
	metrics  http.Handler
}

// NewServer creates a new Server. metrics serves /metrics; nil disables it.
func NewServer(cfg *config.Config, service *core.Service, metrics http.Handler) *Server {
	s := &Server{
		cfg:      cfg,
		service:  service,
		router:   chi.NewRouter(),
		validate: newValidator(),
		metrics:  metrics,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Trace())
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)

	// Security hardening
	s.router.Use(securityHeaders)

	if s.cfg.Rate.RequestsPerMinute > 0 {
		s.limiter = newRateLimiter(s.cfg.Rate.RequestsPerMinute, s.cfg.Rate.Burst)
		s.router.Use(s.limiter.middleware(func(w http.ResponseWriter, r *http.Request) {
			s.respondError(w, r, errRateLimited)
		}))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics)
	}

	// Pages
	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5, "text/html", "text/css", "image/svg+xml", "text/csv"))
		r.Use(s.withSession)

		r.Get("/", s.handleIndex)
		r.Post("/upload", s.handleUpload)
		r.Get("/files/{fileID}", s.handleFileView)
		r.Get("/files/{fileID}/charts/{kind}.svg", s.handleChartImage)
		r.Get("/files/{fileID}/export", s.handleExport)
		r.Post("/files/{fileID}/delete", s.handleDeleteFile)
		r.Post("/session/end", s.handleEndSession)
	})

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		if len(s.cfg.Security.CORSOrigins) > 0 {
			r.Use(cors.New(cors.Options{
				AllowedOrigins:   s.cfg.Security.CORSOrigins,
				AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete},
				AllowedHeaders:   []string{"Content-Type", "X-Request-Id"},
				ExposedHeaders:   []string{"Content-Disposition"},
				AllowCredentials: true,
			}).Handler)
		}
		r.Use(s.withSession)

		r.Post("/files", s.handleAPIUpload)
		r.Get("/files", s.handleAPIListFiles)
		r.Get("/files/{fileID}", s.handleAPIGetFile)
		r.Delete("/files/{fileID}", s.handleAPIDeleteFile)
		r.Post("/files/{fileID}/process", s.handleAPIProcess)
		r.Post("/files/{fileID}/export", s.handleAPIExport)
		r.Post("/files/{fileID}/charts/{kind}", s.handleAPIChart)
		r.Delete("/session", s.handleAPIEndSession)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")

		// Pages use no scripts; charts are same-origin SVG images
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'none'; img-src 'self' data:; style-src 'self'; form-action 'self'; frame-ancestors 'none'")

		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}
