package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opensource-health/heron/internal/consult"
	"github.com/opensource-health/heron/internal/domain"
	"github.com/opensource-health/heron/internal/knowledge"
	"github.com/opensource-health/heron/internal/metrics"
	"github.com/opensource-health/heron/internal/patient"
	"github.com/opensource-health/heron/internal/reports"
	"github.com/opensource-health/heron/internal/rules"
)

// Deps are the collaborators the API serves. Repo, Cache, Bus and
// Metrics may be nil.
type Deps struct {
	Catalog  *knowledge.Catalog
	Matcher  *rules.SymptomMatcher
	Checker  *rules.InteractionChecker
	Engine   *rules.Engine
	Consult  *consult.Service
	Patients *patient.Service
	Reports  *reports.Service

	// DefaultRules are reloaded under any stored clinical rules
	DefaultRules []*domain.ClinicalRule

	Repo    domain.Repository
	Cache   domain.Cache
	Bus     domain.EventBus
	Metrics *metrics.Metrics

	Version string
}

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, deps Deps) *Server {
	handler := NewHandler(deps)
	router := chi.NewRouter()

	router.Use(CORSMiddleware)
	router.Use(RecoverMiddleware)
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))
	router.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateBurst))
	router.Use(MetricsMiddleware(deps.Metrics))

	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)
	router.Get("/metrics", handler.Metrics)

	// Knowledge catalogs and the matching engines
	router.Get("/symptoms", handler.ListSymptoms)
	router.Post("/symptoms/analyze", handler.AnalyzeSymptoms)
	router.Get("/conditions", handler.ListConditions)
	router.Get("/interactions", handler.ListInteractions)
	router.Post("/interactions/check", handler.CheckInteractions)
	router.Post("/calculators/{id}", handler.Calculate)
	router.Post("/consult", handler.Consult)

	// Clinical decision support
	router.Route("/cds", func(r chi.Router) {
		r.Get("/modules", handler.ListModules)
		r.Post("/evaluate", handler.EvaluateClinical)

		r.Get("/rules", handler.ListRules)
		r.Post("/rules", handler.SaveRule)
		r.Post("/rules/reload", handler.ReloadRules)
		r.Get("/rules/{id}", handler.GetRule)
		r.Delete("/rules/{id}", handler.DeleteRule)
	})

	// Practice records
	router.Get("/patients", handler.GetPatients)
	router.Put("/patients", handler.SavePatients)
	router.Get("/appointments", handler.GetAppointments)
	router.Put("/appointments", handler.SaveAppointments)
	router.Get("/prescriptions", handler.GetPrescriptions)
	router.Put("/prescriptions", handler.SavePrescriptions)
	router.Get("/settings", handler.GetSettings)
	router.Put("/settings", handler.SaveSettings)
	router.Get("/backup", handler.Backup)
	router.Post("/restore", handler.Restore)

	// Reports
	router.Post("/reports/{type}", handler.GenerateReport)
	router.Post("/reports/{type}/export", handler.ExportReport)

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
