package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/opensource-health/heron/internal/calc"
	"github.com/opensource-health/heron/internal/consult"
	"github.com/opensource-health/heron/internal/domain"
	"github.com/opensource-health/heron/internal/knowledge"
	"github.com/opensource-health/heron/internal/metrics"
	"github.com/opensource-health/heron/internal/patient"
	"github.com/opensource-health/heron/internal/reports"
	"github.com/opensource-health/heron/internal/repository"
	"github.com/opensource-health/heron/internal/rules"
)

// maxBodyBytes bounds request bodies. Restores carry the whole record store.
const maxBodyBytes = 32 << 20

// Handler holds dependencies for API handlers.
type Handler struct {
	catalog      *knowledge.Catalog
	matcher      *rules.SymptomMatcher
	checker      *rules.InteractionChecker
	engine       *rules.Engine
	consult      *consult.Service
	patients     *patient.Service
	reports      *reports.Service
	defaultRules []*domain.ClinicalRule

	repo    domain.Repository
	cache   domain.Cache
	bus     domain.EventBus
	metrics *metrics.Metrics

	version string
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps) *Handler {
	h := &Handler{
		catalog:      deps.Catalog,
		matcher:      deps.Matcher,
		checker:      deps.Checker,
		engine:       deps.Engine,
		consult:      deps.Consult,
		patients:     deps.Patients,
		reports:      deps.Reports,
		defaultRules: deps.DefaultRules,
		repo:         deps.Repo,
		cache:        deps.Cache,
		bus:          deps.Bus,
		metrics:      deps.Metrics,
		version:      deps.Version,
	}

	if h.patients == nil && h.repo != nil {
		h.patients = patient.NewService(h.repo)
	}
	if h.reports == nil && h.repo != nil {
		h.reports = reports.NewService(h.repo)
	}
	if h.consult == nil {
		h.consult = consult.NewService(h.catalog, h.matcher, h.checker, h.engine, h.patients, nil)
	}

	return h
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready reports whether the engines are loaded.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil || h.engine == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"ready": "false",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ready":          "true",
		"catalogVersion": h.catalog.Version,
		"clinicalRules":  h.engine.RulesCount(),
	})
}

// Metrics serves the Prometheus registry.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		writeError(w, http.StatusNotFound, "metrics not enabled")
		return
	}
	h.metrics.Handler().ServeHTTP(w, r)
}

// publish sends an event when a bus is configured. Failures are logged.
func (h *Handler) publish(ctx context.Context, topic string, v interface{}) {
	if h.bus == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode event", "topic", topic, "error", err)
		return
	}
	if err := h.bus.Publish(ctx, topic, payload); err != nil {
		slog.Error("failed to publish event", "topic", topic, "error", err)
	}
}

func (h *Handler) requireRepo(w http.ResponseWriter) bool {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "repository not available")
		return false
	}
	return true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}
	return true
}

// errorStatus maps package sentinels to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, patient.ErrPatientNotFound),
		errors.Is(err, calc.ErrUnknownCalculator),
		errors.Is(err, reports.ErrUnknownReport):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrInvalidInput),
		errors.Is(err, rules.ErrUnknownModule),
		errors.Is(err, calc.ErrInvalidInput),
		errors.Is(err, reports.ErrInvalidFilter),
		errors.Is(err, reports.ErrUnsupportedFormat):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeFailure logs server-side failures and hides their detail.
func writeFailure(w http.ResponseWriter, msg string, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error(msg, "error", err)
		writeError(w, status, msg)
		return
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
