package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-health/heron/internal/cache"
	"github.com/opensource-health/heron/internal/calc"
	"github.com/opensource-health/heron/internal/consult"
	"github.com/opensource-health/heron/internal/domain"
)

// resultTTL is how long analysis responses stay cached.
const resultTTL = 5 * time.Minute

// AnalyzeRequest is the request body for POST /symptoms/analyze.
type AnalyzeRequest struct {
	Symptoms []string `json:"symptoms"`
}

// AnalyzeResponse is the response for POST /symptoms/analyze.
type AnalyzeResponse struct {
	Findings       []domain.Finding `json:"findings"`
	CatalogVersion string           `json:"catalogVersion"`
}

// CheckRequest is the request body for POST /interactions/check.
type CheckRequest struct {
	Drugs []string `json:"drugs"`
}

// CheckResponse is the response for POST /interactions/check.
type CheckResponse struct {
	Checked      bool                        `json:"checked"`
	Interactions []domain.InteractionFinding `json:"interactions"`
}

// ListSymptoms returns the symptom catalog grouped by category.
func (h *Handler) ListSymptoms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories": h.catalog.Categories,
		"count":      len(h.catalog.Symptoms()),
		"version":    h.catalog.Version,
	})
}

// ListConditions returns the condition catalog.
func (h *Handler) ListConditions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conditions": h.catalog.Conditions,
		"count":      len(h.catalog.Conditions),
		"version":    h.catalog.Version,
	})
}

// ListInteractions returns the documented drug interactions.
func (h *Handler) ListInteractions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"interactions": h.catalog.Interactions,
		"count":        len(h.catalog.Interactions),
		"version":      h.catalog.Version,
	})
}

// AnalyzeSymptoms runs the symptom matcher. Responses are cached by the
// selected set and catalog version.
func (h *Handler) AnalyzeSymptoms(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	key := cache.Key("symptoms", append([]string{h.version, h.catalog.Version}, selectionKey(req.Symptoms)...)...)

	h.serveCached(r.Context(), w, key, func() interface{} {
		start := time.Now()
		findings := h.matcher.Match(req.Symptoms, h.catalog.Conditions)
		h.metrics.ObserveSymptoms(findings, time.Since(start))

		return AnalyzeResponse{
			Findings:       findings,
			CatalogVersion: h.catalog.Version,
		}
	})
}

// CheckInteractions runs the interaction checker. Findings echo the
// submitted names, so the cache key keeps them verbatim.
func (h *Handler) CheckInteractions(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	key := cache.Key("interactions", append([]string{h.version, h.catalog.Version}, req.Drugs...)...)

	h.serveCached(r.Context(), w, key, func() interface{} {
		start := time.Now()
		findings := h.checker.Check(req.Drugs)
		h.metrics.ObserveInteractions(findings, time.Since(start))

		return CheckResponse{
			Checked:      true,
			Interactions: findings,
		}
	})
}

// serveCached writes the cached body for key, or computes, stores and
// writes a fresh one. Cache failures fall through to computing.
func (h *Handler) serveCached(ctx context.Context, w http.ResponseWriter, key string, compute func() interface{}) {
	if h.cache != nil {
		body, err := h.cache.Get(ctx, key)
		if err == nil {
			h.metrics.ObserveCache(true)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(http.StatusOK)
			w.Write(body)
			return
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			slog.Warn("cache read failed", "error", err)
		}
		h.metrics.ObserveCache(false)
	}

	body, err := json.Marshal(compute())
	if err != nil {
		writeFailure(w, "failed to encode response", err)
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, key, body, resultTTL); err != nil {
			slog.Warn("cache write failed", "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// selectionKey returns the sorted unique symptom IDs.
func selectionKey(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Calculate runs a bedside calculator.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var in calc.Input
	if !decodeJSON(w, r, &in) {
		return
	}

	result, err := calc.Run(id, in)
	if err != nil {
		writeFailure(w, "calculation failed", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Consult runs every evaluator for one visit and publishes the outcome.
func (h *Handler) Consult(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var req consult.Request
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TraceID == "" {
		req.TraceID = GetTraceID(ctx)
	}

	result, err := h.consult.Run(ctx, &req)
	if err != nil {
		writeFailure(w, "consultation failed", err)
		return
	}
	h.metrics.ObserveConsultation(result, time.Since(start))

	h.publish(ctx, domain.TopicConsultCompleted, result)
	if consult.ShouldAlert(result.Assessment) {
		h.publish(ctx, domain.TopicAlert, result.Assessment)
	}

	slog.Info("consultation completed",
		"trace_id", req.TraceID,
		"status", result.Assessment.Status,
		"findings", len(result.Findings),
		"interactions", len(result.Interactions),
		"clinical", len(result.Clinical),
	)

	writeJSON(w, http.StatusOK, result)
}
