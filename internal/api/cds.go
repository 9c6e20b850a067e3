package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-health/heron/internal/domain"
	"github.com/opensource-health/heron/internal/repository"
	"github.com/opensource-health/heron/internal/rules"
)

// EvaluateRequest is the request body for POST /cds/evaluate. PatientID
// loads attributes from the record store and takes precedence over the
// inline fields; Reading always overrides stored vitals.
type EvaluateRequest struct {
	PatientID string                `json:"patientId,omitempty"`
	Age       *int                  `json:"age,omitempty"`
	Gender    string                `json:"gender,omitempty"`
	Reading   *domain.BloodPressure `json:"reading,omitempty"`
	Modules   []domain.ModuleID     `json:"modules,omitempty"`
}

// ModuleResult holds the findings of one module.
type ModuleResult struct {
	Module   domain.ModuleID          `json:"module"`
	Findings []domain.ClinicalFinding `json:"findings"`
}

// EvaluateResponse is the response for POST /cds/evaluate.
type EvaluateResponse struct {
	Patient domain.PatientAttributes `json:"patient"`
	Results []ModuleResult           `json:"results"`
}

// ListModules returns the modules with loaded rules.
func (h *Handler) ListModules(w http.ResponseWriter, r *http.Request) {
	modules := h.engine.Modules()
	if modules == nil {
		modules = []domain.ModuleID{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"modules": modules,
		"count":   len(modules),
	})
}

// EvaluateClinical runs decision-support modules for one patient.
func (h *Handler) EvaluateClinical(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req EvaluateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	attrs := domain.PatientAttributes{
		Age:     req.Age,
		Gender:  domain.ParseGender(req.Gender),
		Reading: req.Reading,
	}
	if req.PatientID != "" {
		if h.patients == nil {
			writeError(w, http.StatusServiceUnavailable, "repository not available")
			return
		}
		var err error
		attrs, err = h.patients.Attributes(r.Context(), req.PatientID, req.Reading)
		if err != nil {
			writeFailure(w, "failed to load patient", err)
			return
		}
	}

	attrs = attrs.Sanitized()

	modules := req.Modules
	if len(modules) == 0 {
		modules = h.engine.Modules()
	}

	resp := EvaluateResponse{
		Patient: attrs,
		Results: make([]ModuleResult, 0, len(modules)),
	}
	var all []domain.ClinicalFinding
	for _, module := range modules {
		findings, err := h.engine.Evaluate(attrs, module)
		if err != nil {
			writeFailure(w, "evaluation failed", err)
			return
		}
		resp.Results = append(resp.Results, ModuleResult{Module: module, Findings: findings})
		all = append(all, findings...)
	}
	h.metrics.ObserveClinical(all, time.Since(start))

	writeJSON(w, http.StatusOK, resp)
}

// ListRules returns the clinical rules loaded in the engine.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	loaded := h.engine.GetLoadedRules()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules": loaded,
		"count": len(loaded),
	})
}

// GetRule returns a loaded rule, or a stored one that is not loaded.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	for _, rule := range h.engine.GetLoadedRules() {
		if rule.ID == ruleID {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}

	if h.repo != nil {
		rule, err := h.repo.GetClinicalRule(r.Context(), ruleID)
		if err == nil {
			writeJSON(w, http.StatusOK, rule)
			return
		}
		if !errors.Is(err, repository.ErrNotFound) {
			writeFailure(w, "failed to get rule", err)
			return
		}
	}

	writeError(w, http.StatusNotFound, "rule not found")
}

// SaveRule validates and stores a clinical rule. Stored rules with a
// default rule's ID replace it on the next reload.
func (h *Handler) SaveRule(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}

	var rule domain.ClinicalRule
	if !decodeJSON(w, r, &rule) {
		return
	}

	if rule.ID == "" || rule.Module == "" || rule.Expression == "" {
		writeError(w, http.StatusBadRequest, "id, module, and expression are required")
		return
	}
	if rule.Version == "" {
		rule.Version = "1.0.0"
	}

	if err := h.engine.ValidateRule(&rule); err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule: "+err.Error())
		return
	}

	if err := h.repo.SaveClinicalRule(r.Context(), &rule); err != nil {
		writeFailure(w, "failed to save rule", err)
		return
	}

	slog.Info("clinical rule saved", "id", rule.ID, "module", rule.Module)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"rule":    rule,
		"message": "Rule saved. Call POST /cds/rules/reload to apply changes.",
	})
}

// DeleteRule removes a stored rule and reloads the engine.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}

	ctx := r.Context()
	ruleID := chi.URLParam(r, "id")

	if err := h.repo.DeleteClinicalRule(ctx, ruleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "rule not found")
			return
		}
		writeFailure(w, "failed to delete rule", err)
		return
	}

	count, err := rules.ReloadFromStore(ctx, h.engine, h.repo, h.defaultRules)
	if err != nil {
		slog.Error("failed to reload rules after delete", "error", err)
	} else {
		h.publish(ctx, domain.TopicRulesReloaded, map[string]int{"count": count})
	}

	slog.Info("clinical rule deleted", "id", ruleID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Rule deleted and engine reloaded.",
	})
}

// ReloadRules reloads the defaults and every stored rule into the engine.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count, err := rules.ReloadFromStore(ctx, h.engine, h.repo, h.defaultRules)
	if err != nil {
		slog.Error("failed to reload clinical rules", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reload rules: "+err.Error())
		return
	}

	h.publish(ctx, domain.TopicRulesReloaded, map[string]int{"count": count})

	slog.Info("clinical rules reloaded", "count", count)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "rules reloaded successfully",
		"count":   count,
	})
}
