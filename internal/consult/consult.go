// Package consult runs one consultation across the symptom matcher, the
// interaction checker and the clinical rule engine.
package consult

import (
	"context"
	"fmt"
	"time"

	"github.com/opensource-health/heron/internal/domain"
	"github.com/opensource-health/heron/internal/knowledge"
	"github.com/opensource-health/heron/internal/patient"
	"github.com/opensource-health/heron/internal/rules"
)

// Request is the input to a consultation.
type Request struct {
	TraceID  string   `json:"traceId,omitempty"`
	Symptoms []string `json:"symptoms,omitempty"`
	Drugs    []string `json:"drugs,omitempty"`

	// PatientID loads attributes from the record store; Patient supplies
	// them inline. PatientID wins when both are set.
	PatientID string                    `json:"patientId,omitempty"`
	Patient   *domain.PatientAttributes `json:"patient,omitempty"`

	// Reading overrides any stored blood pressure.
	Reading *domain.BloodPressure `json:"reading,omitempty"`

	// Modules to evaluate. Empty runs every loaded module when patient
	// data is present and none otherwise.
	Modules []domain.ModuleID `json:"modules,omitempty"`
}

// Service wires the engines together.
type Service struct {
	catalog   *knowledge.Catalog
	matcher   *rules.SymptomMatcher
	checker   *rules.InteractionChecker
	engine    *rules.Engine
	patients  *patient.Service
	processor *Processor
}

// NewService creates a consultation service. patients may be nil, in
// which case requests by patient ID fail.
func NewService(
	catalog *knowledge.Catalog,
	matcher *rules.SymptomMatcher,
	checker *rules.InteractionChecker,
	engine *rules.Engine,
	patients *patient.Service,
	processor *Processor,
) *Service {
	if processor == nil {
		processor = NewProcessor()
	}
	return &Service{
		catalog:   catalog,
		matcher:   matcher,
		checker:   checker,
		engine:    engine,
		patients:  patients,
		processor: processor,
	}
}

// Run evaluates a request. Errors come only from patient lookup and
// unknown module IDs; bad clinical input yields empty results.
func (s *Service) Run(ctx context.Context, req *Request) (*domain.Consultation, error) {
	start := time.Now()

	attrs, hasPatient, err := s.resolvePatient(ctx, req)
	if err != nil {
		return nil, err
	}

	modules := req.Modules
	if len(modules) == 0 && hasPatient {
		modules = s.engine.Modules()
	}

	clinical := []domain.ClinicalFinding{}
	for _, module := range modules {
		findings, err := s.engine.Evaluate(attrs, module)
		if err != nil {
			return nil, err
		}
		clinical = append(clinical, findings...)
	}

	result := &domain.Consultation{
		Findings:     s.matcher.Match(req.Symptoms, s.catalog.Conditions),
		Interactions: s.checker.Check(req.Drugs),
		Clinical:     clinical,
	}

	result.Assessment = s.processor.Process(ctx, &DecisionInput{
		TraceID:        req.TraceID,
		CatalogVersion: s.catalog.Version,
		Findings:       result.Findings,
		Interactions:   result.Interactions,
		Clinical:       result.Clinical,
		StartTime:      start,
	})

	return result, nil
}

func (s *Service) resolvePatient(ctx context.Context, req *Request) (domain.PatientAttributes, bool, error) {
	if req.PatientID != "" {
		if s.patients == nil {
			return domain.PatientAttributes{}, false, fmt.Errorf("%w: no record store", patient.ErrPatientNotFound)
		}
		attrs, err := s.patients.Attributes(ctx, req.PatientID, req.Reading)
		if err != nil {
			return domain.PatientAttributes{}, false, err
		}
		return attrs, true, nil
	}

	if req.Patient != nil {
		attrs := *req.Patient
		if req.Reading != nil {
			attrs.Reading = req.Reading
		}
		return attrs.Sanitized(), true, nil
	}

	return domain.PatientAttributes{}, false, nil
}
