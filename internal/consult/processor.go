package consult

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-health/heron/internal/domain"
)

// EngineVersion is reported in assessment metadata.
const EngineVersion = "heron-1.0"

// Processor aggregates engine outputs into a single assessment.
type Processor struct {
	// Condition severity at or above which the assessment is ALERT
	AlertSeverity domain.Severity
	// Condition severity at or above which the assessment is REVIEW
	ReviewSeverity domain.Severity

	AlertInteraction  domain.InteractionSeverity
	ReviewInteraction domain.InteractionSeverity
}

// NewProcessor creates a processor with the default escalation levels.
func NewProcessor() *Processor {
	return &Processor{
		AlertSeverity:     domain.SeverityEmergency,
		ReviewSeverity:    domain.SeverityHigh,
		AlertInteraction:  domain.InteractionMajor,
		ReviewInteraction: domain.InteractionModerate,
	}
}

// DecisionInput contains all data needed for an assessment.
type DecisionInput struct {
	TraceID        string
	CatalogVersion string
	Findings       []domain.Finding
	Interactions   []domain.InteractionFinding
	Clinical       []domain.ClinicalFinding
	StartTime      time.Time
}

// level orders assessment statuses.
type level int

const (
	levelEmpty level = iota
	levelRoutine
	levelReview
	levelAlert
)

func (l level) status() string {
	switch l {
	case levelAlert:
		return domain.AssessmentAlert
	case levelReview:
		return domain.AssessmentReview
	case levelRoutine:
		return domain.AssessmentRoutine
	}
	return domain.AssessmentEmpty
}

// Process folds every finding into the strongest status and collects the
// reasons that escalated it past ROUTINE.
func (p *Processor) Process(ctx context.Context, input *DecisionInput) *domain.Assessment {
	assessment := &domain.Assessment{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
	}

	current := levelEmpty
	raise := func(l level, reason string) {
		if l > current {
			current = l
		}
		if l >= levelReview {
			assessment.Reasons = append(assessment.Reasons, reason)
		}
	}

	var highest domain.Severity
	for _, f := range input.Findings {
		if f.Severity.Rank() > highest.Rank() {
			highest = f.Severity
		}
		raise(p.conditionLevel(f.Severity),
			fmt.Sprintf("condition %s (%s, score %d)", f.ConditionID, f.Severity, f.Score))
	}
	assessment.HighestSeverity = string(highest)

	for _, i := range input.Interactions {
		raise(p.interactionLevel(i.Severity),
			fmt.Sprintf("interaction %s (%s)", domain.PairKey(i.Pair[0], i.Pair[1]), i.Severity))
	}

	for _, c := range input.Clinical {
		raise(clinicalLevel(c.Status),
			fmt.Sprintf("%s %s (%s)", c.Module, c.FindingKey, c.Status))
	}

	assessment.Status = current.status()

	var totalMs int64
	if !input.StartTime.IsZero() {
		totalMs = time.Since(input.StartTime).Milliseconds()
	}

	assessment.Metadata = domain.AssessmentMetadata{
		TraceID:          input.TraceID,
		TotalMs:          totalMs,
		Findings:         len(input.Findings),
		Interactions:     len(input.Interactions),
		ClinicalFindings: len(input.Clinical),
		CatalogVersion:   input.CatalogVersion,
		EngineVersion:    EngineVersion,
	}

	return assessment
}

func (p *Processor) conditionLevel(s domain.Severity) level {
	switch {
	case s.Rank() >= p.AlertSeverity.Rank():
		return levelAlert
	case s.Rank() >= p.ReviewSeverity.Rank():
		return levelReview
	}
	return levelRoutine
}

func (p *Processor) interactionLevel(s domain.InteractionSeverity) level {
	switch {
	case s.Rank() >= p.AlertInteraction.Rank():
		return levelAlert
	case s.Rank() >= p.ReviewInteraction.Rank():
		return levelReview
	}
	return levelRoutine
}

func clinicalLevel(s domain.ClinicalStatus) level {
	switch s {
	case domain.StatusAlert:
		return levelAlert
	case domain.StatusNeedsAttention:
		return levelReview
	}
	return levelRoutine
}

// ShouldAlert returns true if the assessment should trigger an alert.
func ShouldAlert(a *domain.Assessment) bool {
	return a != nil && a.Status == domain.AssessmentAlert
}
