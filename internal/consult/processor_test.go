package consult

import (
	"context"
	"testing"
	"time"

	"github.com/opensource-health/heron/internal/domain"
)

func TestProcessor(t *testing.T) {
	proc := NewProcessor()
	ctx := context.Background()

	t.Run("Empty", func(t *testing.T) {
		a := proc.Process(ctx, &DecisionInput{TraceID: "trace-001", StartTime: time.Now()})

		if a.Status != domain.AssessmentEmpty {
			t.Errorf("expected EMPTY, got %s", a.Status)
		}
		if a.ID == "" {
			t.Error("expected assessment id")
		}
		if a.Metadata.TraceID != "trace-001" {
			t.Errorf("expected traceID 'trace-001', got '%s'", a.Metadata.TraceID)
		}
		if a.Metadata.EngineVersion != EngineVersion {
			t.Errorf("expected engine version %s, got %s", EngineVersion, a.Metadata.EngineVersion)
		}
	})

	t.Run("Routine", func(t *testing.T) {
		a := proc.Process(ctx, &DecisionInput{
			Findings: []domain.Finding{
				{ConditionID: "commonCold", Severity: domain.SeverityLow, Score: 67},
			},
			Clinical: []domain.ClinicalFinding{
				{Module: domain.ModuleHypertension, Status: domain.StatusAtGoal, FindingKey: "bpAtTarget"},
			},
		})

		if a.Status != domain.AssessmentRoutine {
			t.Errorf("expected ROUTINE, got %s", a.Status)
		}
		if len(a.Reasons) != 0 {
			t.Errorf("expected no reasons, got %v", a.Reasons)
		}
		if a.HighestSeverity != string(domain.SeverityLow) {
			t.Errorf("expected highest severity low, got %s", a.HighestSeverity)
		}
		if a.Metadata.Findings != 1 || a.Metadata.ClinicalFindings != 1 {
			t.Errorf("unexpected metadata counts: %+v", a.Metadata)
		}
	})

	t.Run("ReviewOnModerateInteraction", func(t *testing.T) {
		a := proc.Process(ctx, &DecisionInput{
			Interactions: []domain.InteractionFinding{
				{Pair: [2]string{"Lisinopril", "potassium"}, Severity: domain.InteractionModerate},
			},
		})

		if a.Status != domain.AssessmentReview {
			t.Errorf("expected REVIEW, got %s", a.Status)
		}
		if len(a.Reasons) != 1 || a.Reasons[0] != "interaction lisinopril-potassium (Moderate)" {
			t.Errorf("unexpected reasons: %v", a.Reasons)
		}
	})

	t.Run("ReviewOnNeedsAttention", func(t *testing.T) {
		a := proc.Process(ctx, &DecisionInput{
			Clinical: []domain.ClinicalFinding{
				{Module: domain.ModuleHypertension, Status: domain.StatusNeedsAttention, FindingKey: "bpAboveTarget"},
			},
		})

		if a.Status != domain.AssessmentReview {
			t.Errorf("expected REVIEW, got %s", a.Status)
		}
	})

	t.Run("AlertOnEmergency", func(t *testing.T) {
		a := proc.Process(ctx, &DecisionInput{
			Findings: []domain.Finding{
				{ConditionID: "myocardialInfarction", Severity: domain.SeverityEmergency, Score: 50},
				{ConditionID: "pneumonia", Severity: domain.SeverityHigh, Score: 50},
			},
		})

		if a.Status != domain.AssessmentAlert {
			t.Errorf("expected ALERT, got %s", a.Status)
		}
		if a.HighestSeverity != string(domain.SeverityEmergency) {
			t.Errorf("expected emergency, got %s", a.HighestSeverity)
		}
		if len(a.Reasons) != 2 {
			t.Errorf("expected 2 reasons, got %v", a.Reasons)
		}
		if !ShouldAlert(a) {
			t.Error("expected ShouldAlert to be true")
		}
	})

	t.Run("AlertOnMajorInteraction", func(t *testing.T) {
		a := proc.Process(ctx, &DecisionInput{
			Interactions: []domain.InteractionFinding{
				{Pair: [2]string{"warfarin", "aspirin"}, Severity: domain.InteractionMajor},
			},
		})

		if a.Status != domain.AssessmentAlert {
			t.Errorf("expected ALERT, got %s", a.Status)
		}
	})
}

func TestShouldAlertNil(t *testing.T) {
	if ShouldAlert(nil) {
		t.Error("nil assessment should not alert")
	}
}
