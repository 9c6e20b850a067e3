package rules

import (
	"fmt"

	"github.com/opensource-health/heron/internal/domain"
)

// Citation sources for the default rules.
const (
	SourceJNC8   = "JNC 8"
	SourceUSPSTF = "USPSTF"
	SourceACCAHA = "ACC/AHA"
	SourceADA    = "ADA"
)

// DefaultRulesVersion tags the built-in clinical rule set.
const DefaultRulesVersion = "1.0.0"

// DefaultClinicalRules builds the hypertension and preventive care rules
// from t. The rules are used when no clinical rules are stored.
func DefaultClinicalRules(t domain.ClinicalThresholds) []*domain.ClinicalRule {
	ageReading := []string{domain.AttrAge, domain.AttrReading}

	rules := []*domain.ClinicalRule{
		{
			ID:     "hypertension.bpTarget",
			Module: domain.ModuleHypertension,
			Name:   "Blood pressure target",
			Description: fmt.Sprintf("Reading below %.0f/%.0f at age %d and over, otherwise below %.0f/%.0f",
				t.ElderlySystolic, t.ElderlyDiastolic, t.ElderlyAge, t.Systolic, t.Diastolic),
			Version:  DefaultRulesVersion,
			Requires: ageReading,
			Expression: fmt.Sprintf("age >= %d ? (systolic < %.1f && diastolic < %.1f) : (systolic < %.1f && diastolic < %.1f)",
				t.ElderlyAge, t.ElderlySystolic, t.ElderlyDiastolic, t.Systolic, t.Diastolic),
			Match: domain.ClinicalOutcome{
				Status:            domain.StatusAtGoal,
				FindingKey:        "bpAtTarget",
				RecommendationKey: "bpAtTargetRec",
				Source:            SourceJNC8,
				ShowReading:       true,
			},
			Otherwise: &domain.ClinicalOutcome{
				Status:            domain.StatusNeedsAttention,
				FindingKey:        "bpAboveTarget",
				RecommendationKey: "bpAboveTargetRec",
				Source:            SourceJNC8,
				ShowReading:       true,
			},
			Order:   10,
			Enabled: true,
		},
		{
			ID:          "hypertension.firstLineTherapy",
			Module:      domain.ModuleHypertension,
			Name:        "First-line therapy",
			Description: "Reminder to review first-line antihypertensive therapy",
			Version:     DefaultRulesVersion,
			Requires:    ageReading,
			Expression:  "true",
			Match: domain.ClinicalOutcome{
				Status:            domain.StatusAtGoal,
				FindingKey:        "firstLineTherapy",
				RecommendationKey: "firstLineTherapyRec",
				Source:            SourceJNC8,
			},
			Order:   20,
			Enabled: t.FirstLineTherapy,
		},
		screeningRule("preventiveCare.mammogram", "Mammogram",
			fmt.Sprintf(`gender == "female" && age >= %d`, t.MammogramAge),
			[]string{domain.AttrAge, domain.AttrGender}, "mammogram", SourceUSPSTF, 10),
		screeningRule("preventiveCare.colonoscopy", "Colonoscopy",
			fmt.Sprintf("age >= %d", t.ColonoscopyAge),
			[]string{domain.AttrAge}, "colonoscopy", SourceUSPSTF, 20),
		screeningRule("preventiveCare.lipidPanel", "Lipid panel",
			fmt.Sprintf("age >= %d", t.LipidPanelAge),
			[]string{domain.AttrAge}, "lipidPanel", SourceACCAHA, 30),
		screeningRule("preventiveCare.bloodGlucose", "Blood glucose",
			fmt.Sprintf("age >= %d", t.BloodGlucoseAge),
			[]string{domain.AttrAge}, "bloodGlucose", SourceADA, 40),
	}

	return rules
}

func screeningRule(id, name, expr string, requires []string, key, source string, order int) *domain.ClinicalRule {
	return &domain.ClinicalRule{
		ID:          id,
		Module:      domain.ModulePreventiveCare,
		Name:        name,
		Description: name + " screening due",
		Version:     DefaultRulesVersion,
		Requires:    requires,
		Expression:  expr,
		Match: domain.ClinicalOutcome{
			Status:            domain.StatusDue,
			FindingKey:        key,
			RecommendationKey: key + "Rec",
			Source:            source,
		},
		Order:   order,
		Enabled: true,
	}
}
