package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// ModuleID names a decision-support module.
type ModuleID string

const (
	ModuleHypertension   ModuleID = "hypertension"
	ModulePreventiveCare ModuleID = "preventiveCare"
)

// ClinicalStatus is the outcome class of a clinical finding.
type ClinicalStatus string

const (
	StatusAtGoal           ClinicalStatus = "atGoal"
	StatusNeedsAttention   ClinicalStatus = "needsAttention"
	StatusAlert            ClinicalStatus = "alert"
	StatusDue              ClinicalStatus = "due"
	StatusInsufficientData ClinicalStatus = "insufficientData"
)

// Attribute names a clinical rule may require.
const (
	AttrAge     = "age"
	AttrGender  = "gender"
	AttrReading = "reading"
)

// Gender is a normalized patient gender.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderOther   Gender = "other"
	GenderUnknown Gender = ""
)

// ParseGender normalizes free-form gender text.
func ParseGender(s string) Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m":
		return GenderMale
	case "female", "f":
		return GenderFemale
	case "":
		return GenderUnknown
	default:
		return GenderOther
	}
}

// UnmarshalJSON accepts free-form gender text and normalizes it.
func (g *Gender) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*g = ParseGender(s)
	return nil
}

// MaxAge bounds plausible patient ages in years.
const MaxAge = 150

// BloodPressure is a single blood pressure reading in mmHg.
type BloodPressure struct {
	Systolic  float64 `json:"systolic"`
	Diastolic float64 `json:"diastolic"`
}

func (bp BloodPressure) String() string {
	return fmt.Sprintf("%.0f/%.0f mmHg", bp.Systolic, bp.Diastolic)
}

// Valid reports whether both values are finite and positive.
func (bp BloodPressure) Valid() bool {
	return validMeasure(bp.Systolic) && validMeasure(bp.Diastolic)
}

func validMeasure(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// PatientAttributes are the derived inputs to clinical rules.
// A nil Age or Reading means the value is missing or could not be parsed.
type PatientAttributes struct {
	Age     *int           `json:"age,omitempty"`
	Gender  Gender         `json:"gender,omitempty"`
	Reading *BloodPressure `json:"reading,omitempty"`
}

// Sanitized returns a copy with gender normalized and implausible
// values dropped, so rules see them as missing.
func (p PatientAttributes) Sanitized() PatientAttributes {
	out := PatientAttributes{Gender: ParseGender(string(p.Gender))}
	if p.Age != nil && *p.Age >= 0 && *p.Age <= MaxAge {
		age := *p.Age
		out.Age = &age
	}
	if p.Reading != nil && p.Reading.Valid() {
		reading := *p.Reading
		out.Reading = &reading
	}
	return out
}

// Has reports whether the named attribute is present.
func (p PatientAttributes) Has(attr string) bool {
	switch attr {
	case AttrAge:
		return p.Age != nil
	case AttrGender:
		return p.Gender != GenderUnknown
	case AttrReading:
		return p.Reading != nil
	}
	return false
}

// ClinicalOutcome describes the finding a rule emits.
type ClinicalOutcome struct {
	Status            ClinicalStatus `json:"status"`
	FindingKey        string         `json:"findingKey"`
	RecommendationKey string         `json:"recommendationKey"`
	Source            string         `json:"source"`

	// ShowReading copies the patient's blood pressure reading into the finding value.
	ShowReading bool `json:"showReading,omitempty"`
}

// ClinicalRule is a CEL predicate over patient attributes.
type ClinicalRule struct {
	ID          string   `json:"id"`
	Module      ModuleID `json:"module"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Version     string   `json:"version"`

	// Attributes that must be present before the expression is evaluated
	Requires []string `json:"requires"`

	// CEL expression; must evaluate to bool
	Expression string `json:"expression"`

	// Outcome when the expression is true
	Match ClinicalOutcome `json:"match"`

	// Outcome when the expression is false; nil emits nothing
	Otherwise *ClinicalOutcome `json:"otherwise,omitempty"`

	// Position within the module
	Order int `json:"order"`

	Enabled bool `json:"enabled"`
}

// ClinicalFinding is the output of one clinical rule.
type ClinicalFinding struct {
	RuleID            string         `json:"ruleId"`
	Module            ModuleID       `json:"module"`
	Status            ClinicalStatus `json:"status"`
	FindingKey        string         `json:"findingKey"`
	Value             string         `json:"value,omitempty"`
	RecommendationKey string         `json:"recommendationKey"`
	Source            string         `json:"source,omitempty"`
}

// ClinicalThresholds parameterizes the default clinical rule set.
type ClinicalThresholds struct {
	ElderlyAge       int     `json:"elderlyAge" mapstructure:"elderly_age"`
	ElderlySystolic  float64 `json:"elderlySystolic" mapstructure:"elderly_systolic"`
	ElderlyDiastolic float64 `json:"elderlyDiastolic" mapstructure:"elderly_diastolic"`
	Systolic         float64 `json:"systolic" mapstructure:"systolic"`
	Diastolic        float64 `json:"diastolic" mapstructure:"diastolic"`

	// FirstLineTherapy enables the unconditional therapy reminder.
	FirstLineTherapy bool `json:"firstLineTherapy" mapstructure:"first_line_therapy"`

	MammogramAge    int `json:"mammogramAge" mapstructure:"mammogram_age"`
	ColonoscopyAge  int `json:"colonoscopyAge" mapstructure:"colonoscopy_age"`
	LipidPanelAge   int `json:"lipidPanelAge" mapstructure:"lipid_panel_age"`
	BloodGlucoseAge int `json:"bloodGlucoseAge" mapstructure:"blood_glucose_age"`
}

// DefaultClinicalThresholds returns the JNC 8 and screening defaults.
func DefaultClinicalThresholds() ClinicalThresholds {
	return ClinicalThresholds{
		ElderlyAge:       60,
		ElderlySystolic:  150,
		ElderlyDiastolic: 90,
		Systolic:         140,
		Diastolic:        90,
		FirstLineTherapy: true,
		MammogramAge:     40,
		ColonoscopyAge:   45,
		LipidPanelAge:    40,
		BloodGlucoseAge:  35,
	}
}
