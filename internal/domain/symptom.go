package domain

// Severity is the triage tier of a condition.
type Severity string

const (
	SeverityEmergency Severity = "emergency"
	SeverityHigh      Severity = "high"
	SeverityMedium    Severity = "medium"
	SeverityLow       Severity = "low"
)

// Rank orders severities for sorting. Unknown severities rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityEmergency:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Valid reports whether s is one of the known tiers.
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// Symptom is a selectable symptom with its follow-up questions.
type Symptom struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Questions []string `json:"questions" yaml:"questions"`
}

// SymptomCategory groups symptoms for display.
type SymptomCategory struct {
	Name     string    `json:"name" yaml:"name"`
	Symptoms []Symptom `json:"symptoms" yaml:"symptoms"`
}

// Condition is a catalog entry defined by a set of symptoms.
type Condition struct {
	ID              string   `json:"id" yaml:"id"`
	Name            string   `json:"name" yaml:"name"`
	Symptoms        []string `json:"symptoms" yaml:"symptoms"`
	Severity        Severity `json:"severity" yaml:"severity"`
	Recommendations []string `json:"recommendations" yaml:"recommendations"`
}

// Finding is a scored match between selected symptoms and a condition.
type Finding struct {
	ConditionID     string   `json:"conditionId"`
	Condition       string   `json:"condition"`
	Score           int      `json:"score"`
	Severity        Severity `json:"severity"`
	MatchedSymptoms []string `json:"matchedSymptoms"`
	Recommendations []string `json:"recommendations"`
}
