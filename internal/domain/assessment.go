package domain

import "time"

// Assessment summarizes a consultation into a single status.
type Assessment struct {
	ID              string             `json:"id"`
	Status          string             `json:"status"`
	HighestSeverity string             `json:"highestSeverity,omitempty"`
	Reasons         []string           `json:"reasons,omitempty"`
	Timestamp       time.Time          `json:"timestamp"`
	Metadata        AssessmentMetadata `json:"metadata"`
}

// AssessmentMetadata contains processing information.
type AssessmentMetadata struct {
	TraceID          string `json:"traceId"`
	TotalMs          int64  `json:"totalMs"`
	Findings         int    `json:"findings"`
	Interactions     int    `json:"interactions"`
	ClinicalFindings int    `json:"clinicalFindings"`
	CatalogVersion   string `json:"catalogVersion,omitempty"`
	EngineVersion    string `json:"engineVersion"`
}

// Assessment statuses
const (
	AssessmentAlert   = "ALERT"
	AssessmentReview  = "REVIEW"
	AssessmentRoutine = "ROUTINE"
	AssessmentEmpty   = "EMPTY"
)

// Consultation bundles every engine output for one patient visit.
type Consultation struct {
	Findings     []Finding            `json:"findings"`
	Interactions []InteractionFinding `json:"interactions"`
	Clinical     []ClinicalFinding    `json:"clinical"`
	Assessment   *Assessment          `json:"assessment"`
}
