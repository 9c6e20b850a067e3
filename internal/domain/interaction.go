package domain

import "strings"

// InteractionSeverity grades a drug-drug interaction.
type InteractionSeverity string

const (
	InteractionMajor    InteractionSeverity = "Major"
	InteractionModerate InteractionSeverity = "Moderate"
	InteractionMinor    InteractionSeverity = "Minor"
)

// Rank orders interaction severities. Unknown values rank 0.
func (s InteractionSeverity) Rank() int {
	switch s {
	case InteractionMajor:
		return 3
	case InteractionModerate:
		return 2
	case InteractionMinor:
		return 1
	}
	return 0
}

// Valid reports whether s is a known severity.
func (s InteractionSeverity) Valid() bool {
	return s.Rank() > 0
}

// InteractionRule documents a known interaction between two drugs.
// Drug names are matched case-insensitively and order-independently.
type InteractionRule struct {
	Drugs         []string            `json:"drugs" yaml:"drugs"`
	Severity      InteractionSeverity `json:"severity" yaml:"severity"`
	SummaryKey    string              `json:"summaryKey" yaml:"summary"`
	ManagementKey string              `json:"managementKey" yaml:"management"`
}

// InteractionFinding is a rule hit for a pair of user-entered drug names.
// Pair holds the names exactly as entered, in input order.
type InteractionFinding struct {
	Pair          [2]string           `json:"pair"`
	Severity      InteractionSeverity `json:"severity"`
	SummaryKey    string              `json:"summaryKey"`
	ManagementKey string              `json:"managementKey"`
}

// PairSeparator joins the two names of a canonical pair key.
const PairSeparator = "-"

// NormalizeDrug trims and lowercases a drug name for matching.
func NormalizeDrug(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// CanonicalPair normalizes two drug names and orders them lexicographically.
func CanonicalPair(a, b string) [2]string {
	a, b = NormalizeDrug(a), NormalizeDrug(b)
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}

// PairKey returns the hyphen-joined canonical key for two drug names.
func PairKey(a, b string) string {
	p := CanonicalPair(a, b)
	return p[0] + PairSeparator + p[1]
}

// Key returns the canonical key of the rule's drug pair.
// Rules without exactly two drugs have an empty key.
func (r InteractionRule) Key() string {
	if len(r.Drugs) != 2 {
		return ""
	}
	return PairKey(r.Drugs[0], r.Drugs[1])
}
