// Package rules provides the rule matching engines: the symptom matcher,
// the drug interaction checker and the CEL-based clinical rule engine.
package rules

import (
	"math"
	"sort"

	"github.com/opensource-health/heron/internal/domain"
)

// DefaultMinScore is the exclusive lower bound on emitted match scores.
const DefaultMinScore = 20

// SymptomMatcher scores conditions by the fraction of their defining
// symptoms present in a selection.
type SymptomMatcher struct {
	MinScore int
}

// NewSymptomMatcher creates a matcher. A negative minScore falls back to DefaultMinScore.
func NewSymptomMatcher(minScore int) *SymptomMatcher {
	if minScore < 0 {
		minScore = DefaultMinScore
	}
	return &SymptomMatcher{MinScore: minScore}
}

// MatchSymptoms runs a matcher with DefaultMinScore.
func MatchSymptoms(selected []string, catalog []domain.Condition) []domain.Finding {
	return NewSymptomMatcher(DefaultMinScore).Match(selected, catalog)
}

// Match returns findings ordered by severity, then score, then catalog order.
// Unknown symptom IDs are ignored; an empty selection yields no findings.
func (m *SymptomMatcher) Match(selected []string, catalog []domain.Condition) []domain.Finding {
	findings := []domain.Finding{}
	if len(selected) == 0 {
		return findings
	}

	set := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		set[id] = struct{}{}
	}

	for _, cond := range catalog {
		defining := uniqueSymptoms(cond.Symptoms)
		if len(defining) == 0 {
			continue
		}

		var matched []string
		for _, id := range defining {
			if _, ok := set[id]; ok {
				matched = append(matched, id)
			}
		}
		if len(matched) == 0 {
			continue
		}

		score := int(math.Round(100 * float64(len(matched)) / float64(len(defining))))
		if score <= m.MinScore {
			continue
		}

		findings = append(findings, domain.Finding{
			ConditionID:     cond.ID,
			Condition:       cond.Name,
			Score:           score,
			Severity:        cond.Severity,
			MatchedSymptoms: matched,
			Recommendations: append([]string(nil), cond.Recommendations...),
		})
	}

	sort.SliceStable(findings, func(i, j int) bool {
		ri, rj := findings[i].Severity.Rank(), findings[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		return findings[i].Score > findings[j].Score
	})

	return findings
}

// uniqueSymptoms drops repeated IDs, keeping first occurrence order.
func uniqueSymptoms(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
