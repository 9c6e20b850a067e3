package rules

import (
	"github.com/opensource-health/heron/internal/domain"
)

// InteractionChecker looks up every pair of entered drugs in a static
// interaction table.
type InteractionChecker struct {
	rules map[[2]string]domain.InteractionRule
}

// NewInteractionChecker indexes rules by canonical pair. Rules that do not
// name exactly two drugs are ignored; a later rule replaces an earlier one
// for the same pair.
func NewInteractionChecker(rules []domain.InteractionRule) *InteractionChecker {
	idx := make(map[[2]string]domain.InteractionRule, len(rules))
	for _, r := range rules {
		if len(r.Drugs) != 2 {
			continue
		}
		idx[domain.CanonicalPair(r.Drugs[0], r.Drugs[1])] = r
	}
	return &InteractionChecker{rules: idx}
}

// RulesCount returns the number of indexed pairs.
func (c *InteractionChecker) RulesCount() int {
	return len(c.rules)
}

// Check pairs every entered drug with every later one and reports the
// pairs found in the table, in enumeration order. Names are matched
// trimmed and lowercased but reported as entered.
func (c *InteractionChecker) Check(drugNames []string) []domain.InteractionFinding {
	findings := []domain.InteractionFinding{}

	type entry struct {
		original   string
		normalized string
	}
	entries := make([]entry, 0, len(drugNames))
	for _, name := range drugNames {
		if n := domain.NormalizeDrug(name); n != "" {
			entries = append(entries, entry{original: name, normalized: n})
		}
	}
	if len(entries) < 2 {
		return findings
	}

	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			rule, ok := c.rules[domain.CanonicalPair(entries[i].normalized, entries[j].normalized)]
			if !ok {
				continue
			}
			findings = append(findings, domain.InteractionFinding{
				Pair:          [2]string{entries[i].original, entries[j].original},
				Severity:      rule.Severity,
				SummaryKey:    rule.SummaryKey,
				ManagementKey: rule.ManagementKey,
			})
		}
	}

	return findings
}
