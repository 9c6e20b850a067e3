package rules

import (
	"context"
	"fmt"

	"github.com/opensource-health/heron/internal/domain"
)

// MergeRules overlays stored rules on the defaults by ID. Stored rules
// with new IDs are appended.
func MergeRules(defaults, stored []*domain.ClinicalRule) []*domain.ClinicalRule {
	index := make(map[string]int, len(defaults))
	merged := make([]*domain.ClinicalRule, 0, len(defaults)+len(stored))
	for _, rule := range defaults {
		index[rule.ID] = len(merged)
		merged = append(merged, rule)
	}
	for _, rule := range stored {
		if i, ok := index[rule.ID]; ok {
			merged[i] = rule
			continue
		}
		index[rule.ID] = len(merged)
		merged = append(merged, rule)
	}
	return merged
}

// ReloadFromStore reloads the engine with the defaults overlaid by every
// stored rule. It returns the number of rules handed to the engine.
func ReloadFromStore(ctx context.Context, e *Engine, repo domain.Repository, defaults []*domain.ClinicalRule) (int, error) {
	var stored []*domain.ClinicalRule
	if repo != nil {
		var err error
		stored, err = repo.ListClinicalRules(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to list clinical rules: %w", err)
		}
	}

	merged := MergeRules(defaults, stored)
	if err := e.ReloadRules(merged); err != nil {
		return 0, err
	}
	return len(merged), nil
}
