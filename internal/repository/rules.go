package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-health/heron/internal/domain"
)

// SaveClinicalRule creates or replaces a clinical rule.
func (r *SQLRepository) SaveClinicalRule(ctx context.Context, rule *domain.ClinicalRule) error {
	if rule == nil || rule.ID == "" {
		return fmt.Errorf("%w: rule id is required", ErrInvalidInput)
	}
	if rule.Module == "" {
		return fmt.Errorf("%w: rule module is required", ErrInvalidInput)
	}

	requires, _ := json.Marshal(rule.Requires)
	match, _ := json.Marshal(rule.Match)
	otherwise, _ := json.Marshal(rule.Otherwise)

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO clinical_rules (
			id, module, name, description, version, requires, expression,
			match_outcome, otherwise_outcome, sort_order, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			module = excluded.module,
			name = excluded.name,
			description = excluded.description,
			version = excluded.version,
			requires = excluded.requires,
			expression = excluded.expression,
			match_outcome = excluded.match_outcome,
			otherwise_outcome = excluded.otherwise_outcome,
			sort_order = excluded.sort_order,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, string(rule.Module), rule.Name, rule.Description, rule.Version,
		string(requires), rule.Expression, string(match), string(otherwise),
		rule.Order, enabled, now, now,
	)
	return err
}

// GetClinicalRule retrieves an enabled clinical rule.
func (r *SQLRepository) GetClinicalRule(ctx context.Context, ruleID string) (*domain.ClinicalRule, error) {
	query := `
		SELECT id, module, name, description, version, requires, expression,
			   match_outcome, otherwise_outcome, sort_order, enabled
		FROM clinical_rules
		WHERE id = ? AND enabled = 1
	`

	rule, err := scanClinicalRule(r.db.QueryRowContext(ctx, r.rebind(query), ruleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// ListClinicalRules retrieves all enabled clinical rules in evaluation order.
func (r *SQLRepository) ListClinicalRules(ctx context.Context) ([]*domain.ClinicalRule, error) {
	query := `
		SELECT id, module, name, description, version, requires, expression,
			   match_outcome, otherwise_outcome, sort_order, enabled
		FROM clinical_rules
		WHERE enabled = 1
		ORDER BY module, sort_order, id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.ClinicalRule
	for rows.Next() {
		rule, err := scanClinicalRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

// DeleteClinicalRule soft-deletes a rule by setting enabled = 0.
func (r *SQLRepository) DeleteClinicalRule(ctx context.Context, ruleID string) error {
	query := `
		UPDATE clinical_rules
		SET enabled = 0, updated_at = ?
		WHERE id = ? AND enabled = 1
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), time.Now().UTC(), ruleID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClinicalRule(row rowScanner) (*domain.ClinicalRule, error) {
	var rule domain.ClinicalRule
	var module, requires, match, otherwise string
	var enabled int

	if err := row.Scan(
		&rule.ID, &module, &rule.Name, &rule.Description, &rule.Version,
		&requires, &rule.Expression, &match, &otherwise, &rule.Order, &enabled,
	); err != nil {
		return nil, err
	}

	rule.Module = domain.ModuleID(module)
	rule.Enabled = enabled == 1

	if err := json.Unmarshal([]byte(requires), &rule.Requires); err != nil {
		return nil, fmt.Errorf("rule %s: failed to decode requires: %w", rule.ID, err)
	}
	if err := json.Unmarshal([]byte(match), &rule.Match); err != nil {
		return nil, fmt.Errorf("rule %s: failed to decode match outcome: %w", rule.ID, err)
	}
	if err := json.Unmarshal([]byte(otherwise), &rule.Otherwise); err != nil {
		return nil, fmt.Errorf("rule %s: failed to decode otherwise outcome: %w", rule.ID, err)
	}

	return &rule, nil
}
