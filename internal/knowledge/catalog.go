// Package knowledge loads the static clinical catalogs: symptoms,
// conditions and drug interactions.
//
// A Catalog is built once at startup and shared by pointer. Nothing in
// the engine mutates it after Validate succeeds.
package knowledge

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/opensource-health/heron/internal/domain"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrInvalidCatalog is returned when a catalog fails validation.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is the immutable knowledge base.
type Catalog struct {
	Version      string                   `yaml:"version"`
	Categories   []domain.SymptomCategory `yaml:"categories"`
	Conditions   []domain.Condition       `yaml:"conditions"`
	Interactions []domain.InteractionRule `yaml:"interactions"`

	symptoms map[string]domain.Symptom
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from path. An empty path returns the embedded catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks referential integrity and indexes the symptoms.
func (c *Catalog) Validate() error {
	symptoms := make(map[string]domain.Symptom)
	for _, cat := range c.Categories {
		for _, s := range cat.Symptoms {
			if s.ID == "" {
				return fmt.Errorf("%w: symptom in category %q has no id", ErrInvalidCatalog, cat.Name)
			}
			if _, dup := symptoms[s.ID]; dup {
				return fmt.Errorf("%w: duplicate symptom %q", ErrInvalidCatalog, s.ID)
			}
			symptoms[s.ID] = s
		}
	}

	conditions := make(map[string]bool)
	for _, cond := range c.Conditions {
		if cond.ID == "" {
			return fmt.Errorf("%w: condition has no id", ErrInvalidCatalog)
		}
		if conditions[cond.ID] {
			return fmt.Errorf("%w: duplicate condition %q", ErrInvalidCatalog, cond.ID)
		}
		conditions[cond.ID] = true

		if !cond.Severity.Valid() {
			return fmt.Errorf("%w: condition %q has invalid severity %q", ErrInvalidCatalog, cond.ID, cond.Severity)
		}
		if len(cond.Symptoms) == 0 {
			return fmt.Errorf("%w: condition %q has no symptoms", ErrInvalidCatalog, cond.ID)
		}
		for _, id := range cond.Symptoms {
			if _, ok := symptoms[id]; !ok {
				return fmt.Errorf("%w: condition %q references unknown symptom %q", ErrInvalidCatalog, cond.ID, id)
			}
		}
	}

	pairs := make(map[string]bool)
	for i, rule := range c.Interactions {
		key := rule.Key()
		if key == "" {
			return fmt.Errorf("%w: interaction %d must name exactly two drugs", ErrInvalidCatalog, i)
		}
		if domain.NormalizeDrug(rule.Drugs[0]) == "" || domain.NormalizeDrug(rule.Drugs[1]) == "" {
			return fmt.Errorf("%w: interaction %d has an empty drug name", ErrInvalidCatalog, i)
		}
		if pairs[key] {
			return fmt.Errorf("%w: duplicate interaction %q", ErrInvalidCatalog, key)
		}
		pairs[key] = true

		if !rule.Severity.Valid() {
			return fmt.Errorf("%w: interaction %q has invalid severity %q", ErrInvalidCatalog, key, rule.Severity)
		}
	}

	c.symptoms = symptoms
	return nil
}

// Symptom looks up a symptom by ID.
func (c *Catalog) Symptom(id string) (domain.Symptom, bool) {
	s, ok := c.symptoms[id]
	return s, ok
}

// Symptoms returns every symptom in category order.
func (c *Catalog) Symptoms() []domain.Symptom {
	var out []domain.Symptom
	for _, cat := range c.Categories {
		out = append(out, cat.Symptoms...)
	}
	return out
}

// Condition looks up a condition by ID.
func (c *Catalog) Condition(id string) (domain.Condition, bool) {
	for _, cond := range c.Conditions {
		if cond.ID == id {
			return cond, true
		}
	}
	return domain.Condition{}, false
}
