package rules

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/opensource-health/heron/internal/domain"
)

// ErrUnknownModule is returned when no rules are loaded for a module.
var ErrUnknownModule = errors.New("unknown clinical module")

// Insufficient data finding keys.
const (
	InsufficientDataKey    = "insufficientData"
	InsufficientDataRecKey = "insufficientDataRec"
)

var knownAttributes = map[string]bool{
	domain.AttrAge:     true,
	domain.AttrGender:  true,
	domain.AttrReading: true,
}

// Engine is the CEL-based clinical decision-support engine.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Config  *domain.ClinicalRule
	Program cel.Program
}

// NewEngine creates a new clinical rule engine.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("age", cel.IntType),
		cel.Variable("gender", cel.StringType),
		cel.Variable("systolic", cel.DoubleType),
		cel.Variable("diastolic", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
	}, nil
}

// ValidateRule compiles and validates a rule without mutating loaded engine rules.
func (e *Engine) ValidateRule(cfg *domain.ClinicalRule) error {
	if cfg == nil {
		return fmt.Errorf("rule config is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(cfg)
	return err
}

// LoadRule compiles and loads a rule into the engine, replacing any rule with the same ID.
func (e *Engine) LoadRule(cfg *domain.ClinicalRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(cfg)
	if err != nil {
		return err
	}

	e.compiledRules[cfg.ID] = compiled

	return nil
}

// LoadRules compiles and loads multiple rules. Disabled rules are skipped.
func (e *Engine) LoadRules(configs []*domain.ClinicalRule) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadRule(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReloadRules clears all existing rules and loads new ones.
// Either every rule compiles and the set is swapped, or nothing changes.
func (e *Engine) ReloadRules(configs []*domain.ClinicalRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newRules := make(map[string]*CompiledRule)

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		compiled, err := e.compileRule(cfg)
		if err != nil {
			return err
		}
		newRules[cfg.ID] = compiled
	}

	e.compiledRules = newRules

	return nil
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// GetLoadedRules returns the loaded rule configurations in evaluation order.
func (e *Engine) GetLoadedRules() []*domain.ClinicalRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*domain.ClinicalRule, 0, len(e.compiledRules))
	for _, compiled := range e.compiledRules {
		rules = append(rules, compiled.Config)
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Module != rules[j].Module {
			return rules[i].Module < rules[j].Module
		}
		if rules[i].Order != rules[j].Order {
			return rules[i].Order < rules[j].Order
		}
		return rules[i].ID < rules[j].ID
	})
	return rules
}

// Modules returns the IDs of modules with at least one loaded rule, sorted.
func (e *Engine) Modules() []domain.ModuleID {
	e.mu.RLock()
	defer e.mu.RUnlock()

	seen := make(map[domain.ModuleID]bool)
	var modules []domain.ModuleID
	for _, compiled := range e.compiledRules {
		if !seen[compiled.Config.Module] {
			seen[compiled.Config.Module] = true
			modules = append(modules, compiled.Config.Module)
		}
	}
	sort.Slice(modules, func(i, j int) bool { return modules[i] < modules[j] })
	return modules
}

// Evaluate runs every rule in a module against one patient.
//
// Rules fire independently in (Order, ID) order. A rule whose required
// attributes are missing is skipped, and a single insufficientData finding
// naming the missing attributes is appended after the others. Ages outside
// 0..MaxAge and non-finite readings count as missing. The only error is
// ErrUnknownModule.
func (e *Engine) Evaluate(patient domain.PatientAttributes, module domain.ModuleID) ([]domain.ClinicalFinding, error) {
	rules := e.moduleRules(module)
	if len(rules) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, module)
	}
	patient = patient.Sanitized()

	activation := activationFor(patient)
	findings := []domain.ClinicalFinding{}
	missing := make(map[string]bool)

	for _, rule := range rules {
		if absent := missingAttributes(patient, rule.Config.Requires); len(absent) > 0 {
			for _, attr := range absent {
				missing[attr] = true
			}
			continue
		}

		finding, ok := evaluateRule(rule, activation, patient)
		if ok {
			findings = append(findings, finding)
		}
	}

	if len(missing) > 0 {
		attrs := make([]string, 0, len(missing))
		for attr := range missing {
			attrs = append(attrs, attr)
		}
		sort.Strings(attrs)

		findings = append(findings, domain.ClinicalFinding{
			Module:            module,
			Status:            domain.StatusInsufficientData,
			FindingKey:        InsufficientDataKey,
			Value:             strings.Join(attrs, ", "),
			RecommendationKey: InsufficientDataRecKey,
		})
	}

	return findings, nil
}

func (e *Engine) moduleRules(module domain.ModuleID) []*CompiledRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var rules []*CompiledRule
	for _, compiled := range e.compiledRules {
		if compiled.Config.Module == module {
			rules = append(rules, compiled)
		}
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Config.Order != rules[j].Config.Order {
			return rules[i].Config.Order < rules[j].Config.Order
		}
		return rules[i].Config.ID < rules[j].Config.ID
	})
	return rules
}

// evaluateRule evaluates a single rule. ok is false when the rule emits nothing.
func evaluateRule(rule *CompiledRule, activation map[string]any, patient domain.PatientAttributes) (domain.ClinicalFinding, bool) {
	out, _, err := rule.Program.Eval(activation)
	if err != nil {
		slog.Warn("clinical rule evaluation failed",
			"rule_id", rule.Config.ID,
			"module", rule.Config.Module,
			"error", err,
		)
		return domain.ClinicalFinding{}, false
	}

	outcome := &rule.Config.Match
	if !toBool(out) {
		outcome = rule.Config.Otherwise
	}
	if outcome == nil {
		return domain.ClinicalFinding{}, false
	}

	finding := domain.ClinicalFinding{
		RuleID:            rule.Config.ID,
		Module:            rule.Config.Module,
		Status:            outcome.Status,
		FindingKey:        outcome.FindingKey,
		RecommendationKey: outcome.RecommendationKey,
		Source:            outcome.Source,
	}
	if outcome.ShowReading && patient.Reading != nil {
		finding.Value = patient.Reading.String()
	}
	return finding, true
}

// activationFor binds patient attributes to CEL variables. Missing values
// bind to zero; rules guard them through Requires.
func activationFor(p domain.PatientAttributes) map[string]any {
	activation := map[string]any{
		"age":       int64(0),
		"gender":    string(p.Gender),
		"systolic":  0.0,
		"diastolic": 0.0,
	}
	if p.Age != nil {
		activation["age"] = int64(*p.Age)
	}
	if p.Reading != nil {
		activation["systolic"] = p.Reading.Systolic
		activation["diastolic"] = p.Reading.Diastolic
	}
	return activation
}

func missingAttributes(p domain.PatientAttributes, required []string) []string {
	var missing []string
	for _, attr := range required {
		if !p.Has(attr) {
			missing = append(missing, attr)
		}
	}
	return missing
}

// toBool converts a CEL value to a rule outcome.
func toBool(val ref.Val) bool {
	b, ok := val.(types.Bool)
	return ok && bool(b)
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	return nil
}

func (e *Engine) compileRule(cfg *domain.ClinicalRule) (*CompiledRule, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("rule id is required")
	}
	if cfg.Module == "" {
		return nil, fmt.Errorf("rule %s: module is required", cfg.ID)
	}
	if cfg.Match.Status == "" || cfg.Match.FindingKey == "" {
		return nil, fmt.Errorf("rule %s: match outcome needs a status and finding key", cfg.ID)
	}
	for _, attr := range cfg.Requires {
		if !knownAttributes[attr] {
			return nil, fmt.Errorf("rule %s: unknown required attribute %q", cfg.ID, attr)
		}
	}

	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	outputType := ast.OutputType()
	if !outputType.IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", cfg.ID, outputType)
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &CompiledRule{
		Config:  cfg,
		Program: program,
	}, nil
}
