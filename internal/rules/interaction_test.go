package rules

import (
	"testing"

	"github.com/opensource-health/heron/internal/domain"
	"github.com/opensource-health/heron/internal/knowledge"
)

func defaultChecker(t *testing.T) *InteractionChecker {
	t.Helper()
	catalog, err := knowledge.Default()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	return NewInteractionChecker(catalog.Interactions)
}

func TestCheckReportsOriginalPair(t *testing.T) {
	checker := defaultChecker(t)

	findings := checker.Check([]string{"Warfarin", " Aspirin "})
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}

	f := findings[0]
	if f.Pair != [2]string{"Warfarin", " Aspirin "} {
		t.Errorf("expected pair as entered, got %q", f.Pair)
	}
	if f.Severity != domain.InteractionMajor {
		t.Errorf("expected Major, got %s", f.Severity)
	}
	if f.SummaryKey != "interaction_warfarin_aspirin_summary" {
		t.Errorf("unexpected summary key %s", f.SummaryKey)
	}
}

func TestCheckSymmetric(t *testing.T) {
	checker := defaultChecker(t)

	ab := checker.Check([]string{"simvastatin", "clarithromycin"})
	ba := checker.Check([]string{"clarithromycin", "simvastatin"})

	if len(ab) != 1 || len(ba) != 1 {
		t.Fatalf("expected one finding each, got %d and %d", len(ab), len(ba))
	}
	if ab[0].Severity != ba[0].Severity || ab[0].SummaryKey != ba[0].SummaryKey || ab[0].ManagementKey != ba[0].ManagementKey {
		t.Error("expected identical rule data regardless of order")
	}
	if ab[0].Pair[0] != "simvastatin" || ba[0].Pair[0] != "clarithromycin" {
		t.Error("expected each call to keep its own input order")
	}
}

func TestCheckTooFewNames(t *testing.T) {
	checker := defaultChecker(t)

	tests := []struct {
		name  string
		drugs []string
	}{
		{"nil", nil},
		{"single", []string{"warfarin"}},
		{"blanks", []string{"warfarin", "  ", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := checker.Check(tt.drugs)
			if findings == nil || len(findings) != 0 {
				t.Errorf("expected empty non-nil result, got %v", findings)
			}
		})
	}
}

func TestCheckEnumerationOrder(t *testing.T) {
	checker := defaultChecker(t)

	findings := checker.Check([]string{"Ibuprofen", "lisinopril", "warfarin", "aspirin"})

	want := [][2]string{
		{"Ibuprofen", "lisinopril"},
		{"Ibuprofen", "warfarin"},
		{"warfarin", "aspirin"},
	}
	if len(findings) != len(want) {
		t.Fatalf("expected %d findings, got %d", len(want), len(findings))
	}
	for i, pair := range want {
		if findings[i].Pair != pair {
			t.Errorf("finding %d: expected %q, got %q", i, pair, findings[i].Pair)
		}
	}
	if findings[0].Severity != domain.InteractionModerate {
		t.Errorf("expected Moderate for ibuprofen-lisinopril, got %s", findings[0].Severity)
	}
}

func TestCheckDuplicatesByPosition(t *testing.T) {
	checker := defaultChecker(t)

	findings := checker.Check([]string{"warfarin", "aspirin", "Warfarin"})
	if len(findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(findings))
	}
	if findings[1].Pair != [2]string{"aspirin", "Warfarin"} {
		t.Errorf("unexpected second pair %q", findings[1].Pair)
	}
}

func TestCheckHyphenatedNamesDoNotCollide(t *testing.T) {
	checker := NewInteractionChecker([]domain.InteractionRule{
		{Drugs: []string{"a-b", "c"}, Severity: domain.InteractionMinor},
	})

	if got := checker.Check([]string{"a", "b-c"}); len(got) != 0 {
		t.Errorf("expected no match for a / b-c, got %d", len(got))
	}
	if got := checker.Check([]string{"c", "A-B"}); len(got) != 1 {
		t.Errorf("expected match for c / A-B, got %d", len(got))
	}
}

func TestPairKey(t *testing.T) {
	if got := domain.PairKey(" Warfarin", "ASPIRIN "); got != "aspirin-warfarin" {
		t.Errorf("expected aspirin-warfarin, got %s", got)
	}
	if NewInteractionChecker([]domain.InteractionRule{{Drugs: []string{"solo"}}}).RulesCount() != 0 {
		t.Error("expected single-drug rule to be ignored")
	}
}
