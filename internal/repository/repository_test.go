package repository

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/opensource-health/heron/internal/domain"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "heron-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo
}

func TestSQLiteRepository(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("EmptyLists", func(t *testing.T) {
		patients, err := repo.GetPatients(ctx)
		if err != nil {
			t.Fatalf("GetPatients failed: %v", err)
		}
		if patients == nil || len(patients) != 0 {
			t.Errorf("expected empty patient list, got %v", patients)
		}

		appointments, _ := repo.GetAppointments(ctx)
		if appointments == nil || len(appointments) != 0 {
			t.Errorf("expected empty appointment list, got %v", appointments)
		}
	})

	t.Run("SaveAndGetPatients", func(t *testing.T) {
		patients := []domain.Patient{
			{ID: "p-001", Name: "Ada Lovelace", Age: "36", Gender: "Female", Status: "active"},
			{ID: "p-002", Name: "Alan Turing", DateOfBirth: "1970-06-23", Gender: "Male", Status: "inactive"},
		}
		if err := repo.SavePatients(ctx, patients); err != nil {
			t.Fatalf("SavePatients failed: %v", err)
		}

		got, err := repo.GetPatients(ctx)
		if err != nil {
			t.Fatalf("GetPatients failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 patients, got %d", len(got))
		}
		if got[1].DateOfBirth != "1970-06-23" {
			t.Errorf("expected dateOfBirth to round-trip, got %q", got[1].DateOfBirth)
		}

		// Save replaces the whole list
		if err := repo.SavePatients(ctx, patients[:1]); err != nil {
			t.Fatalf("SavePatients failed: %v", err)
		}
		got, _ = repo.GetPatients(ctx)
		if len(got) != 1 {
			t.Errorf("expected 1 patient after replace, got %d", len(got))
		}
	})

	t.Run("SaveAndGetPrescriptions", func(t *testing.T) {
		rx := []domain.Prescription{{
			ID:        "rx-001",
			PatientID: "p-001",
			Diagnosis: "Hypertension",
			Medications: []domain.Medication{
				{Name: "Lisinopril", Dosage: "10mg", Frequency: "daily", Duration: "30 days", Form: "tablet"},
			},
			Status: "active",
		}}
		if err := repo.SavePrescriptions(ctx, rx); err != nil {
			t.Fatalf("SavePrescriptions failed: %v", err)
		}

		got, _ := repo.GetPrescriptions(ctx)
		if len(got) != 1 || len(got[0].Medications) != 1 {
			t.Fatalf("unexpected prescriptions %+v", got)
		}
		if got[0].Medications[0].Name != "Lisinopril" {
			t.Errorf("expected Lisinopril, got %s", got[0].Medications[0].Name)
		}
	})
}

func TestSettings(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t.Run("DefaultsWhenUnset", func(t *testing.T) {
		settings, err := repo.GetSettings(ctx)
		if err != nil {
			t.Fatalf("GetSettings failed: %v", err)
		}
		if settings.Practice.Name != "Digital Doctor Practice" {
			t.Errorf("expected default practice name, got %q", settings.Practice.Name)
		}
		if settings.Clinical.DefaultMedicationDuration != 7 {
			t.Errorf("expected default duration 7, got %d", settings.Clinical.DefaultMedicationDuration)
		}
	})

	t.Run("MergeOverDefaults", func(t *testing.T) {
		// A partial document, as older clients wrote
		sqlRepo := repo.(*SQLRepository)
		partial := map[string]any{
			"practice": map[string]any{"name": "Riverside Clinic"},
		}
		if err := sqlRepo.putRecord(ctx, sqlRepo.db, KeySettings, partial); err != nil {
			t.Fatalf("putRecord failed: %v", err)
		}

		settings, err := repo.GetSettings(ctx)
		if err != nil {
			t.Fatalf("GetSettings failed: %v", err)
		}
		if settings.Practice.Name != "Riverside Clinic" {
			t.Errorf("expected stored name, got %q", settings.Practice.Name)
		}
		if settings.Billing.Currency != "USD" {
			t.Errorf("expected default currency to survive, got %q", settings.Billing.Currency)
		}
		if settings.Security.SessionTimeout != 30 {
			t.Errorf("expected default session timeout, got %d", settings.Security.SessionTimeout)
		}
	})

	t.Run("SaveNil", func(t *testing.T) {
		if err := repo.SaveSettings(ctx, nil); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestBackupRestore(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	settings := domain.DefaultSettings()
	settings.Billing.Currency = "EUR"

	backup := &domain.Backup{
		Patients:     []domain.Patient{{ID: "p-001", Name: "Grace Hopper", Status: "active"}},
		Appointments: []domain.Appointment{{ID: "a-001", PatientID: "p-001", Date: "2025-03-01", Time: "09:30", Status: "scheduled"}},
		Settings:     settings,
	}

	if err := repo.RestoreAllData(ctx, backup); err != nil {
		t.Fatalf("RestoreAllData failed: %v", err)
	}

	got, err := repo.BackupAllData(ctx)
	if err != nil {
		t.Fatalf("BackupAllData failed: %v", err)
	}
	if len(got.Patients) != 1 || got.Patients[0].Name != "Grace Hopper" {
		t.Errorf("unexpected patients %+v", got.Patients)
	}
	if len(got.Appointments) != 1 || got.Appointments[0].Time != "09:30" {
		t.Errorf("unexpected appointments %+v", got.Appointments)
	}
	if got.Prescriptions == nil || len(got.Prescriptions) != 0 {
		t.Errorf("expected missing prescriptions to restore empty, got %v", got.Prescriptions)
	}
	if got.Settings.Billing.Currency != "EUR" {
		t.Errorf("expected EUR, got %s", got.Settings.Billing.Currency)
	}

	// Restoring a bundle without settings resets them to defaults
	if err := repo.RestoreAllData(ctx, &domain.Backup{}); err != nil {
		t.Fatalf("RestoreAllData failed: %v", err)
	}
	got, _ = repo.BackupAllData(ctx)
	if len(got.Patients) != 0 {
		t.Errorf("expected patients cleared, got %d", len(got.Patients))
	}
	if got.Settings.Billing.Currency != "USD" {
		t.Errorf("expected default currency, got %s", got.Settings.Billing.Currency)
	}

	if err := repo.RestoreAllData(ctx, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil backup, got %v", err)
	}
}

func TestClinicalRules(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rule := &domain.ClinicalRule{
		ID:          "preventiveCare.boneDensity",
		Module:      domain.ModulePreventiveCare,
		Name:        "Bone density",
		Description: "DEXA screening due",
		Version:     "1.0.0",
		Requires:    []string{domain.AttrAge, domain.AttrGender},
		Expression:  `gender == "female" && age >= 65`,
		Match: domain.ClinicalOutcome{
			Status:            domain.StatusDue,
			FindingKey:        "boneDensity",
			RecommendationKey: "boneDensityRec",
			Source:            "USPSTF",
		},
		Order:   50,
		Enabled: true,
	}

	t.Run("SaveAndGet", func(t *testing.T) {
		if err := repo.SaveClinicalRule(ctx, rule); err != nil {
			t.Fatalf("SaveClinicalRule failed: %v", err)
		}

		got, err := repo.GetClinicalRule(ctx, rule.ID)
		if err != nil {
			t.Fatalf("GetClinicalRule failed: %v", err)
		}
		if got.Expression != rule.Expression {
			t.Errorf("expected expression %q, got %q", rule.Expression, got.Expression)
		}
		if len(got.Requires) != 2 || got.Match.FindingKey != "boneDensity" {
			t.Errorf("unexpected rule %+v", got)
		}
		if got.Otherwise != nil {
			t.Errorf("expected nil otherwise outcome, got %+v", got.Otherwise)
		}
	})

	t.Run("Upsert", func(t *testing.T) {
		updated := *rule
		updated.Otherwise = &domain.ClinicalOutcome{Status: domain.StatusAtGoal, FindingKey: "boneDensityNotDue"}
		if err := repo.SaveClinicalRule(ctx, &updated); err != nil {
			t.Fatalf("SaveClinicalRule failed: %v", err)
		}

		rules, err := repo.ListClinicalRules(ctx)
		if err != nil {
			t.Fatalf("ListClinicalRules failed: %v", err)
		}
		if len(rules) != 1 {
			t.Fatalf("expected 1 rule, got %d", len(rules))
		}
		if rules[0].Otherwise == nil || rules[0].Otherwise.FindingKey != "boneDensityNotDue" {
			t.Errorf("expected otherwise outcome after upsert, got %+v", rules[0].Otherwise)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := repo.DeleteClinicalRule(ctx, rule.ID); err != nil {
			t.Fatalf("DeleteClinicalRule failed: %v", err)
		}
		if _, err := repo.GetClinicalRule(ctx, rule.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if err := repo.DeleteClinicalRule(ctx, rule.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
	})

	t.Run("InvalidInput", func(t *testing.T) {
		if err := repo.SaveClinicalRule(ctx, &domain.ClinicalRule{}); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}
