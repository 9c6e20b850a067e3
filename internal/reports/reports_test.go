package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/opensource-health/heron/internal/domain"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func testPatients() []domain.Patient {
	return []domain.Patient{
		{ID: "p1", Name: "A", Age: "30", Gender: "Female", Status: "active", CreatedAt: "2025-01-10T09:00:00Z"},
		{ID: "p2", Name: "B", DateOfBirth: "1975-06-20", Gender: "Male", Status: "active", CreatedAt: "2025-02-01"},
		{ID: "p3", Name: "C", Gender: "", Status: "inactive", CreatedAt: "2025-03-31T23:59:00Z"},
		{ID: "p4", Name: "D", Age: "70", Gender: "Female", Status: "active", CreatedAt: "2024-12-31T10:00:00Z"},
	}
}

func TestPatientDemographics(t *testing.T) {
	t.Run("FiltersAndSummarizes", func(t *testing.T) {
		report, err := PatientDemographics(testPatients(), Filters{StartDate: "2025-01-01", EndDate: "2025-03-31"}, now)
		if err != nil {
			t.Fatalf("PatientDemographics() error: %v", err)
		}
		if report == nil {
			t.Fatal("expected report")
		}

		if report.Summary.TotalPatients != 3 {
			t.Errorf("expected 3 patients, got %d", report.Summary.TotalPatients)
		}
		// p1 is 30, p2 turns 50 on 2025-06-20 so is 49; p3 has no age.
		if report.Summary.AverageAge != 40 {
			t.Errorf("expected average age 40, got %d", report.Summary.AverageAge)
		}
		if report.Summary.ActivePatients != 2 || report.Summary.InactivePatients != 1 {
			t.Errorf("unexpected status counts: %+v", report.Summary)
		}

		want := []ChartEntry{{"Female", 1}, {"Male", 1}, {"Other", 1}}
		if len(report.Charts.Gender) != len(want) {
			t.Fatalf("expected %v, got %v", want, report.Charts.Gender)
		}
		for i := range want {
			if report.Charts.Gender[i] != want[i] {
				t.Errorf("gender[%d]: expected %v, got %v", i, want[i], report.Charts.Gender[i])
			}
		}
	})

	t.Run("EmptyRange", func(t *testing.T) {
		report, err := PatientDemographics(testPatients(), Filters{StartDate: "2030-01-01", EndDate: "2030-12-31"}, now)
		if err != nil {
			t.Fatalf("PatientDemographics() error: %v", err)
		}
		if report != nil {
			t.Errorf("expected nil report, got %+v", report)
		}
	})

	t.Run("OpenRange", func(t *testing.T) {
		report, _ := PatientDemographics(testPatients(), Filters{}, now)
		if report.Summary.TotalPatients != 4 {
			t.Errorf("expected all 4 patients, got %d", report.Summary.TotalPatients)
		}
	})

	t.Run("InvalidFilter", func(t *testing.T) {
		_, err := PatientDemographics(testPatients(), Filters{StartDate: "01/01/2025"}, now)
		if !errors.Is(err, ErrInvalidFilter) {
			t.Errorf("expected ErrInvalidFilter, got %v", err)
		}
	})
}

func testAppointments() []domain.Appointment {
	return []domain.Appointment{
		{ID: "a1", Date: "2025-05-01", Time: "09:30", Type: "consultation", Status: "completed"},
		{ID: "a2", Date: "2025-05-02", Time: "14:00", Type: "follow-up", Status: "no-show"},
		{ID: "a3", Date: "2025-05-03", Time: "09:00", Type: "consultation", Status: "scheduled"},
		{ID: "a4", Date: "2025-05-04", Time: "14:15", Type: "check-up", Status: "completed"},
		{ID: "a5", Date: "2025-07-01", Time: "08:00", Type: "consultation", Status: "completed"},
	}
}

func TestAppointmentAnalysis(t *testing.T) {
	t.Run("Summary", func(t *testing.T) {
		report, err := AppointmentAnalysis(testAppointments(), Filters{StartDate: "2025-05-01", EndDate: "2025-05-31"})
		if err != nil {
			t.Fatalf("AppointmentAnalysis() error: %v", err)
		}

		if report.Summary.TotalAppointments != 4 {
			t.Errorf("expected 4 appointments, got %d", report.Summary.TotalAppointments)
		}
		// 09 and 14 both have two; the earlier hour wins.
		if report.Summary.PeakTime != "09:00 - 09:59" {
			t.Errorf("expected 09:00 - 09:59, got %q", report.Summary.PeakTime)
		}
		if report.Summary.CompletedCount != 2 {
			t.Errorf("expected 2 completed, got %d", report.Summary.CompletedCount)
		}
		if report.Summary.NoShowCount != 1 {
			t.Errorf("expected 1 no-show, got %d", report.Summary.NoShowCount)
		}
		if len(report.Charts.Type) != 3 || report.Charts.Type[0].Name != "check-up" {
			t.Errorf("unexpected type chart: %v", report.Charts.Type)
		}
	})

	t.Run("PeakTimeWithoutParseableTimes", func(t *testing.T) {
		report, _ := AppointmentAnalysis([]domain.Appointment{{ID: "x", Date: "2025-05-01", Time: "soon"}}, Filters{})
		if report.Summary.PeakTime != "N/A" {
			t.Errorf("expected N/A, got %q", report.Summary.PeakTime)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		report, err := AppointmentAnalysis(nil, Filters{})
		if err != nil || report != nil {
			t.Errorf("expected nil report, got %+v, %v", report, err)
		}
	})
}

func TestExport(t *testing.T) {
	report, _ := AppointmentAnalysis(testAppointments(), Filters{StartDate: "2025-05-01", EndDate: "2025-05-02"})

	t.Run("CSV", func(t *testing.T) {
		exp, err := ExporterFor("CSV")
		if err != nil {
			t.Fatalf("ExporterFor() error: %v", err)
		}

		var buf bytes.Buffer
		if err := exp.Export(&buf, report); err != nil {
			t.Fatalf("Export() error: %v", err)
		}

		records, err := csv.NewReader(&buf).ReadAll()
		if err != nil {
			t.Fatalf("failed to read csv: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected header and 2 rows, got %d", len(records))
		}
		if records[0][0] != "id" || records[1][0] != "a1" {
			t.Errorf("unexpected csv: %v", records)
		}
	})

	t.Run("JSON", func(t *testing.T) {
		exp, _ := ExporterFor("json")

		var buf bytes.Buffer
		if err := exp.Export(&buf, report); err != nil {
			t.Fatalf("Export() error: %v", err)
		}

		var decoded AppointmentReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if decoded.Summary.TotalAppointments != 2 {
			t.Errorf("expected 2 appointments, got %d", decoded.Summary.TotalAppointments)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		for _, format := range []string{"pdf", "excel", "docx"} {
			if _, err := ExporterFor(format); !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("%s: expected ErrUnsupportedFormat, got %v", format, err)
			}
		}
	})
}

type recordStore struct {
	domain.Repository
	patients     []domain.Patient
	appointments []domain.Appointment
}

func (s *recordStore) GetPatients(ctx context.Context) ([]domain.Patient, error) {
	return s.patients, nil
}

func (s *recordStore) GetAppointments(ctx context.Context) ([]domain.Appointment, error) {
	return s.appointments, nil
}

func TestServiceGenerate(t *testing.T) {
	svc := NewService(&recordStore{patients: testPatients(), appointments: testAppointments()})
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	report, err := svc.Generate(ctx, TypePatientDemographics, Filters{})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if _, ok := report.(*DemographicsReport); !ok {
		t.Errorf("expected *DemographicsReport, got %T", report)
	}

	report, err = svc.Generate(ctx, TypeAppointmentAnalysis, Filters{StartDate: "2031-01-01"})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if report != nil {
		t.Errorf("expected nil report, got %T", report)
	}

	if _, err := svc.Generate(ctx, "revenue", Filters{}); !errors.Is(err, ErrUnknownReport) {
		t.Errorf("expected ErrUnknownReport, got %v", err)
	}
}
