// Package patient derives clinical rule inputs from stored patient records.
package patient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-health/heron/internal/domain"
)

// ErrPatientNotFound is returned when no stored patient has the requested ID.
var ErrPatientNotFound = errors.New("patient not found")

// Service resolves PatientAttributes from the record store.
type Service struct {
	repo domain.Repository
	now  func() time.Time
}

// NewService creates a new patient attribute service.
func NewService(repo domain.Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Attributes loads a patient and derives rule inputs. A non-nil reading
// overrides any stored vital signs.
func (s *Service) Attributes(ctx context.Context, patientID string, reading *domain.BloodPressure) (domain.PatientAttributes, error) {
	if patientID == "" {
		return domain.PatientAttributes{}, fmt.Errorf("%w: empty id", ErrPatientNotFound)
	}

	patients, err := s.repo.GetPatients(ctx)
	if err != nil {
		return domain.PatientAttributes{}, fmt.Errorf("failed to load patients: %w", err)
	}

	for _, p := range patients {
		if p.ID != patientID {
			continue
		}
		attrs := FromPatient(p, s.now())
		if reading != nil {
			attrs.Reading = reading
		}
		return attrs, nil
	}

	return domain.PatientAttributes{}, fmt.Errorf("%w: %s", ErrPatientNotFound, patientID)
}

// FromPatient derives attributes from a record. Age comes from the age
// field, falling back to the date of birth; it stays nil when neither parses.
func FromPatient(p domain.Patient, now time.Time) domain.PatientAttributes {
	attrs := domain.PatientAttributes{
		Gender: domain.ParseGender(p.Gender),
	}

	if age, ok := ParseAge(p.Age); ok {
		attrs.Age = &age
	} else if age, ok := AgeFromDOB(p.DateOfBirth, now); ok {
		attrs.Age = &age
	}

	if p.VitalSigns != nil {
		if bp, ok := ParseBloodPressure(p.VitalSigns.BloodPressure); ok {
			attrs.Reading = bp
		}
	}

	return attrs
}

// ParseAge parses a whole-year age.
func ParseAge(s string) (int, bool) {
	age, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || age < 0 || age > domain.MaxAge {
		return 0, false
	}
	return age, true
}

// AgeFromDOB computes completed years from a YYYY-MM-DD date of birth.
func AgeFromDOB(dob string, now time.Time) (int, bool) {
	birth, err := time.Parse("2006-01-02", strings.TrimSpace(dob))
	if err != nil || birth.After(now) {
		return 0, false
	}

	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	if age > domain.MaxAge {
		return 0, false
	}
	return age, true
}

// ParseBloodPressure parses "120/80" or "120/80 mmHg". Non-positive and
// non-finite values are rejected.
func ParseBloodPressure(s string) (*domain.BloodPressure, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "mmHg"))
	sys, dia, found := strings.Cut(s, "/")
	if !found {
		return nil, false
	}

	systolic, err := strconv.ParseFloat(strings.TrimSpace(sys), 64)
	if err != nil {
		return nil, false
	}
	diastolic, err := strconv.ParseFloat(strings.TrimSpace(dia), 64)
	if err != nil {
		return nil, false
	}

	bp := &domain.BloodPressure{Systolic: systolic, Diastolic: diastolic}
	if !bp.Valid() {
		return nil, false
	}
	return bp, true
}
