package repository

import (
	"context"
	"fmt"

	"github.com/opensource-health/heron/internal/domain"
)

// GetPatients returns all stored patients, or an empty list.
func (r *SQLRepository) GetPatients(ctx context.Context) ([]domain.Patient, error) {
	patients := []domain.Patient{}
	if _, err := r.getRecord(ctx, r.db, KeyPatients, &patients); err != nil {
		return nil, err
	}
	return nonNil(patients), nil
}

// SavePatients replaces the stored patient list.
func (r *SQLRepository) SavePatients(ctx context.Context, patients []domain.Patient) error {
	return r.putRecord(ctx, r.db, KeyPatients, nonNil(patients))
}

// GetAppointments returns all stored appointments, or an empty list.
func (r *SQLRepository) GetAppointments(ctx context.Context) ([]domain.Appointment, error) {
	appointments := []domain.Appointment{}
	if _, err := r.getRecord(ctx, r.db, KeyAppointments, &appointments); err != nil {
		return nil, err
	}
	return nonNil(appointments), nil
}

// SaveAppointments replaces the stored appointment list.
func (r *SQLRepository) SaveAppointments(ctx context.Context, appointments []domain.Appointment) error {
	return r.putRecord(ctx, r.db, KeyAppointments, nonNil(appointments))
}

// GetPrescriptions returns all stored prescriptions, or an empty list.
func (r *SQLRepository) GetPrescriptions(ctx context.Context) ([]domain.Prescription, error) {
	prescriptions := []domain.Prescription{}
	if _, err := r.getRecord(ctx, r.db, KeyPrescriptions, &prescriptions); err != nil {
		return nil, err
	}
	return nonNil(prescriptions), nil
}

// SavePrescriptions replaces the stored prescription list.
func (r *SQLRepository) SavePrescriptions(ctx context.Context, prescriptions []domain.Prescription) error {
	return r.putRecord(ctx, r.db, KeyPrescriptions, nonNil(prescriptions))
}

// GetSettings returns the stored settings decoded over the defaults, so
// fields missing from older documents keep their default values.
func (r *SQLRepository) GetSettings(ctx context.Context) (*domain.Settings, error) {
	settings := domain.DefaultSettings()
	if _, err := r.getRecord(ctx, r.db, KeySettings, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// SaveSettings replaces the stored settings.
func (r *SQLRepository) SaveSettings(ctx context.Context, settings *domain.Settings) error {
	if settings == nil {
		return fmt.Errorf("%w: settings are required", ErrInvalidInput)
	}
	return r.putRecord(ctx, r.db, KeySettings, settings)
}

// BackupAllData snapshots every record list and the settings.
func (r *SQLRepository) BackupAllData(ctx context.Context) (*domain.Backup, error) {
	patients, err := r.GetPatients(ctx)
	if err != nil {
		return nil, err
	}
	appointments, err := r.GetAppointments(ctx)
	if err != nil {
		return nil, err
	}
	prescriptions, err := r.GetPrescriptions(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := r.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	return &domain.Backup{
		Patients:      patients,
		Appointments:  appointments,
		Prescriptions: prescriptions,
		Settings:      settings,
	}, nil
}

// RestoreAllData replaces every record list and the settings in one
// transaction. Missing lists restore as empty and missing settings as defaults.
func (r *SQLRepository) RestoreAllData(ctx context.Context, backup *domain.Backup) error {
	if backup == nil {
		return fmt.Errorf("%w: backup is required", ErrInvalidInput)
	}

	settings := backup.Settings
	if settings == nil {
		settings = domain.DefaultSettings()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin restore: %w", err)
	}
	defer tx.Rollback()

	if err := r.putRecord(ctx, tx, KeyPatients, nonNil(backup.Patients)); err != nil {
		return err
	}
	if err := r.putRecord(ctx, tx, KeyAppointments, nonNil(backup.Appointments)); err != nil {
		return err
	}
	if err := r.putRecord(ctx, tx, KeyPrescriptions, nonNil(backup.Prescriptions)); err != nil {
		return err
	}
	if err := r.putRecord(ctx, tx, KeySettings, settings); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit restore: %w", err)
	}
	return nil
}

// nonNil makes empty lists encode as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
