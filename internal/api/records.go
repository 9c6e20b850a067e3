package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-health/heron/internal/domain"
	"github.com/opensource-health/heron/internal/reports"
)

// recordsEvent is published on TopicRecordsUpdated.
type recordsEvent struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// GetPatients returns every stored patient.
func (h *Handler) GetPatients(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}
	patients, err := h.repo.GetPatients(r.Context())
	if err != nil {
		writeFailure(w, "failed to load patients", err)
		return
	}
	if patients == nil {
		patients = []domain.Patient{}
	}
	writeJSON(w, http.StatusOK, patients)
}

// SavePatients replaces the stored patient list.
func (h *Handler) SavePatients(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}
	var patients []domain.Patient
	if !decodeJSON(w, r, &patients) {
		return
	}
	if err := h.repo.SavePatients(r.Context(), patients); err != nil {
		writeFailure(w, "failed to save patients", err)
		return
	}
	h.recordsSaved(r, "patients", len(patients))
}

// GetAppointments returns every stored appointment.
func (h *Handler) GetAppointments(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}
	appointments, err := h.repo.GetAppointments(r.Context())
	if err != nil {
		writeFailure(w, "failed to load appointments", err)
		return
	}
	if appointments == nil {
		appointments = []domain.Appointment{}
	}
	writeJSON(w, http.StatusOK, appointments)
}

// SaveAppointments replaces the stored appointment list.
func (h *Handler) SaveAppointments(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}
	var appointments []domain.Appointment
	if !decodeJSON(w, r, &appointments) {
		return
	}
	if err := h.repo.SaveAppointments(r.Context(), appointments); err != nil {
		writeFailure(w, "failed to save appointments", err)
		return
	}
	h.recordsSaved(r, "appointments", len(appointments))
}

// GetPrescriptions returns every stored prescription.
func (h *Handler) GetPrescriptions(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}
	prescriptions, err := h.repo.GetPrescriptions(r.Context())
	if err != nil {
		writeFailure(w, "failed to load prescriptions", err)
		return
	}
	if prescriptions == nil {
		prescriptions = []domain.Prescription{}
	}
	writeJSON(w, http.StatusOK, prescriptions)
}

// SavePrescriptions replaces the stored prescription list.
func (h *Handler) SavePrescriptions(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}
	var prescriptions []domain.Prescription
	if !decodeJSON(w, r, &prescriptions) {
		return
	}
	if err := h.repo.SavePrescriptions(r.Context(), prescriptions); err != nil {
		writeFailure(w, "failed to save prescriptions", err)
		return
	}
	h.recordsSaved(r, "prescriptions", len(prescriptions))
}

// GetSettings returns the practice settings merged over the defaults.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}
	settings, err := h.repo.GetSettings(r.Context())
	if err != nil {
		writeFailure(w, "failed to load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// SaveSettings stores the practice settings.
func (h *Handler) SaveSettings(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}
	settings := domain.DefaultSettings()
	if !decodeJSON(w, r, settings) {
		return
	}
	if err := h.repo.SaveSettings(r.Context(), settings); err != nil {
		writeFailure(w, "failed to save settings", err)
		return
	}
	h.recordsSaved(r, "settings", 1)
}

func (h *Handler) recordsSaved(r *http.Request, key string, count int) {
	h.publish(r.Context(), domain.TopicRecordsUpdated, recordsEvent{Key: key, Count: count})
	slog.Info("records saved", "key", key, "count", count)
}

// Backup returns a snapshot of every record.
func (h *Handler) Backup(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}
	backup, err := h.repo.BackupAllData(r.Context())
	if err != nil {
		writeFailure(w, "failed to back up data", err)
		return
	}
	writeJSON(w, http.StatusOK, backup)
}

// Restore replaces every record with the posted snapshot.
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	if !h.requireRepo(w) {
		return
	}
	var backup domain.Backup
	if !decodeJSON(w, r, &backup) {
		return
	}
	if err := h.repo.RestoreAllData(r.Context(), &backup); err != nil {
		writeFailure(w, "failed to restore data", err)
		return
	}
	h.publish(r.Context(), domain.TopicRecordsUpdated, recordsEvent{Key: "restore", Count: len(backup.Patients)})

	slog.Info("records restored",
		"patients", len(backup.Patients),
		"appointments", len(backup.Appointments),
		"prescriptions", len(backup.Prescriptions),
	)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "data restored",
	})
}

// GenerateReport builds a report over the posted date filters. A report
// with no matching records is returned as null.
func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.buildReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ExportReport writes a report in the format named by ?format=. An empty
// report yields 204.
func (h *Handler) ExportReport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	exporter, err := reports.ExporterFor(format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, ok := h.buildReport(w, r)
	if !ok {
		return
	}
	if report == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var buf bytes.Buffer
	if err := exporter.Export(&buf, report); err != nil {
		writeFailure(w, "failed to export report", err)
		return
	}

	filename := fmt.Sprintf("%s.%s", chi.URLParam(r, "type"), exporter.Extension())
	w.Header().Set("Content-Type", exporter.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handler) buildReport(w http.ResponseWriter, r *http.Request) (reports.Tabular, bool) {
	if h.reports == nil {
		writeError(w, http.StatusServiceUnavailable, "repository not available")
		return nil, false
	}

	// An empty body means no filters
	var filters reports.Filters
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&filters); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return nil, false
	}

	report, err := h.reports.Generate(r.Context(), chi.URLParam(r, "type"), filters)
	if err != nil {
		writeFailure(w, "failed to generate report", err)
		return nil, false
	}
	return report, true
}
