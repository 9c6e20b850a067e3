// Package reports builds practice analytics from stored records.
package reports

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-health/heron/internal/domain"
	"github.com/opensource-health/heron/internal/patient"
)

// Report types.
const (
	TypePatientDemographics = "patient-demographics"
	TypeAppointmentAnalysis = "appointment-analysis"
)

// ErrUnknownReport is returned for an unrecognized report type.
var ErrUnknownReport = errors.New("unknown report type")

// ErrInvalidFilter is returned when a filter date does not parse.
var ErrInvalidFilter = errors.New("invalid report filter")

const dateLayout = "2006-01-02"

// Filters restricts a report to a date range. Both bounds are inclusive
// calendar days; an empty bound is open.
type Filters struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type dateRange struct {
	start, end time.Time
}

func (f Filters) parse() (dateRange, error) {
	var r dateRange
	if f.StartDate != "" {
		t, err := time.Parse(dateLayout, f.StartDate)
		if err != nil {
			return r, fmt.Errorf("%w: startDate %q", ErrInvalidFilter, f.StartDate)
		}
		r.start = t
	}
	if f.EndDate != "" {
		t, err := time.Parse(dateLayout, f.EndDate)
		if err != nil {
			return r, fmt.Errorf("%w: endDate %q", ErrInvalidFilter, f.EndDate)
		}
		r.end = t.AddDate(0, 0, 1)
	}
	return r, nil
}

// contains reports whether a record timestamp falls in the range.
// Unparseable timestamps are outside any bounded range.
func (r dateRange) contains(ts string) bool {
	if r.start.IsZero() && r.end.IsZero() {
		return true
	}
	t, ok := parseTimestamp(ts)
	if !ok {
		return false
	}
	if !r.start.IsZero() && t.Before(r.start) {
		return false
	}
	if !r.end.IsZero() && !t.Before(r.end) {
		return false
	}
	return true
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", dateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ChartEntry is one bar or slice of a distribution chart.
type ChartEntry struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// DemographicsReport summarizes the patient list.
type DemographicsReport struct {
	Summary struct {
		TotalPatients    int `json:"totalPatients"`
		AverageAge       int `json:"averageAge"`
		ActivePatients   int `json:"activePatients"`
		InactivePatients int `json:"inactivePatients"`
	} `json:"summary"`
	Charts struct {
		Gender []ChartEntry `json:"gender"`
	} `json:"charts"`
	TableData []domain.Patient `json:"tableData"`
}

// AppointmentReport summarizes scheduled visits.
type AppointmentReport struct {
	Summary struct {
		TotalAppointments int    `json:"totalAppointments"`
		PeakTime          string `json:"peakTime"`
		NoShowCount       int    `json:"noShowCount"`
		CompletedCount    int    `json:"completedCount"`
	} `json:"summary"`
	Charts struct {
		Status []ChartEntry `json:"status"`
		Type   []ChartEntry `json:"type"`
	} `json:"charts"`
	TableData []domain.Appointment `json:"tableData"`
}

// PatientDemographics reports on patients created within filters.
// It returns nil when no patient matches. Average age covers only
// patients whose age is known.
func PatientDemographics(patients []domain.Patient, filters Filters, now time.Time) (*DemographicsReport, error) {
	r, err := filters.parse()
	if err != nil {
		return nil, err
	}

	var matched []domain.Patient
	for _, p := range patients {
		if r.contains(p.CreatedAt) {
			matched = append(matched, p)
		}
	}
	if len(matched) == 0 {
		return nil, nil
	}

	report := &DemographicsReport{TableData: matched}
	report.Summary.TotalPatients = len(matched)

	genders := make(map[string]int)
	var totalAge, knownAges int
	for _, p := range matched {
		if attrs := patient.FromPatient(p, now); attrs.Age != nil {
			totalAge += *attrs.Age
			knownAges++
		}

		gender := p.Gender
		if gender == "" {
			gender = "Other"
		}
		genders[gender]++

		switch p.Status {
		case "active":
			report.Summary.ActivePatients++
		case "inactive":
			report.Summary.InactivePatients++
		}
	}

	if knownAges > 0 {
		report.Summary.AverageAge = int(math.Round(float64(totalAge) / float64(knownAges)))
	}
	report.Charts.Gender = distribution(genders)

	return report, nil
}

// AppointmentAnalysis reports on appointments dated within filters.
// It returns nil when no appointment matches.
func AppointmentAnalysis(appointments []domain.Appointment, filters Filters) (*AppointmentReport, error) {
	r, err := filters.parse()
	if err != nil {
		return nil, err
	}

	var matched []domain.Appointment
	for _, a := range appointments {
		if r.contains(a.Date) {
			matched = append(matched, a)
		}
	}
	if len(matched) == 0 {
		return nil, nil
	}

	report := &AppointmentReport{TableData: matched}
	report.Summary.TotalAppointments = len(matched)

	statuses := make(map[string]int)
	types := make(map[string]int)
	hours := make(map[int]int)
	for _, a := range matched {
		statuses[a.Status]++
		types[a.Type]++
		if h, ok := parseHour(a.Time); ok {
			hours[h]++
		}
	}

	report.Summary.PeakTime = peakTime(hours)
	report.Summary.NoShowCount = statuses[domain.AppointmentNoShow]
	report.Summary.CompletedCount = statuses[domain.AppointmentCompleted]
	report.Charts.Status = distribution(statuses)
	report.Charts.Type = distribution(types)

	return report, nil
}

func parseHour(hhmm string) (int, bool) {
	h, _, _ := strings.Cut(strings.TrimSpace(hhmm), ":")
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	return hour, true
}

// peakTime picks the busiest hour; ties go to the earliest.
func peakTime(hours map[int]int) string {
	peak, best := -1, 0
	for h, n := range hours {
		if n > best || (n == best && h < peak) {
			peak, best = h, n
		}
	}
	if peak < 0 {
		return "N/A"
	}
	return fmt.Sprintf("%02d:00 - %02d:59", peak, peak)
}

func distribution(counts map[string]int) []ChartEntry {
	entries := make([]ChartEntry, 0, len(counts))
	for name, n := range counts {
		entries = append(entries, ChartEntry{Name: name, Value: n})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// Service generates reports from the record store.
type Service struct {
	repo domain.Repository
	now  func() time.Time
}

// NewService creates a report service.
func NewService(repo domain.Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Types lists the supported report types.
func Types() []string {
	return []string{TypeAppointmentAnalysis, TypePatientDemographics}
}

// Generate builds the named report. A nil result with a nil error means
// nothing matched the filters.
func (s *Service) Generate(ctx context.Context, reportType string, filters Filters) (Tabular, error) {
	switch reportType {
	case TypePatientDemographics:
		patients, err := s.repo.GetPatients(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load patients: %w", err)
		}
		report, err := PatientDemographics(patients, filters, s.now())
		if err != nil || report == nil {
			return nil, err
		}
		return report, nil

	case TypeAppointmentAnalysis:
		appointments, err := s.repo.GetAppointments(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load appointments: %w", err)
		}
		report, err := AppointmentAnalysis(appointments, filters)
		if err != nil || report == nil {
			return nil, err
		}
		return report, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownReport, reportType)
}
