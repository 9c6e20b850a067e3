package reports

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrUnsupportedFormat is returned for export formats with no sink.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Tabular is a report that can be flattened to rows.
type Tabular interface {
	Table() (header []string, rows [][]string)
}

// Exporter writes a report in one format.
type Exporter interface {
	Export(w io.Writer, report Tabular) error
	ContentType() string
	Extension() string
}

// ExporterFor returns the exporter for format. PDF and Excel have no sink.
func ExporterFor(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "csv":
		return CSVExporter{}, nil
	case "json":
		return JSONExporter{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

// CSVExporter writes the report table with a header row.
type CSVExporter struct{}

func (CSVExporter) Export(w io.Writer, report Tabular) error {
	header, rows := report.Table()

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

func (CSVExporter) ContentType() string { return "text/csv" }
func (CSVExporter) Extension() string   { return "csv" }

// JSONExporter writes the whole report as indented JSON.
type JSONExporter struct{}

func (JSONExporter) Export(w io.Writer, report Tabular) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func (JSONExporter) ContentType() string { return "application/json" }
func (JSONExporter) Extension() string   { return "json" }

func (r *DemographicsReport) Table() ([]string, [][]string) {
	header := []string{"id", "name", "age", "gender", "status", "createdAt"}
	rows := make([][]string, 0, len(r.TableData))
	for _, p := range r.TableData {
		rows = append(rows, []string{p.ID, p.Name, p.Age, p.Gender, p.Status, p.CreatedAt})
	}
	return header, rows
}

func (r *AppointmentReport) Table() ([]string, [][]string) {
	header := []string{"id", "patient_id", "date", "time", "duration", "type", "status"}
	rows := make([][]string, 0, len(r.TableData))
	for _, a := range r.TableData {
		rows = append(rows, []string{a.ID, a.PatientID, a.Date, a.Time, strconv.Itoa(a.Duration), a.Type, a.Status})
	}
	return header, rows
}
