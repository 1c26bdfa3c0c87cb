// Package export writes the current alert feed as CSV or XLSX for the
// dashboard's export dialog.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/eventconnect/eventconnect/internal/types"
	"github.com/xuri/excelize/v2"
)

// Format is a supported export file type
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const sheetName = "Alerts"

// Header is the column order shared by both formats
var Header = []string{
	"Alert ID", "Event ID", "Event", "Participant", "Email", "Type",
	"Timestamp", "Current Status", "Within Geofence", "Time Outside (s)",
}

// ParseFormat accepts "csv" or "xlsx", case-insensitively
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	case "":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type for the format
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Filename returns the download name for an export taken at t
func (f Format) Filename(t time.Time) string {
	return "alerts-" + t.UTC().Format("20060102-150405") + "." + string(f)
}

// Write dispatches on format
func Write(w io.Writer, f Format, alerts []types.Alert) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, alerts)
	case FormatXLSX:
		return WriteXLSX(w, alerts)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

func row(a types.Alert) []string {
	return []string{
		a.AlertID,
		a.EventID,
		a.EventTitle,
		a.ParticipantName,
		a.ParticipantEmail,
		string(a.Type),
		a.Timestamp.UTC().Format(time.RFC3339),
		a.CurrentStatus,
		strconv.FormatBool(a.IsWithinGeofence),
		strconv.FormatInt(a.CurrentTimeOutside, 10),
	}
}

// WriteCSV writes a header row followed by one row per alert
func WriteCSV(w io.Writer, alerts []types.Alert) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, a := range alerts {
		if err := cw.Write(row(a)); err != nil {
			return fmt.Errorf("write csv row %s: %w", a.AlertID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a single "Alerts" sheet with the same columns as WriteCSV
func WriteXLSX(w io.Writer, alerts []types.Alert) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := setRow(f, 1, Header); err != nil {
		return err
	}
	for i, a := range alerts {
		if err := setRow(f, i+2, row(a)); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(sheetName, "A", "J", 18); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, n int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
		return fmt.Errorf("write row %d: %w", n, err)
	}
	return nil
}
