package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/vetlink-group/intel-cli/internal/model"
)

// Export is the serialized compliance document: metadata, filter echo, and
// the filtered entry set.
type Export struct {
	ExportedAt time.Time          `json:"exported_at"`
	Filter     Filter             `json:"filter"`
	Count      int                `json:"count"`
	Entries    []model.AuditEntry `json:"entries"`
}

// ExportJSON serializes the filtered ledger as an indented JSON document.
func (l *Ledger) ExportJSON(filter Filter) ([]byte, error) {
	entries := l.Query(filter, 0)
	doc := Export{
		ExportedAt: l.nowFunc().UTC(),
		Filter:     filter,
		Count:      len(entries),
		Entries:    entries,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "audit: marshal export")
	}
	return data, nil
}

var exportHeader = []string{"id", "timestamp", "event_type", "actor_id", "subject_id", "action", "result", "details"}

// ExportXLSX serializes the filtered ledger as a spreadsheet with one
// header row and one row per entry.
func (l *Ledger) ExportXLSX(filter Filter) ([]byte, error) {
	entries := l.Query(filter, 0)

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("audit")
	if err != nil {
		return nil, eris.Wrap(err, "audit: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range exportHeader {
		header.AddCell().Value = col
	}

	for _, e := range entries {
		details, err := json.Marshal(e.Details)
		if err != nil {
			return nil, eris.Wrapf(err, "audit: marshal details for %s", e.ID)
		}
		row := sheet.AddRow()
		row.AddCell().Value = e.ID
		row.AddCell().Value = e.Timestamp.UTC().Format(time.RFC3339)
		row.AddCell().Value = string(e.EventType)
		row.AddCell().Value = e.ActorID
		row.AddCell().Value = e.SubjectID
		row.AddCell().Value = e.Action
		row.AddCell().Value = e.Result
		row.AddCell().Value = string(details)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, eris.Wrap(err, "audit: write workbook")
	}
	return buf.Bytes(), nil
}

// ExportAuditLog serializes the filtered ledger in the requested format
// ("json" or "xlsx"; empty defaults to json).
func (l *Ledger) ExportAuditLog(filter Filter, format string) ([]byte, string, error) {
	switch format {
	case "", "json":
		data, err := l.ExportJSON(filter)
		return data, "application/json", err
	case "xlsx":
		data, err := l.ExportXLSX(filter)
		return data, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", err
	default:
		return nil, "", eris.New(fmt.Sprintf("audit: unsupported export format %q", format))
	}
}
