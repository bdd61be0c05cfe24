package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "Summary"
	mentionsSheet = "Mentions"
)

// XLSXWriter exports a workbook with a summary sheet and a mention sheet.
type XLSXWriter struct {
	baseWriter
}

// NewXLSXWriter creates an XLSXWriter that outputs to the given writer.
func NewXLSXWriter(output io.Writer) *XLSXWriter {
	return &XLSXWriter{baseWriter: newBaseWriter(output)}
}

// Write builds the workbook and writes it out.
func (w *XLSXWriter) Write(s *Summary) (int, error) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // in-memory workbook

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return 0, err
	}
	mentionsIdx, err := f.NewSheet(mentionsSheet)
	if err != nil {
		return 0, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return 0, err
	}

	if err := writeSummarySheet(f, s, bold); err != nil {
		return 0, fmt.Errorf("summary sheet: %w", err)
	}
	if err := writeMentionsSheet(f, s, bold); err != nil {
		return 0, fmt.Errorf("mentions sheet: %w", err)
	}
	if s.Total > 0 {
		f.SetActiveSheet(mentionsIdx)
	}

	n, err := f.WriteTo(w.output)
	return int(n), err
}

func writeSummarySheet(f *excelize.File, s *Summary, bold int) error {
	rows := [][]any{
		{"Generated", s.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
		{"Total mentions", s.Total},
		{"Skipped lines", s.Skipped},
		{"Average polarity", s.AveragePolarity},
		{"Positive", s.Positive},
		{"Neutral", s.Neutral},
		{"Negative", s.Negative},
		{},
		{"Domain", "Mentions"},
	}
	for _, c := range s.TopDomains {
		rows = append(rows, []any{c.Key, c.Count})
	}
	rows = append(rows, []any{}, []any{"Variation", "Mentions"})
	for _, c := range s.Variations {
		rows = append(rows, []any{c.Key, c.Count})
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
		if row[0] == "Domain" || row[0] == "Variation" {
			end, _ := excelize.CoordinatesToCellName(2, i+1) //nolint:errcheck // valid coordinates
			if err := f.SetCellStyle(summarySheet, cell, end, bold); err != nil {
				return err
			}
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", "A7", bold); err != nil {
		return err
	}
	return f.SetColWidth(summarySheet, "A", "A", 40)
}

func writeMentionsSheet(f *excelize.File, s *Summary, bold int) error {
	header := make([]any, len(mentionHeader))
	for i, h := range mentionHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(mentionsSheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(mentionsSheet, "A1", "G1", bold); err != nil {
		return err
	}

	for i, m := range s.Mentions {
		row := []any{
			m.URL,
			Domain(m.URL),
			m.Variation,
			m.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			m.Context,
			m.Sentiment.Polarity,
			m.Sentiment.Subjectivity,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(mentionsSheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(mentionsSheet, "A", "A", 50); err != nil {
		return err
	}
	return f.SetColWidth(mentionsSheet, "E", "E", 80)
}
