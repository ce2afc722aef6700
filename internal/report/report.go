// Package report exports a learner's progress as an Excel workbook.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/frenchbreeze/breeze/internal/content"
	"github.com/frenchbreeze/breeze/internal/profile"
)

// Sheet names.
const (
	SummarySheet  = "Summary"
	ProgressSheet = "Progress"
)

var progressHeader = []any{"Lesson", "Title", "Topic", "Level", "Completed"}

// Write renders p's progress through catalog as an .xlsx workbook to w.
func Write(w io.Writer, p profile.Profile, catalog *content.Catalog, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(ProgressSheet); err != nil {
		return fmt.Errorf("add progress sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	if err := writeSummary(f, p, catalog.Dashboard(p), generatedAt, bold); err != nil {
		return err
	}
	if err := writeProgress(f, p, catalog, bold); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, p profile.Profile, d content.Dashboard, generatedAt time.Time, bold int) error {
	name := p.Name
	if name == "" {
		name = content.FallbackLearnerName
	}
	level := string(p.Level)
	if level == "" {
		level = "Not set"
	}
	lastVisit := p.LastLoginDate.String()
	if lastVisit == "" {
		lastVisit = "Never"
	}

	rows := [][]any{
		{"Learner", name},
		{"Email", p.Email},
		{"Level", level},
		{"Lessons completed", d.Completed},
		{"Lessons available", d.Total},
		{"Completion (%)", d.Percent},
		{"Daily streak", p.DailyStreak},
		{"Next milestone", d.NextMilestone},
		{"Last visit", lastVisit},
		{"Generated", generatedAt.Format(time.RFC3339)},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("summary row %d: %w", i+1, err)
		}
	}
	if err := f.SetCellStyle(SummarySheet, "A1", fmt.Sprintf("A%d", len(rows)), bold); err != nil {
		return err
	}
	return f.SetColWidth(SummarySheet, "A", "B", 22)
}

func writeProgress(f *excelize.File, p profile.Profile, catalog *content.Catalog, bold int) error {
	if err := f.SetSheetRow(ProgressSheet, "A1", &progressHeader); err != nil {
		return fmt.Errorf("progress header: %w", err)
	}
	if err := f.SetCellStyle(ProgressSheet, "A1", "E1", bold); err != nil {
		return err
	}

	for i, l := range catalog.Lessons() {
		done := "No"
		if p.Progress[l.ID] {
			done = "Yes"
		}
		row := []any{l.ID, l.Title, l.Topic, string(l.Level), done}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ProgressSheet, cell, &row); err != nil {
			return fmt.Errorf("progress row %s: %w", l.ID, err)
		}
	}
	if err := f.SetColWidth(ProgressSheet, "A", "A", 16); err != nil {
		return err
	}
	return f.SetColWidth(ProgressSheet, "B", "C", 26)
}
