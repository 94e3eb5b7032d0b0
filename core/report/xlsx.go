package report

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const (
	transcriptSheet = "Transcript"
	summarySheet    = "Summary"
	xlsxDateFormat  = "2006-01-02"

	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var transcriptHeader = []interface{}{"Cohort", "Level", "Class", "Assignment", "Competency", "Status", "Achieved At"}

// WriteTranscriptXLSX renders the transcript as an Excel workbook:
// one row per competency on the first sheet and the status totals on the second one.
func WriteTranscriptXLSX(w io.Writer, tr Transcript) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", transcriptSheet); err != nil {
		return errors.Wrap(err, "renaming sheet")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating style")
	}

	rows := [][]interface{}{
		{"Student", tr.Student.Name},
		{"Email", tr.Student.Email},
		{"Generated At", tr.GeneratedAt.Format(time.RFC3339)},
		{},
		transcriptHeader,
	}
	for _, coh := range tr.Cohorts {
		for _, cls := range coh.Classes {
			for _, e := range cls.Entries {
				var achievedAt string
				if e.AchievedAt != nil {
					achievedAt = e.AchievedAt.Format(xlsxDateFormat)
				}
				rows = append(rows, []interface{}{
					coh.Name, coh.LevelName, cls.ClassName, e.AssignmentTitle, e.Competency, string(e.Status), achievedAt,
				})
			}
		}
	}
	if err = writeRows(f, transcriptSheet, rows); err != nil {
		return err
	}
	headerRow := 5
	if err = f.SetCellStyle(transcriptSheet, "A1", "A3", bold); err != nil {
		return errors.Wrap(err, "styling cells")
	}
	if err = f.SetCellStyle(transcriptSheet, cell(1, headerRow), cell(len(transcriptHeader), headerRow), bold); err != nil {
		return errors.Wrap(err, "styling cells")
	}
	if err = f.SetColWidth(transcriptSheet, "A", "G", 22); err != nil {
		return errors.Wrap(err, "sizing columns")
	}

	if _, err = f.NewSheet(summarySheet); err != nil {
		return errors.Wrap(err, "creating sheet")
	}
	summary := [][]interface{}{
		{"Status", "Competencies", "Percent"},
		{"MASTERED", tr.Summary.Mastered, tr.Percentages.Mastered},
		{"ACHIEVED", tr.Summary.Achieved, tr.Percentages.Achieved},
		{"IN_PROGRESS", tr.Summary.InProgress, tr.Percentages.InProgress},
		{"Total", tr.Summary.Total()},
	}
	if err = writeRows(f, summarySheet, summary); err != nil {
		return err
	}
	if err = f.SetCellStyle(summarySheet, "A1", "C1", bold); err != nil {
		return errors.Wrap(err, "styling cells")
	}

	return errors.Wrap(f.Write(w), "writing workbook")
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := row
		if err := f.SetSheetRow(sheet, cell(1, i+1), &r); err != nil {
			return errors.Wrapf(err, "writing row %d of %s", i+1, sheet)
		}
	}
	return nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
