// Package export writes spreadsheet overviews of a drill library.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/a3tai/hblib/internal/library"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Sheet names
const (
	DrillsSheet   = "Drills"
	SessionsSheet = "Sessions"
)

// DrillHeaders are the column titles of the drills sheet
var DrillHeaders = []string{
	"Session",
	"Session Title",
	"Drill ID",
	"Drill",
	"Phase",
	"Minutes",
	"Cumulative",
	"Page",
	"Images",
	"Setup",
	"Execution",
	"Coaching Points",
	"Variations",
}

// SessionHeaders are the column titles of the sessions sheet
var SessionHeaders = []string{
	"Session",
	"Title",
	"Minutes",
	"Drills",
	"Images",
	"Equipment",
	"Source File",
}

const maxTextLen = 500

// Exporter renders a library into an XLSX workbook
type Exporter struct {
	logger zerolog.Logger
}

// NewExporter creates an exporter
func NewExporter(logger zerolog.Logger) *Exporter {
	return &Exporter{logger: logger}
}

// XLSX returns the workbook bytes: one row per drill on the drills sheet,
// one row per session on the sessions sheet.
func (e *Exporter) XLSX(lib *library.Library) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", DrillsSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SessionsSheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	activeIndex, _ := f.GetSheetIndex(DrillsSheet)
	f.SetActiveSheet(activeIndex)

	writeHeader(f, DrillsSheet, DrillHeaders)
	writeHeader(f, SessionsSheet, SessionHeaders)

	drillRow := 2
	for i, s := range lib.Sessions {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, i+2)
			_ = f.SetCellValue(SessionsSheet, cell, v)
		}
		write(1, s.ID)
		write(2, s.Title)
		write(3, s.DurationTotalMin)
		write(4, len(s.Drills))
		write(5, s.ImageCount())
		write(6, strings.Join(s.Equipment, ", "))
		write(7, s.SourceFile)

		for _, d := range s.Drills {
			write := func(col int, v any) {
				cell, _ := excelize.CoordinatesToCellName(col, drillRow)
				_ = f.SetCellValue(DrillsSheet, cell, v)
			}
			write(1, s.ID)
			write(2, s.Title)
			write(3, d.DrillID)
			write(4, d.Title)
			write(5, string(d.Phase))
			write(6, d.DurationMin)
			write(7, d.CumulativeMin)
			write(8, d.SourcePageStart)
			write(9, len(d.Images))
			write(10, truncate(d.Text.Setup, maxTextLen))
			write(11, truncate(d.Text.Execution, maxTextLen))
			write(12, truncate(d.Text.CoachingPoints, maxTextLen))
			write(13, truncate(d.Text.Variations, maxTextLen))
			drillRow++
		}
	}

	_ = f.SetColWidth(DrillsSheet, "A", "A", 9)
	_ = f.SetColWidth(DrillsSheet, "B", "B", 32) // session title
	_ = f.SetColWidth(DrillsSheet, "C", "C", 10)
	_ = f.SetColWidth(DrillsSheet, "D", "D", 36) // drill title
	_ = f.SetColWidth(DrillsSheet, "E", "E", 16)
	_ = f.SetColWidth(DrillsSheet, "F", "I", 11)
	_ = f.SetColWidth(DrillsSheet, "J", "M", 48) // text
	_ = f.SetColWidth(SessionsSheet, "B", "B", 32)
	_ = f.SetColWidth(SessionsSheet, "F", "F", 40)
	_ = f.SetColWidth(SessionsSheet, "G", "G", 24)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	e.logger.Info().
		Int("sessions", len(lib.Sessions)).
		Int("rows", drillRow-2).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Msg("xlsx export done")
	return buf.Bytes(), nil
}

// WriteFile exports lib to path, replacing any existing file atomically
func (e *Exporter) WriteFile(lib *library.Library, path string) error {
	data, err := e.XLSX(lib)
	if err != nil {
		return err
	}
	return library.WriteFileAtomic(path, data)
}

func writeHeader(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	_ = f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
