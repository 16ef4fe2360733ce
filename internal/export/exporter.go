// Package export renders schedule grids to spreadsheets and converts
// uploaded workbooks into the portal's CSV layout.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/thehamish555/49SQN-Automation/internal/schedule"
)

// categoryColors are the unit's syllabus stream colours, keyed by the
// activity's code prefix.
var categoryColors = map[string]string{
	"AVS": "#7adbff",
	"DRL": "#ffd7ff",
	"ETH": "#ffffcc",
	"EXP": "#ddebf7",
	"FAS": "#d5c4b9",
	"FLD": "#b8caa0",
	"LDR": "#ffc78f",
	"MED": "#fda69d",
	"NAV": "#fbe5fc",
	"OPS": "#90cbfc",
	"PHY": "#c9fbfa",
	"PMT": "#b7d2b4",
	"RCD": "#ffffff",
	"SAL": "#d8d8d8",
	"SEA": "#002060",
}

const (
	otherColor     = "#949494"
	highlightColor = "#ff4500"
	nextWeekColor  = "#e2e8f0"
)

// CategoryColor returns the fill colour for an activity category, falling
// back to the neutral colour for unknown streams.
func CategoryColor(category string) string {
	if c, ok := categoryColors[category]; ok {
		return c
	}
	return otherColor
}

// Exporter writes schedule grids to xlsx workbooks.
type Exporter struct{}

// NewExporter creates an exporter.
func NewExporter() *Exporter {
	return &Exporter{}
}

// Export renders a filtered grid to a single-sheet workbook. Cells are
// coloured by syllabus stream, instructor highlights override the stream
// colour, and the next applicable week's header is accented.
func (e *Exporter) Export(grid *schedule.Grid, title string) (*excelize.File, error) {
	f := excelize.NewFile()

	sheet := "Training Program"
	f.SetSheetName("Sheet1", sheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, col := range grid.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, col)
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return nil, fmt.Errorf("apply header style: %w", err)
	}

	if grid.NextWeek != "" {
		if err := e.accentNextWeek(f, sheet, grid); err != nil {
			return nil, err
		}
	}

	for i, row := range grid.Rows {
		rowNo := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", rowNo), row.YearGroup)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", rowNo), row.Period)

		for j, cell := range row.Cells {
			name, _ := excelize.CoordinatesToCellName(j+3, rowNo)
			f.SetCellValue(sheet, name, cell.Text)

			color := CategoryColor(cell.Category)
			if cell.Highlight {
				color = highlightColor
			}
			style, err := f.NewStyle(&excelize.Style{
				Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			})
			if err != nil {
				return nil, fmt.Errorf("cell style: %w", err)
			}
			if err := f.SetCellStyle(sheet, name, name, style); err != nil {
				return nil, fmt.Errorf("apply cell style: %w", err)
			}
		}
	}

	f.SetColWidth(sheet, "A", "B", 14)
	if len(grid.Columns) > 2 {
		last, _ := excelize.ColumnNumberToName(len(grid.Columns))
		f.SetColWidth(sheet, "C", last, 28)
	}

	if title != "" {
		if err := f.SetDocProps(&excelize.DocProperties{Title: title}); err != nil {
			return nil, fmt.Errorf("doc props: %w", err)
		}
	}
	return f, nil
}

func (e *Exporter) accentNextWeek(f *excelize.File, sheet string, grid *schedule.Grid) error {
	for i, col := range grid.Columns {
		if col != grid.NextWeek {
			continue
		}
		name, _ := excelize.CoordinatesToCellName(i+1, 1)
		style, err := f.NewStyle(&excelize.Style{
			Font:      &excelize.Font{Bold: true},
			Fill:      excelize.Fill{Type: "pattern", Color: []string{nextWeekColor}, Pattern: 1},
			Border:    []excelize.Border{{Type: "bottom", Color: "000000", Style: 2}},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		})
		if err != nil {
			return fmt.Errorf("next-week style: %w", err)
		}
		if err := f.SetCellStyle(sheet, name, name, style); err != nil {
			return fmt.Errorf("apply next-week style: %w", err)
		}
	}
	return nil
}
