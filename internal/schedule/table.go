package schedule

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
)

// DateLayout is the calendar format used throughout the training program
// tables (New Zealand day-first dates).
const DateLayout = "02/01/2006"

// BlockSize is the number of consecutive rows that make up one
// (year group, period) slot: activity, location, instructor.
const BlockSize = 3

const (
	colYearGroup = "Year Group"
	colPeriod    = "Period"
)

// Slot is one week's entry for a block: what is taught, where, and by whom.
// Empty fields mean the slot is unscheduled.
type Slot struct {
	Activity   string
	Location   string
	Instructor string
}

// Blank reports whether nothing at all is scheduled in the slot.
func (s Slot) Blank() bool {
	return s.Activity == "" && s.Location == "" && s.Instructor == ""
}

// Block is one (year group, period) row-group of the schedule with its
// per-week slots. Index is the block's ordinal within its year group.
type Block struct {
	YearGroup string
	Period    string
	Index     int
	Slots     map[string]Slot
}

// Table is the structured form of a training program CSV. It is built once
// by Parse and never mutated afterwards, so it is safe to share between
// concurrent requests.
type Table struct {
	weekCols []string
	dates    map[string]time.Time
	dress    map[string]string
	blocks   []Block
}

// Parse reads a training program CSV into a Table.
//
// Layout: a header row (Year Group, Period, then one column per week), a
// date row mapping each week column to a DD/MM/YYYY date, an optional dress
// row, then 3-row blocks of activity/location/instructor per
// (year group, period). Year Group is stamped only on the first row of each
// group in the source and is forward-filled here.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, &MalformedScheduleError{Reason: fmt.Sprintf("invalid CSV: %v", err)}
	}
	if len(records) < 2 {
		return nil, &MalformedScheduleError{Reason: "missing header or date row"}
	}

	header := records[0]
	if len(header) < 3 || normalizeCell(header[0]) != colYearGroup || normalizeCell(header[1]) != colPeriod {
		return nil, &MalformedScheduleError{
			Reason: fmt.Sprintf("header must start with %q, %q and at least one week column", colYearGroup, colPeriod),
		}
	}

	weekCols := make([]string, 0, len(header)-2)
	for _, h := range header[2:] {
		weekCols = append(weekCols, normalizeCell(h))
	}

	data := records[1:]

	t := &Table{
		weekCols: weekCols,
		dates:    make(map[string]time.Time, len(weekCols)),
		dress:    make(map[string]string, len(weekCols)),
	}

	// Date row.
	dateRow := data[0]
	for i, week := range weekCols {
		raw := normalizeCell(cellAt(dateRow, i+2))
		if raw == "" {
			continue
		}
		date, err := time.Parse(DateLayout, raw)
		if err != nil {
			return nil, &MalformedScheduleError{
				Reason: fmt.Sprintf("week column %q has unparseable date %q", week, raw),
			}
		}
		t.dates[week] = date
	}

	// An optional dress row sits between the date row and the blocks. It is
	// the only body row with neither a year group nor a period: the first
	// row of every block carries at least one of the two.
	body := data[1:]
	if len(body) > 0 && isDressRow(body[0]) {
		for i, week := range weekCols {
			t.dress[week] = normalizeCell(cellAt(body[0], i+2))
		}
		body = body[1:]
	}
	if len(body)%BlockSize != 0 {
		return nil, &MalformedScheduleError{
			Reason: fmt.Sprintf("%d rows below the date row do not divide into blocks of %d", len(body), BlockSize),
		}
	}

	t.blocks = buildBlocks(body, weekCols)
	return t, nil
}

// buildBlocks groups the body rows into 3-row blocks, forward-filling the
// sparse Year Group column in a single left-to-right scan.
func buildBlocks(body [][]string, weekCols []string) []Block {
	blocks := make([]Block, 0, len(body)/BlockSize)

	yearGroup := ""
	indexInGroup := 0
	for start := 0; start+BlockSize <= len(body); start += BlockSize {
		rows := body[start : start+BlockSize]

		if yg := firstNonEmpty(rows, 0); yg != "" && yg != yearGroup {
			yearGroup = yg
			indexInGroup = 0
		}

		b := Block{
			YearGroup: yearGroup,
			Period:    firstNonEmpty(rows, 1),
			Index:     indexInGroup,
			Slots:     make(map[string]Slot, len(weekCols)),
		}
		for i, week := range weekCols {
			b.Slots[week] = Slot{
				Activity:   normalizeCell(cellAt(rows[0], i+2)),
				Location:   normalizeCell(cellAt(rows[1], i+2)),
				Instructor: normalizeCell(cellAt(rows[2], i+2)),
			}
		}
		blocks = append(blocks, b)
		indexInGroup++
	}
	return blocks
}

// NextDate resolves the next applicable week: the earliest date-row date on
// or after today, ties broken by column order. ok is false when the whole
// schedule is in the past.
func (t *Table) NextDate(today time.Time) (date time.Time, week string, ok bool) {
	today = truncateToDay(today)
	for _, w := range t.weekCols {
		d, has := t.dates[w]
		if !has || d.Before(today) {
			continue
		}
		if !ok || d.Before(date) {
			date, week, ok = d, w, true
		}
	}
	return date, week, ok
}

// Weeks returns the week column labels in table order.
func (t *Table) Weeks() []string {
	out := make([]string, len(t.weekCols))
	copy(out, t.weekCols)
	return out
}

// Date returns the calendar date of a week column.
func (t *Table) Date(week string) (time.Time, bool) {
	d, ok := t.dates[week]
	return d, ok
}

// Dress returns the dress/uniform entry for a week column, or "" when the
// dress row is absent or blank for that week.
func (t *Table) Dress(week string) string {
	return t.dress[week]
}

// Blocks returns the schedule blocks in table order.
func (t *Table) Blocks() []Block {
	return t.blocks
}

// YearGroups returns the distinct year groups in first-seen order.
func (t *Table) YearGroups() []string {
	var out []string
	seen := make(map[string]bool)
	for _, b := range t.blocks {
		if b.YearGroup != "" && !seen[b.YearGroup] {
			seen[b.YearGroup] = true
			out = append(out, b.YearGroup)
		}
	}
	return out
}

// Periods returns the distinct period labels in first-seen order.
func (t *Table) Periods() []string {
	var out []string
	seen := make(map[string]bool)
	for _, b := range t.blocks {
		if b.Period != "" && !seen[b.Period] {
			seen[b.Period] = true
			out = append(out, b.Period)
		}
	}
	return out
}

// normalizeCell trims a raw cell and collapses the NaN sentinels that
// spreadsheet round-trips leave behind, so "nan" never reaches rendered
// output.
func normalizeCell(s string) string {
	s = strings.TrimSpace(s)
	if s == "nan" || s == "NaN" {
		return ""
	}
	return s
}

func isDressRow(row []string) bool {
	return normalizeCell(cellAt(row, 0)) == "" && normalizeCell(cellAt(row, 1)) == ""
}

func cellAt(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}

func firstNonEmpty(rows [][]string, col int) string {
	for _, row := range rows {
		if v := normalizeCell(cellAt(row, col)); v != "" {
			return v
		}
	}
	return ""
}

// truncateToDay drops the time-of-day component. Parsed schedule dates are
// UTC midnights, so comparisons happen in UTC as well.
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
