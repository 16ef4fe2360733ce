package schedule

import (
	"fmt"
	"strings"
	"time"
)

// LineLevel tags a report line for rendering.
type LineLevel int

const (
	LevelHeading LineLevel = iota
	LevelSubheading
	LevelBody
)

// Line is one tagged line of a weekly report.
type Line struct {
	Level LineLevel `json:"level"`
	Text  string    `json:"text"`
}

// Report is a weekly report built once from the schedule. The two renderings
// (Plain and Markdown) are pure projections of the same line sequence, so
// they can never drift apart.
type Report struct {
	Week  string    `json:"week"`
	Date  time.Time `json:"date"`
	Lines []Line    `json:"lines"`
}

const notSpecified = "Not Specified"

// WeeklyReport builds the report for the next applicable week: the heading,
// the dress of the day, then each year group's periods in table order.
func WeeklyReport(t *Table, today time.Time) (*Report, error) {
	date, week, ok := t.NextDate(today)
	if !ok {
		return nil, &NoUpcomingWeekError{Today: today.Format(DateLayout)}
	}

	r := &Report{Week: week, Date: date}
	r.add(LevelHeading, fmt.Sprintf("%s - %s", week, date.Format(DateLayout)))

	dress := t.Dress(week)
	if dress == "" {
		dress = notSpecified
	}
	r.add(LevelHeading, "Dress: "+dress)

	for _, yearGroup := range t.YearGroups() {
		r.add(LevelSubheading, yearGroup)
		for _, b := range t.Blocks() {
			if b.YearGroup != yearGroup {
				continue
			}
			slot := b.Slots[week]
			if slot.Blank() {
				// One marker per run of empty periods, not one per field.
				if last := r.lastLine(); last == nil || last.Text != NoPeriodsMarker {
					r.add(LevelBody, NoPeriodsMarker)
				}
				continue
			}
			r.add(LevelBody, fmt.Sprintf("Period %d: %s - %s with %s",
				b.Index+1,
				orNotSpecified(slot.Activity),
				orNotSpecified(slot.Location),
				orNotSpecified(slot.Instructor)))
		}
	}

	return r, nil
}

func (r *Report) add(level LineLevel, text string) {
	r.Lines = append(r.Lines, Line{Level: level, Text: text})
}

func (r *Report) lastLine() *Line {
	if len(r.Lines) == 0 {
		return nil
	}
	return &r.Lines[len(r.Lines)-1]
}

// Plain renders the report as unmarked text for pasting into chat.
func (r *Report) Plain() string {
	var sb strings.Builder
	sb.WriteString("Weekly Report")
	for _, line := range r.Lines {
		sb.WriteByte('\n')
		if line.Level == LevelSubheading {
			sb.WriteByte('\n')
		}
		sb.WriteString(line.Text)
	}
	return sb.String()
}

// Markdown renders the report with heading markers kept.
func (r *Report) Markdown() string {
	var sb strings.Builder
	sb.WriteString("# Weekly Report")
	for _, line := range r.Lines {
		sb.WriteByte('\n')
		switch line.Level {
		case LevelHeading:
			sb.WriteString("## " + line.Text)
		case LevelSubheading:
			sb.WriteString("\n### " + line.Text)
		default:
			sb.WriteString(emphasizePeriod(line.Text))
		}
	}
	return sb.String()
}

// emphasizePeriod bolds the "Period n:" prefix of a body line.
func emphasizePeriod(text string) string {
	if i := strings.Index(text, ":"); i > 0 && strings.HasPrefix(text, "Period ") {
		return "**" + text[:i+1] + "**" + text[i+1:]
	}
	return text
}

func orNotSpecified(s string) string {
	if s == "" {
		return notSpecified
	}
	return s
}
