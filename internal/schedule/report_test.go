package schedule

import (
	"errors"
	"strings"
	"testing"
)

func TestWeeklyReport_SingleBlock(t *testing.T) {
	t.Parallel()

	csv := `Year Group,Period,Week 1
,,01/01/2030
A,1,PT
,2,Gym
,3,SgtX
`
	table := mustParse(t, csv)
	report, err := WeeklyReport(table, day(t, "01/01/2025"))
	if err != nil {
		t.Fatalf("weekly report: %v", err)
	}

	want := []Line{
		{LevelHeading, "Week 1 - 01/01/2030"},
		{LevelHeading, "Dress: Not Specified"},
		{LevelSubheading, "A"},
		{LevelBody, "Period 1: PT - Gym with SgtX"},
	}
	if len(report.Lines) != len(want) {
		t.Fatalf("lines = %+v, want %+v", report.Lines, want)
	}
	for i := range want {
		if report.Lines[i] != want[i] {
			t.Fatalf("line %d = %+v, want %+v", i, report.Lines[i], want[i])
		}
	}
}

func TestWeeklyReport_Fixture(t *testing.T) {
	t.Parallel()

	table := mustParse(t, fixtureCSV)
	report, err := WeeklyReport(table, day(t, "02/01/2030"))
	if err != nil {
		t.Fatalf("weekly report: %v", err)
	}

	want := []Line{
		{LevelHeading, "Week 2 - 08/01/2030"},
		{LevelHeading, "Dress: Greens"},
		{LevelSubheading, "A"},
		{LevelBody, "Period 1: PHY Fitness - Gym with CplY"},
		{LevelBody, NoPeriodsMarker},
		{LevelSubheading, "B"},
		{LevelBody, "Period 1: OPS Briefing - HQ with SgtX"},
		{LevelBody, NoPeriodsMarker},
	}
	if len(report.Lines) != len(want) {
		t.Fatalf("lines:\n%+v\nwant:\n%+v", report.Lines, want)
	}
	for i := range want {
		if report.Lines[i] != want[i] {
			t.Fatalf("line %d = %+v, want %+v", i, report.Lines[i], want[i])
		}
	}
}

func TestWeeklyReport_CollapsesEmptyPeriodRuns(t *testing.T) {
	t.Parallel()

	csv := `Year Group,Period,Week 1
,,01/01/2030
A,1,,
,,,
,,,
,2,,
,,,
,,,
`
	table := mustParse(t, csv)
	report, err := WeeklyReport(table, day(t, "01/01/2025"))
	if err != nil {
		t.Fatalf("weekly report: %v", err)
	}

	count := 0
	for _, line := range report.Lines {
		if line.Text == NoPeriodsMarker {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("marker emitted %d times, want once", count)
	}
}

func TestWeeklyReport_AllWeeksPast(t *testing.T) {
	t.Parallel()

	table := mustParse(t, fixtureCSV)
	_, err := WeeklyReport(table, day(t, "01/01/2031"))
	var nerr *NoUpcomingWeekError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected NoUpcomingWeekError, got %v", err)
	}
}

func TestWeeklyReport_PartialFieldsNotSpecified(t *testing.T) {
	t.Parallel()

	csv := `Year Group,Period,Week 1
,,01/01/2030
A,1,PT
,2,
,3,
`
	table := mustParse(t, csv)
	report, err := WeeklyReport(table, day(t, "01/01/2025"))
	if err != nil {
		t.Fatalf("weekly report: %v", err)
	}
	got := report.Lines[len(report.Lines)-1].Text
	if got != "Period 1: PT - Not Specified with Not Specified" {
		t.Fatalf("body = %q", got)
	}
}

func TestReport_RenderingsShareContent(t *testing.T) {
	t.Parallel()

	table := mustParse(t, fixtureCSV)
	report, err := WeeklyReport(table, day(t, "01/01/2025"))
	if err != nil {
		t.Fatalf("weekly report: %v", err)
	}

	plain := report.Plain()
	markdown := report.Markdown()

	if strings.Contains(plain, "#") || strings.Contains(plain, "**") {
		t.Fatalf("plain rendering contains markers:\n%s", plain)
	}
	if !strings.HasPrefix(markdown, "# Weekly Report") {
		t.Fatalf("markdown missing title:\n%s", markdown)
	}

	// Every report line's text must appear in both renderings.
	for _, line := range report.Lines {
		if !strings.Contains(plain, line.Text) {
			t.Fatalf("plain rendering missing %q", line.Text)
		}
		stripped := strings.ReplaceAll(strings.ReplaceAll(markdown, "**", ""), "#", "")
		if !strings.Contains(stripped, line.Text) {
			t.Fatalf("markdown rendering missing %q", line.Text)
		}
	}
}
