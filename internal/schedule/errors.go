package schedule

import "fmt"

// MalformedScheduleError reports a structural violation in a training
// program CSV: missing required columns, an unparseable week date, or a
// body that does not divide into 3-row blocks.
type MalformedScheduleError struct {
	Reason string
}

func (e *MalformedScheduleError) Error() string {
	return fmt.Sprintf("malformed schedule: %s", e.Reason)
}

// NoUpcomingWeekError reports that every week in the schedule is in the
// past relative to the requested day.
type NoUpcomingWeekError struct {
	Today string
}

func (e *NoUpcomingWeekError) Error() string {
	return fmt.Sprintf("no upcoming week on or after %s", e.Today)
}

// UnknownSelectionError reports a filter value that does not exist in the
// table (a week column, year group or period the caller made up).
type UnknownSelectionError struct {
	Field string
	Value string
}

func (e *UnknownSelectionError) Error() string {
	return fmt.Sprintf("unknown %s selection: %q", e.Field, e.Value)
}
