package schedule

import (
	"sort"
	"time"
)

// UpcomingEntry is one lesson assigned to an instructor in an upcoming week.
type UpcomingEntry struct {
	Week        string `json:"week"`
	YearGroup   string `json:"yearGroup"`
	Period      string `json:"period"`
	PeriodIndex int    `json:"periodIndex"`
	Activity    string `json:"activity"`
	Location    string `json:"location"`
}

// DateBucket groups an instructor's upcoming lessons under one week date.
type DateBucket struct {
	Date    time.Time       `json:"date"`
	Label   string          `json:"label"`
	Entries []UpcomingEntry `json:"entries"`
}

// UpcomingForUser extracts every lesson on or after today whose instructor
// field equals name exactly (the stored display name, not the email).
// Buckets are ordered by calendar date ascending; entries keep block order.
// Weeks with no matches are omitted.
func UpcomingForUser(t *Table, name string, today time.Time) []DateBucket {
	today = truncateToDay(today)

	var buckets []DateBucket
	for _, week := range t.weekCols {
		date, ok := t.dates[week]
		if !ok || date.Before(today) {
			continue
		}

		var entries []UpcomingEntry
		for _, b := range t.Blocks() {
			slot := b.Slots[week]
			if slot.Instructor != name {
				continue
			}
			entries = append(entries, UpcomingEntry{
				Week:        week,
				YearGroup:   b.YearGroup,
				Period:      b.Period,
				PeriodIndex: b.Index,
				Activity:    slot.Activity,
				Location:    slot.Location,
			})
		}
		if len(entries) == 0 {
			continue
		}
		buckets = append(buckets, DateBucket{
			Date:    date,
			Label:   date.Format(DateLayout),
			Entries: entries,
		})
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Date.Before(buckets[j].Date)
	})
	return buckets
}
