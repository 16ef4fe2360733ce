package schedule

import "strings"

// Selection narrows a schedule view. Empty slices mean "no filter". Users
// never removes rows; it only marks matching cells for highlighting, since
// dropping a shared block would break the grid for everyone else in it.
type Selection struct {
	Years   []string
	Periods []string
	Weeks   []string
	Users   []string
}

// GridCell is one merged week cell of the rendered grid.
type GridCell struct {
	Text      string `json:"text"`
	Category  string `json:"category,omitempty"`
	Highlight bool   `json:"highlight,omitempty"`
}

// GridRow is one merged block. YearGroup is set only on the first block of
// each year group, matching the merged-cell presentation of the source
// spreadsheets.
type GridRow struct {
	YearGroup string     `json:"yearGroup"`
	Period    string     `json:"period"`
	Cells     []GridCell `json:"cells"`
}

// Grid is the filtered, block-merged schedule view.
type Grid struct {
	Columns  []string  `json:"columns"`
	NextWeek string    `json:"nextWeek,omitempty"`
	Rows     []GridRow `json:"rows"`
}

// NoPeriodsMarker is rendered for a block slot with nothing scheduled.
const NoPeriodsMarker = "No Periods Specified"

// Filter expands and merges the table into a Grid.
//
// Year and period filters select whole blocks: a match anywhere in a block
// keeps all of it, so the 3-row structure always travels as a unit. Week
// filters project columns, preserving the original column order.
func Filter(t *Table, sel Selection) (*Grid, error) {
	if err := validateSelection(t, sel); err != nil {
		return nil, err
	}

	weeks := t.Weeks()
	if len(sel.Weeks) > 0 {
		chosen := toSet(sel.Weeks)
		kept := weeks[:0]
		for _, w := range weeks {
			if chosen[w] {
				kept = append(kept, w)
			}
		}
		weeks = kept
	}

	years := toSet(sel.Years)
	periods := toSet(sel.Periods)
	users := toSet(sel.Users)

	g := &Grid{
		Columns: append([]string{colYearGroup, colPeriod}, weeks...),
	}

	prevYearGroup := ""
	for _, b := range t.Blocks() {
		if len(years) > 0 && !years[b.YearGroup] {
			continue
		}
		if len(periods) > 0 && !periods[b.Period] {
			continue
		}

		row := GridRow{
			Period: b.Period,
			Cells:  make([]GridCell, 0, len(weeks)),
		}
		if b.YearGroup != prevYearGroup {
			row.YearGroup = b.YearGroup
			prevYearGroup = b.YearGroup
		}

		for _, w := range weeks {
			slot := b.Slots[w]
			row.Cells = append(row.Cells, GridCell{
				Text:      mergeSlot(slot),
				Category:  slotCategory(slot),
				Highlight: len(users) > 0 && users[slot.Instructor],
			})
		}
		g.Rows = append(g.Rows, row)
	}

	return g, nil
}

// validateSelection rejects filter values that do not exist in the table.
func validateSelection(t *Table, sel Selection) error {
	checks := []struct {
		field  string
		values []string
		known  map[string]bool
	}{
		{"year group", sel.Years, toSet(t.YearGroups())},
		{"period", sel.Periods, toSet(t.Periods())},
		{"week", sel.Weeks, toSet(t.Weeks())},
	}
	for _, c := range checks {
		for _, v := range c.values {
			if !c.known[v] {
				return &UnknownSelectionError{Field: c.field, Value: v}
			}
		}
	}
	return nil
}

// mergeSlot collapses a block's three rows into one cell of display text.
func mergeSlot(s Slot) string {
	if s.Blank() {
		return NoPeriodsMarker
	}
	parts := make([]string, 0, 2)
	if s.Activity != "" {
		parts = append(parts, s.Activity)
	}
	if s.Location != "" {
		parts = append(parts, s.Location)
	}
	return strings.Join(parts, " ")
}

// slotCategory is the syllabus code prefix of the activity ("AVS", "DRL",
// ...), used by exporters to colour cells.
func slotCategory(s Slot) string {
	fields := strings.Fields(s.Activity)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
