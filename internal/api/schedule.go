package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thehamish555/49SQN-Automation/internal/auth"
	"github.com/thehamish555/49SQN-Automation/internal/schedule"
	"github.com/thehamish555/49SQN-Automation/internal/store"
)

// resolveProgram picks the training program a schedule request refers to:
// the ?program= name when given, else the pinned program, else the most
// recent active one.
func (h *Handler) resolveProgram(c *gin.Context) (*store.Program, bool) {
	if name := c.Query("program"); name != "" {
		program, err := h.store.GetProgramByName(name)
		if err != nil {
			if errors.Is(err, store.ErrProgramNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("training program %q not found", name)})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return nil, false
		}
		return program, true
	}

	if pinned, err := h.store.GetSetting(pinnedProgramKey); err == nil && pinned != "" {
		program, err := h.store.GetProgramByName(pinned)
		if err == nil {
			return program, true
		}
	}

	programs, err := h.store.ListPrograms()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	def, err := store.DefaultProgram(programs)
	if err != nil {
		var empty *store.EmptyActiveProgramSetError
		if errors.As(err, &empty) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No active training programs available"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return nil, false
	}
	return &def, true
}

// loadTable reads and parses a program's table. Parsing is memoized on the
// file's content fingerprint.
func (h *Handler) loadTable(c *gin.Context, program *store.Program) (*schedule.Table, bool) {
	data, err := os.ReadFile(h.programPath(program.FileName))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("read training program %q: %v", program.Name, err)})
		return nil, false
	}
	table, err := h.tables.Parse(data)
	if err != nil {
		// The file was validated on upload; failing here means it was
		// replaced or corrupted on disk.
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return table, true
}

// requestToday returns the reference day for next-week resolution. The
// ?today= override exists for previewing past or future weeks.
func requestToday(c *gin.Context) (time.Time, error) {
	raw := c.Query("today")
	if raw == "" {
		return time.Now(), nil
	}
	day, err := time.Parse(schedule.DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("today must be in DD/MM/YYYY form")
	}
	return day, nil
}

func listParam(c *gin.Context, name string) []string {
	var out []string
	for _, raw := range c.QueryArray(name) {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func selectionFromQuery(c *gin.Context) schedule.Selection {
	return schedule.Selection{
		Years:   listParam(c, "years"),
		Periods: listParam(c, "periods"),
		Weeks:   listParam(c, "weeks"),
		Users:   listParam(c, "users"),
	}
}

// GetSchedule returns the filtered grid for a training program.
func (h *Handler) GetSchedule(c *gin.Context) {
	program, ok := h.resolveProgram(c)
	if !ok {
		return
	}
	table, ok := h.loadTable(c, program)
	if !ok {
		return
	}
	today, err := requestToday(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	grid, err := schedule.Filter(table, selectionFromQuery(c))
	if err != nil {
		var unknown *schedule.UnknownSelectionError
		if errors.As(err, &unknown) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Mark the next applicable week when it survived the week projection.
	if _, week, ok := table.NextDate(today); ok {
		for _, col := range grid.Columns {
			if col == week {
				grid.NextWeek = week
				break
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"program":    program.Name,
		"yearGroups": table.YearGroups(),
		"periods":    table.Periods(),
		"grid":       grid,
	})
}

// GetWeeklyReport renders the next applicable week as a tagged report, in
// plain or markdown form.
func (h *Handler) GetWeeklyReport(c *gin.Context) {
	program, ok := h.resolveProgram(c)
	if !ok {
		return
	}
	table, ok := h.loadTable(c, program)
	if !ok {
		return
	}
	today, err := requestToday(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := schedule.WeeklyReport(table, today)
	if err != nil {
		var noWeek *schedule.NoUpcomingWeekError
		if errors.As(err, &noWeek) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	switch format := c.DefaultQuery("format", "plain"); format {
	case "plain":
		c.JSON(http.StatusOK, gin.H{"program": program.Name, "week": report.Week, "date": report.Date, "report": report.Plain()})
	case "markdown":
		c.JSON(http.StatusOK, gin.H{"program": program.Name, "week": report.Week, "date": report.Date, "report": report.Markdown()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown report format %q", format)})
	}
}

// GetUpcoming lists a user's upcoming instructing assignments, grouped by
// date.
func (h *Handler) GetUpcoming(c *gin.Context) {
	name := c.Query("user")
	if name == "" {
		if u := h.currentUser(c); u != nil {
			name = u.Name
		}
	}
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user is required"})
		return
	}

	program, ok := h.resolveProgram(c)
	if !ok {
		return
	}
	table, ok := h.loadTable(c, program)
	if !ok {
		return
	}
	today, err := requestToday(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	buckets := schedule.UpcomingForUser(table, name, today)
	c.JSON(http.StatusOK, gin.H{"program": program.Name, "user": name, "upcoming": buckets})
}

// ExportSchedule renders the filtered grid to an xlsx workbook and returns
// a single-use download token for it.
func (h *Handler) ExportSchedule(c *gin.Context) {
	program, ok := h.resolveProgram(c)
	if !ok {
		return
	}
	table, ok := h.loadTable(c, program)
	if !ok {
		return
	}
	today, err := requestToday(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	grid, err := schedule.Filter(table, selectionFromQuery(c))
	if err != nil {
		var unknown *schedule.UnknownSelectionError
		if errors.As(err, &unknown) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if _, week, ok := table.NextDate(today); ok {
		grid.NextWeek = week
	}

	f, err := h.exporter.Export(grid, program.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	fileName := store.ProgramFileStem(program.Name) + ".xlsx"
	path := filepath.Join(h.dataDir, "exports", auth.NewRandomToken(9)+".xlsx")
	if err := f.SaveAs(path); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	token := h.downloads.Put(path, fileName,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", true)
	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"url":      "/api/download/" + token,
		"fileName": fileName,
	})
}

// Download serves a previously issued single-use token.
func (h *Handler) Download(c *gin.Context) {
	d, ok := h.downloads.Take(c.Param("token"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "download expired"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", d.Name))
	c.Header("Content-Type", d.ContentType)
	c.File(d.Path)
	if d.Transient {
		_ = os.Remove(d.Path)
	}
}
