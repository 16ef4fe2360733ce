package api

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestGetSchedule_Grid(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	w := a.do(http.MethodGet, "/api/schedule?today=01/01/2030", a.cadetToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("schedule = %d: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["program"] != "2030: Term 1" {
		t.Fatalf("program = %v", body["program"])
	}
	grid, _ := body["grid"].(map[string]any)
	if grid == nil {
		t.Fatalf("missing grid: %v", body)
	}
	if grid["nextWeek"] != "Week 1" {
		t.Fatalf("nextWeek = %v", grid["nextWeek"])
	}
	rows, _ := grid["rows"].([]any)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
}

func TestGetSchedule_Selection(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)

	w := a.do(http.MethodGet, "/api/schedule?weeks=Week+2&users=SgtX", a.cadetToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("schedule = %d: %s", w.Code, w.Body.String())
	}
	grid := decodeBody(t, w)["grid"].(map[string]any)
	cols, _ := grid["columns"].([]any)
	if len(cols) != 3 || cols[2] != "Week 2" {
		t.Fatalf("columns = %v", cols)
	}

	// Unknown selection values are a client error.
	w = a.do(http.MethodGet, "/api/schedule?years=Z", a.cadetToken, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown year = %d: %s", w.Code, w.Body.String())
	}
}

func TestGetSchedule_NoActivePrograms(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	programs, err := a.store.ListPrograms()
	if err != nil {
		t.Fatalf("list programs: %v", err)
	}
	for _, p := range programs {
		if err := a.store.SetProgramActive(p.ID, false); err != nil {
			t.Fatalf("deactivate: %v", err)
		}
	}

	w := a.do(http.MethodGet, "/api/schedule", a.cadetToken, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("schedule = %d: %s", w.Code, w.Body.String())
	}
	if body := decodeBody(t, w); body["error"] != "No active training programs available" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestGetWeeklyReport_Formats(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)

	w := a.do(http.MethodGet, "/api/schedule/report?today=02/01/2030", a.cadetToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("report = %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["week"] != "Week 2" {
		t.Fatalf("week = %v", body["week"])
	}
	report, _ := body["report"].(string)
	if !strings.Contains(report, "Dress: Greens") || !strings.Contains(report, "Period 1: DRL 1 - Marching") {
		t.Fatalf("plain report:\n%s", report)
	}
	if strings.Contains(report, "#") {
		t.Fatalf("plain report carries markdown:\n%s", report)
	}

	w = a.do(http.MethodGet, "/api/schedule/report?today=02/01/2030&format=markdown", a.cadetToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("markdown report = %d", w.Code)
	}
	if report, _ = decodeBody(t, w)["report"].(string); !strings.Contains(report, "# Weekly Report") {
		t.Fatalf("markdown report:\n%s", report)
	}

	if w = a.do(http.MethodGet, "/api/schedule/report?format=pdf", a.cadetToken, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown format = %d", w.Code)
	}

	// Every week in the past: nothing to report on.
	if w = a.do(http.MethodGet, "/api/schedule/report?today=01/01/2031", a.cadetToken, nil); w.Code != http.StatusNotFound {
		t.Fatalf("all weeks past = %d: %s", w.Code, w.Body.String())
	}
}

func TestGetUpcoming_DefaultsToCaller(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	w := a.do(http.MethodGet, "/api/schedule/upcoming?today=01/01/2030", a.cadetToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("upcoming = %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["user"] != "SgtX" {
		t.Fatalf("user = %v", body["user"])
	}
	buckets, _ := body["upcoming"].([]any)
	if len(buckets) != 2 {
		t.Fatalf("buckets = %d, want 2", len(buckets))
	}
}

func TestExportSchedule_DownloadOnce(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	w := a.do(http.MethodGet, "/api/schedule/export?today=01/01/2030", a.cadetToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export = %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["fileName"] != "2030_1.xlsx" {
		t.Fatalf("fileName = %v", body["fileName"])
	}
	dlURL, _ := body["url"].(string)

	// The token works once, without auth headers.
	w = a.do(http.MethodGet, dlURL, "", nil)
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("download = %d len=%d", w.Code, w.Body.Len())
	}
	if w = a.do(http.MethodGet, dlURL, "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("second download = %d", w.Code)
	}

	// The rendered workbook is cleaned up once redeemed.
	entries, err := os.ReadDir(filepath.Join(a.dataDir, "exports"))
	if err != nil {
		t.Fatalf("read exports dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("exports dir not cleaned: %d files", len(entries))
	}
}

func TestUploadProgram(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)

	w := a.upload("/api/programs", a.adminToken, nil, "file", "2031_2.csv", []byte(fixtureCSV))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d: %s", w.Code, w.Body.String())
	}
	program, _ := decodeBody(t, w)["program"].(map[string]any)
	if program["name"] != "2031: Term 2" {
		t.Fatalf("name = %v", program["name"])
	}

	// The new program is selectable by name.
	q := url.Values{"program": {"2031: Term 2"}, "today": {"01/01/2030"}}
	if w = a.do(http.MethodGet, "/api/schedule?"+q.Encode(), a.cadetToken, nil); w.Code != http.StatusOK {
		t.Fatalf("schedule for upload = %d: %s", w.Code, w.Body.String())
	}

	// Malformed tables never reach the registry.
	bad := "Year Group,Period,Week 1\n,,01/01/2030\nA,1,only\n,,two rows\n"
	if w = a.upload("/api/programs", a.adminToken, nil, "file", "2031_3.csv", []byte(bad)); w.Code != http.StatusBadRequest {
		t.Fatalf("malformed upload = %d: %s", w.Code, w.Body.String())
	}

	// Cadets cannot manage programs.
	if w = a.upload("/api/programs", a.cadetToken, nil, "file", "2031_4.csv", []byte(fixtureCSV)); w.Code != http.StatusForbidden {
		t.Fatalf("cadet upload = %d", w.Code)
	}
}

func TestUpdateProgram_PinAndDefault(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	older := a.seedProgram("2029: Term 4", "2029_4.csv", fixtureCSV)

	// Without a pin the most recent active program wins.
	w := a.do(http.MethodGet, "/api/schedule", a.cadetToken, nil)
	if w.Code != http.StatusOK || decodeBody(t, w)["program"] != "2030: Term 1" {
		t.Fatalf("default program: %d %s", w.Code, w.Body.String())
	}

	w = a.do(http.MethodPatch, "/api/programs/"+older.ID, a.adminToken, gin.H{"pinned": true})
	if w.Code != http.StatusOK {
		t.Fatalf("pin = %d: %s", w.Code, w.Body.String())
	}
	w = a.do(http.MethodGet, "/api/schedule", a.cadetToken, nil)
	if w.Code != http.StatusOK || decodeBody(t, w)["program"] != "2029: Term 4" {
		t.Fatalf("pinned program: %d %s", w.Code, w.Body.String())
	}

	// Deleting the pinned program clears the pin.
	if w = a.do(http.MethodDelete, "/api/programs/"+older.ID, a.adminToken, nil); w.Code != http.StatusOK {
		t.Fatalf("delete = %d: %s", w.Code, w.Body.String())
	}
	w = a.do(http.MethodGet, "/api/schedule", a.cadetToken, nil)
	if w.Code != http.StatusOK || decodeBody(t, w)["program"] != "2030: Term 1" {
		t.Fatalf("after unpin: %d %s", w.Code, w.Body.String())
	}
}

func TestLessonPlans_Flow(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	const key = "Year 1 Aviation - AVS 1 - Airframes"

	w := a.upload("/api/lesson-plans", a.adminToken,
		map[string]string{"name": "AVS 1 - Airframes", "syllabusKey": key},
		"file", "avs1.pdf", []byte("%PDF-1.4 fake"))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d: %s", w.Code, w.Body.String())
	}
	plan, _ := decodeBody(t, w)["lessonPlan"].(map[string]any)
	planID, _ := plan["id"].(string)

	// Unknown syllabus keys are rejected.
	w = a.upload("/api/lesson-plans", a.adminToken,
		map[string]string{"name": "Bogus", "syllabusKey": "No Such Lesson"},
		"file", "bogus.pdf", []byte("%PDF-1.4 fake"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad key upload = %d", w.Code)
	}

	w = a.do(http.MethodGet, "/api/lesson-plans?search=avs", a.cadetToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d: %s", w.Code, w.Body.String())
	}
	if body := decodeBody(t, w); body["total"].(float64) != 1 {
		t.Fatalf("total = %v", body["total"])
	}

	// Download through a single-use token.
	w = a.do(http.MethodPost, "/api/lesson-plans/"+planID+"/token", a.cadetToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("token = %d: %s", w.Code, w.Body.String())
	}
	dlURL, _ := decodeBody(t, w)["url"].(string)
	if w = a.do(http.MethodGet, dlURL, "", nil); w.Code != http.StatusOK {
		t.Fatalf("download = %d", w.Code)
	}

	// Link a schedule activity to the syllabus and resolve it.
	w = a.do(http.MethodPut, "/api/lesson-links", a.adminToken,
		gin.H{"activity": "AVS 1 - Airframes", "syllabusKey": key})
	if w.Code != http.StatusOK {
		t.Fatalf("link = %d: %s", w.Code, w.Body.String())
	}
	w = a.do(http.MethodGet, "/api/lesson-links/resolve?activity="+url.QueryEscape("AVS 1 - Airframes"), a.cadetToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("resolve = %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["linked"] != true || body["syllabusKey"] != key {
		t.Fatalf("resolve body = %v", body)
	}
	plans, _ := body["lessonPlans"].([]any)
	if len(plans) != 1 {
		t.Fatalf("lessonPlans = %v", plans)
	}

	if w = a.do(http.MethodDelete, "/api/lesson-plans/"+planID, a.adminToken, nil); w.Code != http.StatusOK {
		t.Fatalf("delete = %d: %s", w.Code, w.Body.String())
	}
}

func TestManuals_Flow(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)

	w := a.upload("/api/manuals", a.adminToken,
		map[string]string{"name": "Drill Manual"},
		"file", "drill.pdf", []byte("%PDF-1.4 fake"))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d: %s", w.Code, w.Body.String())
	}
	manual, _ := decodeBody(t, w)["manual"].(map[string]any)
	manualID, _ := manual["id"].(string)

	// Cadets may read manuals but not manage them.
	w = a.upload("/api/manuals", a.cadetToken,
		map[string]string{"name": "Hax"},
		"file", "hax.pdf", []byte("%PDF-1.4 fake"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("cadet upload = %d", w.Code)
	}

	w = a.do(http.MethodGet, "/api/manuals?search=drill", a.cadetToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d: %s", w.Code, w.Body.String())
	}
	if body := decodeBody(t, w); body["total"].(float64) != 1 {
		t.Fatalf("total = %v", body["total"])
	}

	// Tokens are single use, but the manual itself stays on disk, so a
	// fresh token downloads it again.
	for i := 0; i < 2; i++ {
		w = a.do(http.MethodPost, "/api/manuals/"+manualID+"/token", a.cadetToken, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("token %d = %d: %s", i, w.Code, w.Body.String())
		}
		dlURL, _ := decodeBody(t, w)["url"].(string)
		if w = a.do(http.MethodGet, dlURL, "", nil); w.Code != http.StatusOK {
			t.Fatalf("download %d = %d", i, w.Code)
		}
	}

	if w = a.do(http.MethodDelete, "/api/manuals/"+manualID, a.adminToken, nil); w.Code != http.StatusOK {
		t.Fatalf("delete = %d: %s", w.Code, w.Body.String())
	}
	if w = a.do(http.MethodGet, "/api/manuals", a.cadetToken, nil); decodeBody(t, w)["total"].(float64) != 0 {
		t.Fatalf("manual survived delete")
	}
}

func TestGetSyllabus(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	w := a.do(http.MethodGet, "/api/syllabus", a.cadetToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("syllabus = %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["count"].(float64) != 2 {
		t.Fatalf("count = %v", body["count"])
	}
}
