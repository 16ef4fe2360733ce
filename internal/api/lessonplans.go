package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/thehamish555/49SQN-Automation/internal/store"
)

const lessonPlanPageSize = 10

// ListLessonPlans searches the lesson plan index with pagination.
func (h *Handler) ListLessonPlans(c *gin.Context) {
	term := c.Query("search")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	if page < 0 {
		page = 0
	}

	plans, total, err := h.store.SearchLessonPlans(term, page*lessonPlanPageSize, lessonPlanPageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"lessonPlans": plans,
		"total":       total,
		"page":        page,
		"pageSize":    lessonPlanPageSize,
	})
}

// UploadLessonPlan stores a lesson plan PDF and indexes it, optionally
// tying it to a syllabus lesson.
func (h *Handler) UploadLessonPlan(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	syllabusKey := strings.TrimSpace(c.PostForm("syllabusKey"))
	if syllabusKey != "" {
		if _, ok := h.syllabus.Lookup(syllabusKey); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown syllabus lesson %q", syllabusKey)})
			return
		}
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if strings.ToLower(filepath.Ext(fileHeader.Filename)) != ".pdf" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only .pdf uploads are supported"})
		return
	}

	fileName := uuid.New().String() + ".pdf"
	if err := c.SaveUploadedFile(fileHeader, h.lessonPlanPath(fileName)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	plan := &store.LessonPlan{Name: name, FileName: fileName, SyllabusKey: syllabusKey}
	if err := h.store.CreateLessonPlan(plan); err != nil {
		_ = os.Remove(h.lessonPlanPath(fileName))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"lessonPlan": plan})
}

// DeleteLessonPlan removes an index entry and its PDF.
func (h *Handler) DeleteLessonPlan(c *gin.Context) {
	plan, err := h.store.GetLessonPlan(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrLessonPlanNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "lesson plan not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.DeleteLessonPlan(plan.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	_ = os.Remove(h.lessonPlanPath(plan.FileName))
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// IssueLessonPlanToken returns a single-use download token for a plan.
func (h *Handler) IssueLessonPlanToken(c *gin.Context) {
	plan, err := h.store.GetLessonPlan(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrLessonPlanNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "lesson plan not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	token := h.downloads.Put(h.lessonPlanPath(plan.FileName), plan.Name+".pdf", "application/pdf", false)
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"url":   "/api/download/" + token,
	})
}

type linkLessonRequest struct {
	Activity    string `json:"activity" binding:"required"`
	SyllabusKey string `json:"syllabusKey" binding:"required"`
}

// LinkLesson records an explicit schedule-activity -> syllabus mapping.
func (h *Handler) LinkLesson(c *gin.Context) {
	var req linkLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, ok := h.syllabus.Lookup(req.SyllabusKey); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown syllabus lesson %q", req.SyllabusKey)})
		return
	}
	if err := h.store.LinkActivity(req.Activity, req.SyllabusKey); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "linked"})
}

// ResolveLessonLink looks up the syllabus lesson, and any indexed lesson
// plans, behind a schedule activity label.
func (h *Handler) ResolveLessonLink(c *gin.Context) {
	activity := c.Query("activity")
	if activity == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "activity is required"})
		return
	}

	key, ok, err := h.store.ResolveActivity(activity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"activity": activity, "linked": false})
		return
	}

	details, _ := h.syllabus.Lookup(key)
	plans, err := h.store.LessonPlansForSyllabusKey(key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"activity":    activity,
		"linked":      true,
		"syllabusKey": key,
		"details":     details,
		"lessonPlans": plans,
	})
}

func (h *Handler) lessonPlanPath(fileName string) string {
	return filepath.Join(h.dataDir, "lesson_plans", filepath.Base(fileName))
}
