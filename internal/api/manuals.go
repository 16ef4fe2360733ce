package api

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/thehamish555/49SQN-Automation/internal/store"
)

const manualPageSize = 10

// ListManuals searches the manual index with pagination.
func (h *Handler) ListManuals(c *gin.Context) {
	term := c.Query("search")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	if page < 0 {
		page = 0
	}

	manuals, total, err := h.store.SearchManuals(term, page*manualPageSize, manualPageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"manuals":  manuals,
		"total":    total,
		"page":     page,
		"pageSize": manualPageSize,
	})
}

// UploadManual stores a manual PDF and indexes it.
func (h *Handler) UploadManual(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
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
	if err := c.SaveUploadedFile(fileHeader, h.manualPath(fileName)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	manual := &store.Manual{Name: name, FileName: fileName}
	if err := h.store.CreateManual(manual); err != nil {
		_ = os.Remove(h.manualPath(fileName))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"manual": manual})
}

// DeleteManual removes an index entry and its PDF.
func (h *Handler) DeleteManual(c *gin.Context) {
	manual, err := h.store.GetManual(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrManualNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "manual not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.DeleteManual(manual.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	_ = os.Remove(h.manualPath(manual.FileName))
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// IssueManualToken returns a single-use download token for a manual.
func (h *Handler) IssueManualToken(c *gin.Context) {
	manual, err := h.store.GetManual(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrManualNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "manual not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	token := h.downloads.Put(h.manualPath(manual.FileName), manual.Name+".pdf", "application/pdf", false)
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"url":   "/api/download/" + token,
	})
}

func (h *Handler) manualPath(fileName string) string {
	return filepath.Join(h.dataDir, "manuals", filepath.Base(fileName))
}
