package api

import (
	"bytes"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/thehamish555/49SQN-Automation/internal/export"
	"github.com/thehamish555/49SQN-Automation/internal/schedule"
	"github.com/thehamish555/49SQN-Automation/internal/store"
)

const pinnedProgramKey = "pinned_program"

// ListPrograms returns the registry plus the pinned program name, if any.
func (h *Handler) ListPrograms(c *gin.Context) {
	programs, err := h.store.ListPrograms()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	pinned, err := h.store.GetSetting(pinnedProgramKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"programs": programs, "pinned": pinned})
}

// UploadProgram accepts a training program table as CSV or as an xlsx
// workbook, validates it, and registers it under the display name derived
// from the file name. Re-uploading a known name replaces its table.
func (h *Handler) UploadProgram(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	stem := strings.TrimSuffix(filepath.Base(fileHeader.Filename), filepath.Ext(fileHeader.Filename))

	var data []byte
	switch ext {
	case ".csv":
		buf := new(bytes.Buffer)
		if _, err := buf.ReadFrom(f); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		data = buf.Bytes()
	case ".xlsx":
		data, err = export.ConvertWorkbook(f)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "only .csv and .xlsx uploads are supported"})
		return
	}

	// Reject tables the engine cannot serve before anything touches disk.
	if _, err := schedule.Parse(bytes.NewReader(data)); err != nil {
		var malformed *schedule.MalformedScheduleError
		if errors.As(err, &malformed) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read training program: " + err.Error()})
		return
	}

	fileName := stem + ".csv"
	if err := os.WriteFile(h.programPath(fileName), data, 0o644); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	name := store.ProgramDisplayName(stem)
	existing, err := h.store.GetProgramByName(name)
	switch {
	case err == nil:
		if err := h.store.TouchProgram(existing.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"program": existing})
	case errors.Is(err, store.ErrProgramNotFound):
		program := &store.Program{Name: name, FileName: fileName, Active: true}
		if err := h.store.CreateProgram(program); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"program": program})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

type updateProgramRequest struct {
	Active *bool `json:"active"`
	Pinned *bool `json:"pinned"`
}

// UpdateProgram flips a program's active flag or pins it as the default.
func (h *Handler) UpdateProgram(c *gin.Context) {
	program, err := h.store.GetProgram(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrProgramNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "training program not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var req updateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Active != nil {
		if err := h.store.SetProgramActive(program.ID, *req.Active); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		program.Active = *req.Active
	}
	if req.Pinned != nil {
		if *req.Pinned {
			err = h.store.SetSetting(pinnedProgramKey, program.Name)
		} else {
			err = h.store.DeleteSetting(pinnedProgramKey)
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"program": program})
}

// DeleteProgram removes a registry entry, its table file, and its pin.
func (h *Handler) DeleteProgram(c *gin.Context) {
	program, err := h.store.GetProgram(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrProgramNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "training program not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.DeleteProgram(program.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	_ = os.Remove(h.programPath(program.FileName))

	if pinned, _ := h.store.GetSetting(pinnedProgramKey); pinned == program.Name {
		_ = h.store.DeleteSetting(pinnedProgramKey)
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) programPath(fileName string) string {
	return filepath.Join(h.dataDir, "programs", filepath.Base(fileName))
}
