package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thehamish555/49SQN-Automation/internal/store"
)

// GetSyllabus returns the flattened syllabus index.
func (h *Handler) GetSyllabus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"lessons": h.syllabus.Entries(),
		"count":   h.syllabus.Len(),
	})
}

// GetStatus summarizes the portal for the signed-in user: who they are,
// what they can do, and which program is current.
func (h *Handler) GetStatus(c *gin.Context) {
	user := h.currentUser(c)

	programs, err := h.store.ListPrograms()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	current := ""
	if pinned, _ := h.store.GetSetting(pinnedProgramKey); pinned != "" {
		current = pinned
	} else if def, err := store.DefaultProgram(programs); err == nil {
		current = def.Name
	}

	active := 0
	for _, p := range programs {
		if p.Active {
			active++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"user":           user,
		"capabilities":   h.perms.Expand(user.Permissions),
		"currentProgram": current,
		"programs":       len(programs),
		"activePrograms": active,
		"syllabusCount":  h.syllabus.Len(),
	})
}
