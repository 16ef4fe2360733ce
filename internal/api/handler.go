// Package api implements the portal's HTTP interface.
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/thehamish555/49SQN-Automation/internal/auth"
	"github.com/thehamish555/49SQN-Automation/internal/export"
	"github.com/thehamish555/49SQN-Automation/internal/permissions"
	"github.com/thehamish555/49SQN-Automation/internal/store"
	"github.com/thehamish555/49SQN-Automation/internal/syllabus"
)

// Capability names used by route guards.
const (
	capManageUsers     = "manage_users"
	capManagePrograms  = "manage_training_program"
	capManagePlans     = "manage_lesson_plans"
	capManageDocuments = "manage_documents"
)

const ctxUserKey = "portal.user"

// Handler owns the portal API routes and their collaborators.
type Handler struct {
	store     *store.Store
	sessions  *auth.SessionStore
	perms     permissions.Structure
	syllabus  *syllabus.Index
	exporter  *export.Exporter
	dataDir   string
	downloads *downloadStore
	tables    *tableCache
}

// NewHandler wires the API against its storage and session layers.
func NewHandler(st *store.Store, sessions *auth.SessionStore, perms permissions.Structure, idx *syllabus.Index, dataDir string) *Handler {
	registerValidators(perms)
	return &Handler{
		store:     st,
		sessions:  sessions,
		perms:     perms,
		syllabus:  idx,
		exporter:  export.NewExporter(),
		dataDir:   dataDir,
		downloads: newDownloadStore(),
		tables:    newTableCache(time.Hour),
	}
}

var registerValidatorsOnce sync.Once

// registerValidators installs the custom "permission" validator on gin's
// binding engine so request DTOs can declare grantable-permission fields.
// The binding engine is process-global, so registration happens once.
func registerValidators(perms permissions.Structure) {
	registerValidatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("permission", func(fl validator.FieldLevel) bool {
			return perms.Known(fl.Field().String())
		})
	})
}

// RegisterRoutes attaches all portal routes to the group.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/login", h.Login)

	// Token downloads carry their own single-use authorization.
	router.GET("/download/:token", h.Download)

	authed := router.Group("", h.requireUser())
	{
		authed.POST("/logout", h.Logout)
		authed.GET("/status", h.GetStatus)

		authed.GET("/users", h.ListUsers)
		authed.PATCH("/account", h.UpdateAccount)
		users := authed.Group("", h.requireCapability(capManageUsers))
		{
			users.POST("/users", h.CreateUser)
			users.PATCH("/users/:id", h.UpdateUser)
			users.DELETE("/users/:id", h.DeleteUser)
		}

		authed.GET("/programs", h.ListPrograms)
		programs := authed.Group("", h.requireCapability(capManagePrograms))
		{
			programs.POST("/programs", h.UploadProgram)
			programs.PATCH("/programs/:id", h.UpdateProgram)
			programs.DELETE("/programs/:id", h.DeleteProgram)
		}

		authed.GET("/schedule", h.GetSchedule)
		authed.GET("/schedule/report", h.GetWeeklyReport)
		authed.GET("/schedule/upcoming", h.GetUpcoming)
		authed.GET("/schedule/export", h.ExportSchedule)

		authed.GET("/syllabus", h.GetSyllabus)
		authed.GET("/lesson-plans", h.ListLessonPlans)
		authed.POST("/lesson-plans/:id/token", h.IssueLessonPlanToken)
		authed.GET("/lesson-links/resolve", h.ResolveLessonLink)
		plans := authed.Group("", h.requireCapability(capManagePlans))
		{
			plans.POST("/lesson-plans", h.UploadLessonPlan)
			plans.DELETE("/lesson-plans/:id", h.DeleteLessonPlan)
		}
		links := authed.Group("", h.requireCapability(capManagePrograms))
		{
			links.PUT("/lesson-links", h.LinkLesson)
		}

		authed.GET("/manuals", h.ListManuals)
		authed.POST("/manuals/:id/token", h.IssueManualToken)
		docs := authed.Group("", h.requireCapability(capManageDocuments))
		{
			docs.POST("/manuals", h.UploadManual)
			docs.DELETE("/manuals/:id", h.DeleteManual)
		}
	}
}

// requireUser resolves the bearer token to an account and injects it into
// the request context.
func (h *Handler) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			return
		}
		sess, ok := h.sessions.Get(token)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}
		user, err := h.store.GetUser(sess.UserID)
		if err != nil {
			h.sessions.Delete(token)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}
		c.Set(ctxUserKey, user)
		c.Next()
	}
}

// requireCapability gates a route on the expanded permission set.
func (h *Handler) requireCapability(capability string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := h.currentUser(c)
		if user == nil || !h.perms.Has(user.Permissions, capability) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "you do not have permission to do this"})
			return
		}
		c.Next()
	}
}

func (h *Handler) currentUser(c *gin.Context) *store.User {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*store.User)
	return user
}

func bearerToken(c *gin.Context) string {
	const prefix = "Bearer "
	header := c.GetHeader("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
