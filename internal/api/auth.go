package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thehamish555/49SQN-Automation/internal/auth"
	"github.com/thehamish555/49SQN-Automation/internal/store"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login checks credentials and issues a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	user, err := h.store.GetUserByEmail(req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	token := h.sessions.Create(user.ID)
	c.JSON(http.StatusOK, gin.H{
		"token":        token,
		"user":         user,
		"capabilities": h.perms.Expand(user.Permissions),
	})
}

// Logout revokes the caller's token.
func (h *Handler) Logout(c *gin.Context) {
	h.sessions.Delete(bearerToken(c))
	c.JSON(http.StatusOK, gin.H{"status": "signed out"})
}
