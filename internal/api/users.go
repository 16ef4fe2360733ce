package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thehamish555/49SQN-Automation/internal/auth"
	"github.com/thehamish555/49SQN-Automation/internal/store"
)

type createUserRequest struct {
	Name        string   `json:"name" binding:"required"`
	Email       string   `json:"email" binding:"required,email"`
	Password    string   `json:"password" binding:"required,min=8"`
	Permissions []string `json:"permissions" binding:"omitempty,dive,permission"`
}

type updateUserRequest struct {
	Name        *string   `json:"name"`
	Permissions *[]string `json:"permissions" binding:"omitempty,dive,permission"`
	Settings    *[]string `json:"settings"`
	Password    *string   `json:"password" binding:"omitempty,min=8"`
}

type updateAccountRequest struct {
	Name            *string   `json:"name"`
	Settings        *[]string `json:"settings"`
	Password        *string   `json:"password" binding:"omitempty,min=8"`
	CurrentPassword string    `json:"currentPassword"`
}

// ListUsers returns every account, admins first.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.store.ListUsers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// CreateUser adds an account. Only admins may grant the Admin permission.
func (h *Handler) CreateUser(c *gin.Context) {
	actor := h.currentUser(c)

	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if grantsAdmin(req.Permissions) && !actor.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": "only an admin can grant admin permissions"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	user := &store.User{
		Name:         req.Name,
		Email:        req.Email,
		Permissions:  req.Permissions,
		PasswordHash: hash,
	}
	if err := h.store.CreateUser(user); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already in use"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// UpdateUser edits another account. Admin accounts can only be edited by an
// admin, except that anyone may edit themselves through this route too.
func (h *Handler) UpdateUser(c *gin.Context) {
	actor := h.currentUser(c)

	target, err := h.store.GetUser(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if target.IsAdmin() && !actor.IsAdmin() && target.ID != actor.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only an admin can edit an admin user"})
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Permissions != nil {
		if grantsAdmin(*req.Permissions) != target.IsAdmin() && !actor.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"error": "only an admin can change admin permissions"})
			return
		}
		target.Permissions = *req.Permissions
	}
	if req.Name != nil {
		target.Name = *req.Name
	}
	if req.Settings != nil {
		target.Settings = *req.Settings
	}

	if err := h.store.UpdateUser(target); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err := h.store.SetUserPassword(target.ID, hash); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		// A reset password invalidates the target's existing sessions.
		h.sessions.DeleteForUser(target.ID)
	}
	c.JSON(http.StatusOK, gin.H{"user": target})
}

// DeleteUser removes an account. Admin accounts can only be removed by an
// admin, though an admin may remove themselves.
func (h *Handler) DeleteUser(c *gin.Context) {
	actor := h.currentUser(c)

	target, err := h.store.GetUser(c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if target.IsAdmin() && !actor.IsAdmin() && target.ID != actor.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only an admin can delete an admin user"})
		return
	}

	if err := h.store.DeleteUser(target.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.sessions.DeleteForUser(target.ID)
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// UpdateAccount lets the caller edit their own profile. Password changes
// require the current password.
func (h *Handler) UpdateAccount(c *gin.Context) {
	actor := h.currentUser(c)

	var req updateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != nil {
		actor.Name = *req.Name
	}
	if req.Settings != nil {
		actor.Settings = *req.Settings
	}
	if err := h.store.UpdateUser(actor); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if req.Password != nil {
		ok, err := auth.VerifyPassword(req.CurrentPassword, actor.PasswordHash)
		if err != nil || !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "current password is incorrect"})
			return
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err := h.store.SetUserPassword(actor.ID, hash); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"user": actor})
}

func grantsAdmin(perms []string) bool {
	for _, p := range perms {
		if p == store.AdminPermission {
			return true
		}
	}
	return false
}
