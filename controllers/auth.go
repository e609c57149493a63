package controllers

import (
	"errors"
	"net/http"
	"strings"

	"journal-review-api/middleware"
	"journal-review-api/models"
	"journal-review-api/services"
	"journal-review-api/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Success      bool                  `json:"success"`
	Token        string                `json:"token"`
	ExpiresAt    int64                 `json:"expires_at"`
	User         models.User           `json:"user"`
	Role         services.Role         `json:"role"`
	Capabilities []services.Capability `json:"capabilities"`
	Message      string                `json:"message"`
}

// Login handles user authentication
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := h.users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, services.ErrRecordNotFound) {
			h.log.Error("login lookup failed", zap.Error(err))
		}
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid email or password"})
		return
	}
	if !utils.CheckPassword(user.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid email or password"})
		return
	}

	token, expiresAt, err := middleware.GenerateToken(h.jwtSecret, h.jwtTTL, user, h.now())
	if err != nil {
		h.log.Error("failed to sign token", zap.Uint("user_id", user.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to generate token"})
		return
	}

	role, _ := services.ResolveRole(user)
	c.JSON(http.StatusOK, LoginResponse{
		Success:      true,
		Token:        token,
		ExpiresAt:    expiresAt.Unix(),
		User:         *user,
		Role:         role,
		Capabilities: role.Capabilities(),
		Message:      "Login successful",
	})
}

// GetProfile returns the current user with its resolved role.
func (h *Handler) GetProfile(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
		return
	}
	role, _ := services.ResolveRole(user)
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"user":         user,
		"role":         role,
		"capabilities": role.Capabilities(),
	})
}

// ChangePassword handles password change
func (h *Handler) ChangePassword(c *gin.Context) {
	type PasswordChangeRequest struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required"`
	}

	var req PasswordChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if ok, msg := utils.ValidatePassword(strings.TrimSpace(req.NewPassword)); !ok {
		badRequest(c, msg)
		return
	}

	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
		return
	}
	if !utils.CheckPassword(user.Password, req.CurrentPassword) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Current password is incorrect"})
		return
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update password"})
		return
	}
	if err := h.users.SetPassword(c.Request.Context(), user.UserID, hash); err != nil {
		h.log.Error("failed to update password", zap.Uint("user_id", user.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password changed successfully"})
}
