package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/santai/backend/internal/config"
	"github.com/santai/backend/internal/logger"
	"github.com/santai/backend/internal/middleware"
	"github.com/santai/backend/internal/models"
	"github.com/santai/backend/internal/services"
	"golang.org/x/crypto/bcrypt"
)

// UserStore looks up login accounts.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id uint) (*models.User, error)
}

type AuthController struct {
	users UserStore
	cfg   config.AuthConfig
}

func NewAuthController(users UserStore, cfg config.AuthConfig) *AuthController {
	return &AuthController{users: users, cfg: cfg}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if ac.cfg.Secret == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Login is not configured"})
		return
	}

	user, err := ac.users.FindByUsername(c.Request.Context(), req.Username)
	if err != nil {
		if !errors.Is(err, services.ErrUserNotFound) {
			logger.WithError(err, "auth_controller").Error("Failed to look up user")
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logger.Warn("Failed login attempt", map[string]interface{}{"username": req.Username})
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, expiresAt, err := middleware.IssueToken(ac.cfg, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	logger.WithUser(user.ID).WithField("role", user.Role).Info("User logged in")

	c.JSON(http.StatusOK, AuthResponse{
		Success:   true,
		Message:   "Login successful",
		Token:     token,
		User:      *user,
		ExpiresAt: expiresAt,
	})
}

// GetCurrentUser returns the account behind the bearer token.
func (ac *AuthController) GetCurrentUser(c *gin.Context) {
	userID, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	user, err := ac.users.FindByID(c.Request.Context(), userID.(uint))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}
