package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/santai/backend/internal/config"
	"github.com/santai/backend/internal/models"
	"github.com/santai/backend/internal/services"
)

// Gin context keys set by AuthMiddleware.
const (
	UserIDKey   = "user_id"
	UsernameKey = "username"
	UserRoleKey = "user_role"
)

var errInvalidToken = errors.New("invalid token")

// IssueToken signs an HS256 token for user that expires after cfg.TokenTTL.
func IssueToken(cfg config.AuthConfig, user *models.User) (string, time.Time, error) {
	expiresAt := time.Now().Add(cfg.TokenTTL)
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     string(user.Role),
		"exp":      expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.Secret))
	return tokenString, expiresAt, err
}

// AuthMiddleware validates bearer tokens. When cfg.Required is false a request
// without a token passes through anonymously, but a token that is present
// must still be valid.
func AuthMiddleware(cfg config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			if cfg.Required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
				return
			}
			c.Next()
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		claims, err := parseToken(cfg.Secret, strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		if userID, ok := claims["user_id"].(float64); ok {
			id := uint(userID)
			c.Set(UserIDKey, id)
			c.Request = c.Request.WithContext(services.WithUserID(c.Request.Context(), id))
		}
		if username, ok := claims["username"].(string); ok {
			c.Set(UsernameKey, username)
		}
		if role, ok := claims["role"].(string); ok {
			c.Set(UserRoleKey, role)
		}

		c.Next()
	}
}

// RequireRole rejects callers without role. It is a no-op when auth is off.
func RequireRole(cfg config.AuthConfig, role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Required {
			c.Next()
			return
		}
		if c.GetString(UserRoleKey) != string(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}
		c.Next()
	}
}

func parseToken(secret, tokenString string) (jwt.MapClaims, error) {
	if secret == "" {
		return nil, errInvalidToken
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errInvalidToken
	}
	return claims, nil
}
