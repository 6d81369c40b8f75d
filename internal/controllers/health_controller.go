package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Version is reported by /health.
const Version = "1.0.0"

// Pinger checks that a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthController struct {
	database          Pinger
	reputationEnabled bool
}

// NewHealthController builds the controller. database may be nil when the
// server runs without persistence.
func NewHealthController(database Pinger, reputationEnabled bool) *HealthController {
	return &HealthController{database: database, reputationEnabled: reputationEnabled}
}

func (hc *HealthController) Root(c *gin.Context) {
	c.String(http.StatusOK, "SantAI Server is running!")
}

func (hc *HealthController) Health(c *gin.Context) {
	dbStatus := "disabled"
	var dbError string

	if hc.database != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := hc.database.PingContext(ctx); err != nil {
			dbStatus = "error"
			dbError = err.Error()
		} else {
			dbStatus = "ok"
		}
	}

	overallStatus := "ok"
	statusCode := http.StatusOK
	if dbStatus == "error" {
		overallStatus = "error"
		statusCode = http.StatusServiceUnavailable
	}

	database := gin.H{"status": dbStatus}
	if dbError != "" {
		database["error"] = dbError
	}

	c.JSON(statusCode, gin.H{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
		"services": gin.H{
			"database":   database,
			"reputation": gin.H{"enabled": hc.reputationEnabled},
		},
	})
}
