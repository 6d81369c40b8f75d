package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/santai/backend/internal/models"
	"github.com/santai/backend/internal/services"
)

// AuditReader lists recorded triages.
type AuditReader interface {
	Recent(ctx context.Context, limit, offset int) ([]models.TriageAudit, int64, error)
}

// CallTracker exposes the model API call history.
type CallTracker interface {
	GetAPICalls() []services.LLMAPICall
	ClearAPICalls()
}

type AdminController struct {
	audits AuditReader
	calls  CallTracker
}

// NewAdminController builds the controller. audits may be nil when no
// database is configured.
func NewAdminController(audits AuditReader, calls CallTracker) *AdminController {
	return &AdminController{audits: audits, calls: calls}
}

// GetTriages pages through the triage audit log, newest first.
func (ac *AdminController) GetTriages(c *gin.Context) {
	if ac.audits == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Triage audit is not available"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	audits, total, err := ac.audits.Recent(c.Request.Context(), limit, (page-1)*limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch triage audits"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"triages": audits,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetLLMAPICalls returns the recent model API calls.
func (ac *AdminController) GetLLMAPICalls(c *gin.Context) {
	calls := ac.calls.GetAPICalls()
	c.JSON(http.StatusOK, gin.H{
		"calls": calls,
		"total": len(calls),
	})
}

func (ac *AdminController) ClearLLMAPICalls(c *gin.Context) {
	ac.calls.ClearAPICalls()
	c.JSON(http.StatusOK, gin.H{"message": "API call history cleared"})
}
