package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/santai/backend/internal/logger"
	"github.com/santai/backend/internal/models"
	"github.com/santai/backend/internal/services"
)

// Triager is the pipeline the triage endpoints drive.
type Triager interface {
	TriageText(ctx context.Context, logContent, knowledgeJSON string) (*models.TriageResult, error)
	TriageFile(ctx context.Context, logBytes []byte, knowledgeJSON string) (*models.TriageResult, error)
	TriageImage(ctx context.Context, imageBytes []byte, mimeType, knowledgeJSON string) (*models.TriageResult, error)
	CheckIP(ctx context.Context, ip string) (*models.ReputationRecord, error)
}

// KnowledgeSnapshotter supplies the stored knowledge base when a request
// carries none.
type KnowledgeSnapshotter interface {
	SnapshotJSON(ctx context.Context) string
}

type TriageController struct {
	triage    Triager
	knowledge KnowledgeSnapshotter
}

// NewTriageController builds the controller. knowledge may be nil.
func NewTriageController(triage Triager, knowledge KnowledgeSnapshotter) *TriageController {
	return &TriageController{triage: triage, knowledge: knowledge}
}

type TriageTextRequest struct {
	LogContent string          `json:"logContent"`
	Knowledge  json.RawMessage `json:"knowledge"`
}

type CheckIPRequest struct {
	IP string `json:"ip"`
}

// TriageText handles pasted log text.
func (tc *TriageController) TriageText(c *gin.Context) {
	var req TriageTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	knowledge, present := knowledgeFromJSON(req.Knowledge)
	knowledge = tc.resolveKnowledge(c, knowledge, present)
	result, err := tc.triage.TriageText(c.Request.Context(), req.LogContent, knowledge)
	if err != nil {
		tc.respondError(c, err, "Server error while processing text.")
		return
	}
	c.JSON(http.StatusOK, result)
}

// TriageFile handles a multipart log upload in the logFile field.
func (tc *TriageController) TriageFile(c *gin.Context) {
	content, _, err := readFormFile(c, "logFile")
	if err != nil {
		if isMissingUpload(err) {
			err = services.ErrMissingFile
		}
		tc.respondError(c, err, "Server error while processing file.")
		return
	}

	knowledge, present := c.GetPostForm("knowledge")
	knowledge = tc.resolveKnowledge(c, knowledge, present)
	result, err := tc.triage.TriageFile(c.Request.Context(), content, knowledge)
	if err != nil {
		tc.respondError(c, err, "Server error while processing file.")
		return
	}
	c.JSON(http.StatusOK, result)
}

// TriageImage handles a multipart screenshot upload in the imageFile field.
func (tc *TriageController) TriageImage(c *gin.Context) {
	content, header, err := readFormFile(c, "imageFile")
	if err != nil {
		if isMissingUpload(err) {
			err = services.ErrEmptyImage
		}
		tc.respondError(c, err, "Server error while processing image.")
		return
	}

	knowledge, present := c.GetPostForm("knowledge")
	knowledge = tc.resolveKnowledge(c, knowledge, present)
	result, err := tc.triage.TriageImage(c.Request.Context(), content, header.Header.Get("Content-Type"), knowledge)
	if err != nil {
		tc.respondError(c, err, "Server error while processing image.")
		return
	}
	c.JSON(http.StatusOK, result)
}

// CheckIP looks up the reputation of a single IP.
func (tc *TriageController) CheckIP(c *gin.Context) {
	var req CheckIPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	record, err := tc.triage.CheckIP(c.Request.Context(), req.IP)
	if err != nil {
		var upstream *services.UpstreamError
		switch {
		case errors.Is(err, services.ErrReputationNotConfigured):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "VIRUSTOTAL_API_KEY is not configured."})
		case services.IsValidationError(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.As(err, &upstream):
			c.JSON(upstream.Status, gin.H{"error": "Failed to check IP on VirusTotal."})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check IP on VirusTotal."})
		}
		return
	}
	c.JSON(http.StatusOK, record)
}

// resolveKnowledge falls back to the stored knowledge base when the request
// did not send the field at all. An explicit empty value is respected.
func (tc *TriageController) resolveKnowledge(c *gin.Context, knowledge string, present bool) string {
	if present || tc.knowledge == nil {
		return knowledge
	}
	return tc.knowledge.SnapshotJSON(c.Request.Context())
}

func (tc *TriageController) respondError(c *gin.Context, err error, fallback string) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case services.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &maxBytesErr):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Uploaded file is too large"})
	default:
		_ = c.Error(err)
		logger.WithError(err, "triage_controller").Error(fallback)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

// knowledgeFromJSON accepts the knowledge field either as the serialized
// string browsers send or as an inline JSON array.
func knowledgeFromJSON(raw json.RawMessage) (string, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	return trimmed, true
}

func isMissingUpload(err error) bool {
	return errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart)
}

func readFormFile(c *gin.Context, field string) ([]byte, *multipart.FileHeader, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, nil, err
	}
	file, err := header.Open()
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, err
	}
	if content == nil {
		content = []byte{}
	}
	return content, header, nil
}
