package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/santai/backend/internal/middleware"
	"github.com/santai/backend/internal/models"
	"github.com/santai/backend/internal/services"
)

// KnowledgeStore is the persistence the knowledge endpoints need.
type KnowledgeStore interface {
	List(ctx context.Context) ([]models.KnowledgeExample, error)
	Create(ctx context.Context, input, output string, createdBy *uint) (*models.KnowledgeExample, error)
	Delete(ctx context.Context, id uint) error
}

type KnowledgeController struct {
	store KnowledgeStore
}

func NewKnowledgeController(store KnowledgeStore) *KnowledgeController {
	return &KnowledgeController{store: store}
}

type CreateKnowledgeRequest struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// ListKnowledge returns every stored example, oldest first.
func (kc *KnowledgeController) ListKnowledge(c *gin.Context) {
	examples, err := kc.store.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch knowledge base"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"knowledge": examples,
		"total":     len(examples),
	})
}

func (kc *KnowledgeController) CreateKnowledge(c *gin.Context) {
	var req CreateKnowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var createdBy *uint
	if userID, exists := c.Get(middleware.UserIDKey); exists {
		if id, ok := userID.(uint); ok {
			createdBy = &id
		}
	}

	example, err := kc.store.Create(c.Request.Context(), req.Input, req.Output, createdBy)
	if err != nil {
		if errors.Is(err, services.ErrInvalidKnowledge) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save knowledge example"})
		return
	}
	c.JSON(http.StatusCreated, example)
}

func (kc *KnowledgeController) DeleteKnowledge(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid knowledge ID"})
		return
	}

	if err := kc.store.Delete(c.Request.Context(), uint(id)); err != nil {
		if errors.Is(err, services.ErrKnowledgeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Knowledge example not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete knowledge example"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Knowledge example deleted"})
}
