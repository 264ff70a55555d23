package handlers

import (
	"errors"
	"net/http"

	"wordrain/services"

	"github.com/gin-gonic/gin"
)

type WordHandler struct {
	words *services.WordService
}

func NewWordHandler(words *services.WordService) *WordHandler {
	return &WordHandler{words: words}
}

type CreateWordRequest struct {
	Text  string `json:"text" binding:"required,min=2,max=20"`
	Theme string `json:"theme" binding:"required"`
}

// GetWords handles GET /api/words?theme=...
func (h *WordHandler) GetWords(c *gin.Context) {
	words, err := h.words.List(c.Request.Context(), c.Query("theme"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list words"})
		return
	}
	c.JSON(http.StatusOK, words)
}

// CreateWord handles POST /api/words
func (h *WordHandler) CreateWord(c *gin.Context) {
	var req CreateWordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	word, err := h.words.Create(c.Request.Context(), req.Text, req.Theme)
	if err != nil {
		respondWordError(c, err)
		return
	}
	c.JSON(http.StatusCreated, word)
}

func respondWordError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrWordExists):
		c.JSON(http.StatusConflict, gin.H{"error": "Word already exists"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create word"})
	}
}
