package handlers

import (
	"errors"
	"net/http"

	"wordrain/services"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	sessions *services.SessionService
	hub      *services.Hub
}

func NewSessionHandler(sessions *services.SessionService, hub *services.Hub) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		hub:      hub,
	}
}

type StartSessionRequest struct {
	Nickname string `json:"nickname" binding:"required,min=2,max=10,alphanum"`
}

type GuessRequest struct {
	Input string `json:"input" binding:"required"`
}

func (h *SessionHandler) Create(c *gin.Context) {
	view := h.sessions.Create()
	c.JSON(http.StatusCreated, view)
}

func (h *SessionHandler) Get(c *gin.Context) {
	view, err := h.sessions.Snapshot(c.Param("id"))
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *SessionHandler) Start(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.sessions.Start(c.Request.Context(), c.Param("id"), req.Nickname, h.hub)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *SessionHandler) Guess(c *gin.Context) {
	var req GuessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.sessions.Guess(c.Request.Context(), c.Param("id"), req.Input, h.hub)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *SessionHandler) Pass(c *gin.Context) {
	view, err := h.sessions.Pass(c.Request.Context(), c.Param("id"), h.hub)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *SessionHandler) End(c *gin.Context) {
	view, err := h.sessions.End(c.Param("id"), h.hub)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *SessionHandler) Replay(c *gin.Context) {
	view, err := h.sessions.Replay(c.Request.Context(), c.Param("id"), h.hub)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *SessionHandler) Reset(c *gin.Context) {
	view, err := h.sessions.Reset(c.Param("id"))
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *SessionHandler) OpenRanking(c *gin.Context) {
	view, err := h.sessions.OpenRanking(c.Param("id"))
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *SessionHandler) CloseRanking(c *gin.Context) {
	view, err := h.sessions.CloseRanking(c.Param("id"))
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session deleted"})
}

func respondSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
	case errors.Is(err, services.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
