package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"wordrain/services"

	"github.com/gin-gonic/gin"
)

type LeaderboardHandler struct {
	rankings *services.RankingService
}

func NewLeaderboardHandler(rankings *services.RankingService) *LeaderboardHandler {
	return &LeaderboardHandler{rankings: rankings}
}

// GetLeaderboard handles GET /api/leaderboard?scope=all|today&limit=N
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	scope := c.DefaultQuery("scope", services.ScopeAll)
	if scope != services.ScopeAll && scope != services.ScopeToday {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scope must be 'all' or 'today'"})
		return
	}

	limitStr := c.DefaultQuery("limit", strconv.Itoa(services.DefaultLeaderboardLimit))
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	entries := h.rankings.Leaderboard(c.Request.Context(), scope, limit)
	c.JSON(http.StatusOK, gin.H{
		"scope":   scope,
		"entries": entries,
	})
}

// GetPlayerRank handles GET /api/players/:nickname/rank
func (h *LeaderboardHandler) GetPlayerRank(c *gin.Context) {
	nickname := c.Param("nickname")

	rank, err := h.rankings.PlayerRank(c.Request.Context(), nickname)
	if err != nil {
		if errors.Is(err, services.ErrRankNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No record for this player"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up rank"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nickname": nickname,
		"rank":     rank,
	})
}
