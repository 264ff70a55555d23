package routes

import (
	"log"
	"net/http"

	"wordrain/handlers"
	"wordrain/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

func SetupRoutes(
	router *gin.Engine,
	sessionHandler *handlers.SessionHandler,
	leaderboardHandler *handlers.LeaderboardHandler,
	wordHandler *handlers.WordHandler,
	hub *services.Hub,
	sessionService *services.SessionService,
) {
	// API routes
	api := router.Group("/api")
	{
		sessions := api.Group("/sessions")
		{
			sessions.POST("", sessionHandler.Create)
			sessions.GET("/:id", sessionHandler.Get)
			sessions.POST("/:id/start", sessionHandler.Start)
			sessions.POST("/:id/guess", sessionHandler.Guess)
			sessions.POST("/:id/pass", sessionHandler.Pass)
			sessions.POST("/:id/end", sessionHandler.End)
			sessions.POST("/:id/replay", sessionHandler.Replay)
			sessions.POST("/:id/reset", sessionHandler.Reset)
			sessions.POST("/:id/ranking/open", sessionHandler.OpenRanking)
			sessions.POST("/:id/ranking/close", sessionHandler.CloseRanking)
			sessions.DELETE("/:id", sessionHandler.Delete)
		}

		api.GET("/leaderboard", leaderboardHandler.GetLeaderboard)
		api.GET("/players/:nickname/rank", leaderboardHandler.GetPlayerRank)

		words := api.Group("/words")
		{
			words.GET("", wordHandler.GetWords)
			words.POST("", wordHandler.CreateWord)
		}
	}

	// WebSocket endpoint for real-time HUD updates
	router.GET("/ws/:sessionID", func(c *gin.Context) {
		sessionID := c.Param("sessionID")

		// Reject connections for sessions that don't exist
		if _, err := sessionService.Snapshot(sessionID); err != nil {
			log.Printf("WebSocket connection rejected for unknown session %s", sessionID)
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed for session %s: %v", sessionID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade connection"})
			return
		}

		log.Printf("WebSocket connection established for session %s", sessionID)
		client := hub.RegisterClient(conn, sessionID)
		hub.SendStateSync(client)
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
