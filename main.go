package main

import (
	"context"
	"log"

	"wordrain/config"
	"wordrain/handlers"
	"wordrain/middleware"
	"wordrain/models"
	"wordrain/routes"
	"wordrain/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env in development; real deployments set env vars directly
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database models
	err = db.AutoMigrate(
		&models.Score{},
		&models.Word{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize Redis
	redisClient := config.InitRedis(cfg)

	// Initialize services
	scoreService := services.NewScoreService(db, redisClient)
	rankingService := services.NewRankingService(scoreService, redisClient)
	wordService := services.NewWordService(db)
	sessionService := services.NewSessionService(scoreService, rankingService, wordService, redisClient)

	// Seed the word table on first boot
	if err := wordService.Seed(context.Background()); err != nil {
		log.Fatal("Failed to seed words:", err)
	}

	// Initialize WebSocket hub
	hub := services.NewHub(sessionService)
	go hub.Run()

	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(sessionService, hub)
	leaderboardHandler := handlers.NewLeaderboardHandler(rankingService)
	wordHandler := handlers.NewWordHandler(wordService)

	// Setup Gin router
	router := gin.Default()

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Setup routes
	routes.SetupRoutes(router, sessionHandler, leaderboardHandler, wordHandler, hub, sessionService)

	// Start server
	addr := cfg.BindAddress + ":" + cfg.Port
	log.Printf("Server starting on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
