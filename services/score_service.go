package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"wordrain/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ScoreService persists finished game results. Rows are append-only: ID and
// PlayedAt are assigned here, never taken from the client.
type ScoreService struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewScoreService(db *gorm.DB, redis *redis.Client) *ScoreService {
	return &ScoreService{
		db:    db,
		redis: redis,
	}
}

func (s *ScoreService) Save(ctx context.Context, nickname string, score, correctAnswers, maxCombo int) (*models.Score, error) {
	record := models.Score{
		Nickname:       nickname,
		Score:          score,
		CorrectAnswers: correctAnswers,
		MaxCombo:       maxCombo,
		PlayedAt:       time.Now(),
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to save score: %w", err)
	}

	// Cached leaderboard views are stale now; drop them so the next fetch
	// recomputes with this record included.
	s.invalidateLeaderboardCache(ctx)

	return &record, nil
}

func (s *ScoreService) QueryAll(ctx context.Context) ([]models.Score, error) {
	var records []models.Score
	if err := s.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	return records, nil
}

func (s *ScoreService) QueryFrom(ctx context.Context, from time.Time) ([]models.Score, error) {
	var records []models.Score
	if err := s.db.WithContext(ctx).Where("played_at >= ?", from).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	return records, nil
}

func (s *ScoreService) invalidateLeaderboardCache(ctx context.Context) {
	if s.redis == nil {
		return
	}

	keys, err := s.redis.Keys(ctx, leaderboardCachePrefix+"*").Result()
	if err != nil {
		log.Printf("Failed to list leaderboard cache keys: %v", err)
		return
	}
	if len(keys) > 0 {
		if err := s.redis.Del(ctx, keys...).Err(); err != nil {
			log.Printf("Failed to clear leaderboard cache: %v", err)
		}
	}
}
