package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"wordrain/models"

	"github.com/redis/go-redis/v9"
)

const (
	leaderboardCachePrefix  = "leaderboard:"
	leaderboardCacheTTL     = 30 * time.Second
	DefaultLeaderboardLimit = 100
)

// Leaderboard scopes.
const (
	ScopeAll   = "all"
	ScopeToday = "today"
)

// ErrRankNotFound means the nickname has no recorded score. It is a valid
// empty result, not a failure.
var ErrRankNotFound = errors.New("no score recorded for nickname")

// ScoreSource is the record fetch surface the ranking computations run on.
type ScoreSource interface {
	QueryAll(ctx context.Context) ([]models.Score, error)
	QueryFrom(ctx context.Context, from time.Time) ([]models.Score, error)
}

// RankingEntry is the display projection of one nickname's best result.
// Rank is assigned at query time and never persisted.
type RankingEntry struct {
	Rank           int       `json:"rank"`
	Nickname       string    `json:"nickname"`
	Score          int       `json:"score"`
	CorrectAnswers int       `json:"correct_answers"`
	MaxCombo       int       `json:"max_combo"`
	PlayedAt       time.Time `json:"played_at"`
}

type RankingService struct {
	scores ScoreSource
	redis  *redis.Client
}

func NewRankingService(scores ScoreSource, redis *redis.Client) *RankingService {
	return &RankingService{
		scores: scores,
		redis:  redis,
	}
}

// Leaderboard returns the top entries for the given scope, at most limit
// long. A fetch failure degrades to an empty list: the leaderboard view
// shows "no records" instead of breaking the caller.
func (s *RankingService) Leaderboard(ctx context.Context, scope string, limit int) []RankingEntry {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}

	cacheKey := fmt.Sprintf("%s%s:%d", leaderboardCachePrefix, scope, limit)
	if cached := s.getCachedEntries(ctx, cacheKey); cached != nil {
		return cached
	}

	var (
		records []models.Score
		err     error
	)
	if scope == ScopeToday {
		records, err = s.scores.QueryFrom(ctx, startOfToday())
	} else {
		records, err = s.scores.QueryAll(ctx)
	}
	if err != nil {
		log.Printf("Failed to fetch scores for %s leaderboard: %v", scope, err)
		return []RankingEntry{}
	}

	entries := rankRecords(records, limit)
	s.storeCachedEntries(ctx, cacheKey, entries)
	return entries
}

// PlayerRank returns the 1-based rank of a nickname's best score among all
// players' best scores, using the same ordering as Leaderboard. Returns
// ErrRankNotFound when the nickname has never finished a game.
func (s *RankingService) PlayerRank(ctx context.Context, nickname string) (int, error) {
	records, err := s.scores.QueryAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch scores for rank lookup: %w", err)
	}

	entries := rankRecords(records, len(records))
	for _, entry := range entries {
		if entry.Nickname == nickname {
			return entry.Rank, nil
		}
	}
	return 0, ErrRankNotFound
}

// rankRecords reduces raw records to one best entry per nickname, orders
// them by score descending then earliest completion first, truncates to
// limit and assigns dense 1-based ranks.
func rankRecords(records []models.Score, limit int) []RankingEntry {
	best := make(map[string]models.Score)
	for _, record := range records {
		existing, ok := best[record.Nickname]
		if !ok || record.Score > existing.Score ||
			(record.Score == existing.Score && record.PlayedAt.Before(existing.PlayedAt)) {
			best[record.Nickname] = record
		}
	}

	survivors := make([]models.Score, 0, len(best))
	for _, record := range best {
		survivors = append(survivors, record)
	}

	sort.Slice(survivors, func(i, j int) bool {
		if survivors[i].Score != survivors[j].Score {
			return survivors[i].Score > survivors[j].Score
		}
		// Same score: whoever reached it first wins the tie.
		return survivors[i].PlayedAt.Before(survivors[j].PlayedAt)
	})

	if len(survivors) > limit {
		survivors = survivors[:limit]
	}

	entries := make([]RankingEntry, len(survivors))
	for i, record := range survivors {
		entries[i] = RankingEntry{
			Rank:           i + 1,
			Nickname:       record.Nickname,
			Score:          record.Score,
			CorrectAnswers: record.CorrectAnswers,
			MaxCombo:       record.MaxCombo,
			PlayedAt:       record.PlayedAt,
		}
	}
	return entries
}

func startOfToday() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func (s *RankingService) getCachedEntries(ctx context.Context, key string) []RankingEntry {
	if s.redis == nil {
		return nil
	}

	data, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Redis error getting cached leaderboard %s: %v", key, err)
		}
		return nil
	}

	var entries []RankingEntry
	if err := json.Unmarshal([]byte(data), &entries); err != nil {
		log.Printf("Failed to unmarshal cached leaderboard %s: %v", key, err)
		return nil
	}
	return entries
}

func (s *RankingService) storeCachedEntries(ctx context.Context, key string, entries []RankingEntry) {
	if s.redis == nil {
		return
	}

	data, err := json.Marshal(entries)
	if err != nil {
		log.Printf("Failed to marshal leaderboard for cache: %v", err)
		return
	}
	if err := s.redis.Set(ctx, key, data, leaderboardCacheTTL).Err(); err != nil {
		log.Printf("Failed to cache leaderboard %s: %v", key, err)
	}
}
