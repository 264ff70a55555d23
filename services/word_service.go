package services

import (
	"bufio"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"strings"

	"wordrain/models"

	"gorm.io/gorm"
)

// Seed word list, one "text,theme" pair per line. Keeps the game playable
// on a fresh database without any manual loading step.
//
//go:embed words_seed.txt
var seedWords string

// ErrWordExists is returned by Create when the text is already in the pool.
var ErrWordExists = errors.New("word already exists")

type WordService struct {
	db *gorm.DB

	// pick is the random-row query, swappable in tests.
	pick func(ctx context.Context, excluding string) (*models.Word, error)
}

func NewWordService(db *gorm.DB) *WordService {
	s := &WordService{db: db}
	s.pick = s.pickRandom
	return s
}

// Next picks a uniformly random word. It never returns the excluded word
// unless it is the only word in the table.
func (s *WordService) Next(ctx context.Context, excluding string) (*models.Word, error) {
	word, err := s.pick(ctx, excluding)
	if err == nil {
		return word, nil
	}
	if excluding != "" && errors.Is(err, gorm.ErrRecordNotFound) {
		// The excluded word is the only one left.
		return s.pick(ctx, "")
	}
	return nil, err
}

func (s *WordService) pickRandom(ctx context.Context, excluding string) (*models.Word, error) {
	query := s.db.WithContext(ctx).Model(&models.Word{})
	if excluding != "" {
		query = query.Where("text <> ?", excluding)
	}

	var word models.Word
	if err := query.Order("RANDOM()").First(&word).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to pick word: %w", err)
	}
	return &word, nil
}

// List returns every word, optionally filtered to one theme.
func (s *WordService) List(ctx context.Context, theme string) ([]models.Word, error) {
	query := s.db.WithContext(ctx).Model(&models.Word{})
	if theme != "" {
		query = query.Where("theme = ?", theme)
	}

	var words []models.Word
	if err := query.Order("theme, text").Find(&words).Error; err != nil {
		return nil, fmt.Errorf("failed to list words: %w", err)
	}
	return words, nil
}

// Create adds one word to the pool.
func (s *WordService) Create(ctx context.Context, text, theme string) (*models.Word, error) {
	word := models.Word{
		Text:  strings.ToLower(strings.TrimSpace(text)),
		Theme: strings.TrimSpace(theme),
	}

	if err := s.db.WithContext(ctx).Create(&word).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrWordExists
		}
		return nil, fmt.Errorf("failed to create word: %w", err)
	}
	return &word, nil
}

// Seed loads the embedded word list into an empty words table. An already
// populated table is left untouched.
func (s *WordService) Seed(ctx context.Context) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Word{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count words: %w", err)
	}
	if count > 0 {
		return nil
	}

	words := ParseSeedWords(seedWords)
	if len(words) == 0 {
		return errors.New("embedded word list is empty")
	}

	if err := s.db.WithContext(ctx).Create(&words).Error; err != nil {
		return fmt.Errorf("failed to seed words: %w", err)
	}

	log.Printf("Seeded %d words", len(words))
	return nil
}

// ParseSeedWords parses "text,theme" lines. Blank lines and lines starting
// with # are skipped; malformed lines are dropped with a log line.
func ParseSeedWords(raw string) []models.Word {
	var words []models.Word
	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, ",", 2)
		if len(parts) != 2 {
			log.Printf("Skipping malformed seed word line: %q", line)
			continue
		}

		text := strings.ToLower(strings.TrimSpace(parts[0]))
		theme := strings.TrimSpace(parts[1])
		if text == "" || theme == "" {
			log.Printf("Skipping malformed seed word line: %q", line)
			continue
		}

		words = append(words, models.Word{Text: text, Theme: theme})
	}
	return words
}
