package services

import (
	"context"
	"errors"
	"testing"

	"wordrain/models"

	"gorm.io/gorm"
)

func TestNextFallsBackWhenExclusionEmptiesPool(t *testing.T) {
	svc := NewWordService(nil)
	var excludes []string
	svc.pick = func(ctx context.Context, excluding string) (*models.Word, error) {
		excludes = append(excludes, excluding)
		if excluding != "" {
			return nil, gorm.ErrRecordNotFound
		}
		return &models.Word{Text: "tiger", Theme: "animal"}, nil
	}

	word, err := svc.Next(context.Background(), "tiger")
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if word.Text != "tiger" {
		t.Errorf("word = %q, want the sole remaining word back", word.Text)
	}
	if len(excludes) != 2 || excludes[0] != "tiger" || excludes[1] != "" {
		t.Errorf("pick calls = %v, want exclusion first then unrestricted retry", excludes)
	}
}

func TestNextEmptyTableReturnsNotFound(t *testing.T) {
	svc := NewWordService(nil)
	svc.pick = func(ctx context.Context, excluding string) (*models.Word, error) {
		return nil, gorm.ErrRecordNotFound
	}

	if _, err := svc.Next(context.Background(), ""); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("Next() error = %v, want ErrRecordNotFound", err)
	}
}

func TestNextQueryFailureDoesNotRetry(t *testing.T) {
	svc := NewWordService(nil)
	queryErr := errors.New("connection refused")
	calls := 0
	svc.pick = func(ctx context.Context, excluding string) (*models.Word, error) {
		calls++
		return nil, queryErr
	}

	if _, err := svc.Next(context.Background(), "tiger"); !errors.Is(err, queryErr) {
		t.Fatalf("Next() error = %v, want the query error", err)
	}
	if calls != 1 {
		t.Errorf("pick calls = %d, want 1 (no retry on non-NotFound errors)", calls)
	}
}

func TestParseSeedWords(t *testing.T) {
	raw := `# comment line
tiger,animal

APPLE, fruit
malformed-line
,empty-text
noodle,
`
	words := ParseSeedWords(raw)

	if len(words) != 2 {
		t.Fatalf("len(words) = %d, want 2", len(words))
	}
	if words[0].Text != "tiger" || words[0].Theme != "animal" {
		t.Errorf("words[0] = %+v, want tiger/animal", words[0])
	}
	if words[1].Text != "apple" || words[1].Theme != "fruit" {
		t.Errorf("words[1] = %+v, want apple/fruit (lowercased, trimmed)", words[1])
	}
}

func TestEmbeddedSeedListIsUsable(t *testing.T) {
	words := ParseSeedWords(seedWords)

	if len(words) < 2 {
		t.Fatalf("embedded seed list has %d words, need at least 2 so exclusion always has an alternative", len(words))
	}

	seen := make(map[string]bool)
	for _, word := range words {
		if word.Text == "" || word.Theme == "" {
			t.Errorf("seed word %+v has empty field", word)
		}
		if seen[word.Text] {
			t.Errorf("duplicate seed word %q", word.Text)
		}
		seen[word.Text] = true
	}
}
