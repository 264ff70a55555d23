package models

import (
	"time"
)

// Score is one finished game result. Rows are written once at game over and
// never updated or deleted; ID and PlayedAt are assigned by the store.
type Score struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Nickname       string    `json:"nickname" gorm:"not null;index"`
	Score          int       `json:"score" gorm:"not null"`
	CorrectAnswers int       `json:"correct_answers" gorm:"not null"`
	MaxCombo       int       `json:"max_combo" gorm:"not null"`
	PlayedAt       time.Time `json:"played_at" gorm:"not null;index"`
	CreatedAt      time.Time `json:"created_at"`
}
