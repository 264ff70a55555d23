package models

import (
	"time"
)

type Word struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Text      string    `json:"text" gorm:"uniqueIndex;not null"`
	Theme     string    `json:"theme" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}
