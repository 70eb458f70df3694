package models

import "gorm.io/gorm"

// Message is an append-only team chat entry. PhotoPath holds the object path
// inside the private chat bucket, never a URL.
type Message struct {
	gorm.Model
	TeamID    uint   `gorm:"not null;index" json:"team_id"`
	UserID    uint   `gorm:"not null;index" json:"user_id"`
	Content   string `gorm:"type:text;not null" json:"content"`
	PhotoPath string `gorm:"column:photo_url" json:"-"`
}
