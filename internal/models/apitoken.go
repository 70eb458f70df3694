package models

import (
	"time"

	"gorm.io/gorm"
)

type APIToken struct {
	gorm.Model
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Profile   Profile   `gorm:"foreignKey:UserID" json:"-"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	Label     string    `json:"label"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
}
