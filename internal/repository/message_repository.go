package repository

import (
	"github.com/Pokatocz/quest-and-check/internal/models"
	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(message *models.Message) error {
	return r.db.Create(message).Error
}

func (r *MessageRepository) ListByTeam(teamID uint, limit int) ([]models.Message, error) {
	var messages []models.Message
	db := r.db.Where("team_id = ?", teamID).Order("created_at ASC").Order("id ASC")
	if limit > 0 {
		// newest window, still returned oldest first
		window := r.db.Model(&models.Message{}).Select("id").
			Where("team_id = ?", teamID).
			Order("created_at DESC").Order("id DESC").
			Limit(limit)
		db = db.Where("id IN (?)", window)
	}
	err := db.Find(&messages).Error
	return messages, err
}
