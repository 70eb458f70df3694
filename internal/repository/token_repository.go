package repository

import (
	"errors"
	"time"

	"github.com/Pokatocz/quest-and-check/internal/models"
	"gorm.io/gorm"
)

type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Create(token *models.APIToken) error {
	return r.db.Create(token).Error
}

// FindActive returns the unexpired token row for tokenStr, or nil.
func (r *TokenRepository) FindActive(tokenStr string, now time.Time) (*models.APIToken, error) {
	var token models.APIToken
	err := r.db.Where("token = ? AND expires_at > ?", tokenStr, now).
		Preload("Profile").
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

func (r *TokenRepository) FindByUserID(userID uint) ([]models.APIToken, error) {
	var tokens []models.APIToken
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tokens).Error
	return tokens, err
}

func (r *TokenRepository) Delete(id uint, userID uint) (bool, error) {
	result := r.db.Unscoped().Where("id = ? AND user_id = ?", id, userID).Delete(&models.APIToken{})
	return result.RowsAffected > 0, result.Error
}

func (r *TokenRepository) DeleteByToken(tokenStr string) error {
	return r.db.Unscoped().Where("token = ?", tokenStr).Delete(&models.APIToken{}).Error
}

func (r *TokenRepository) DeleteExpired(now time.Time) (int64, error) {
	result := r.db.Unscoped().Where("expires_at < ?", now).Delete(&models.APIToken{})
	return result.RowsAffected, result.Error
}
