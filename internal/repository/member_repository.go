package repository

import (
	"errors"

	"github.com/Pokatocz/quest-and-check/internal/models"
	"gorm.io/gorm"
)

type MemberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) Create(member *models.TeamMember) error {
	return r.db.Create(member).Error
}

func (r *MemberRepository) Find(teamID, userID uint) (*models.TeamMember, error) {
	var member models.TeamMember
	err := r.db.Where("team_id = ? AND user_id = ?", teamID, userID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

func (r *MemberRepository) ListByTeam(teamID uint) ([]models.TeamMember, error) {
	var members []models.TeamMember
	err := r.db.Preload("Profile").
		Where("team_id = ?", teamID).
		Order("created_at ASC").
		Find(&members).Error
	return members, err
}

// UpdateRole reports false when no membership row matched.
func (r *MemberRepository) UpdateRole(teamID, userID uint, role models.TeamRole) (bool, error) {
	result := r.db.Model(&models.TeamMember{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Update("role", role)
	return result.RowsAffected > 0, result.Error
}

func (r *MemberRepository) Delete(teamID, userID uint) (bool, error) {
	result := r.db.Unscoped().
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&models.TeamMember{})
	return result.RowsAffected > 0, result.Error
}
