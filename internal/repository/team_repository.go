package repository

import (
	"errors"

	"github.com/Pokatocz/quest-and-check/internal/models"
	"gorm.io/gorm"
)

type TeamRepository struct {
	db *gorm.DB
}

func NewTeamRepository(db *gorm.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) Create(team *models.Team) error {
	return r.db.Create(team).Error
}

func (r *TeamRepository) FindByID(id uint) (*models.Team, error) {
	var team models.Team
	err := r.db.First(&team, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &team, nil
}

// ListForUser returns the teams the user owns or belongs to, newest first.
func (r *TeamRepository) ListForUser(userID uint) ([]models.Team, error) {
	var teams []models.Team
	memberOf := r.db.Model(&models.TeamMember{}).Select("team_id").Where("user_id = ?", userID)
	err := r.db.Where("owner_id = ? OR id IN (?)", userID, memberOf).
		Order("created_at DESC").
		Find(&teams).Error
	return teams, err
}

func (r *TeamRepository) UpdateBonusSchedule(id uint, schedule models.BonusSchedule) error {
	return r.db.Model(&models.Team{}).Where("id = ?", id).Updates(map[string]interface{}{
		"first_place_reward":  schedule.First,
		"second_place_reward": schedule.Second,
		"third_place_reward":  schedule.Third,
	}).Error
}

// DeleteCascade removes the team with its tasks, members and messages.
func (r *TeamRepository) DeleteCascade(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return deleteTeamInTx(tx, id)
	})
}

func deleteTeamInTx(tx *gorm.DB, teamID uint) error {
	children := []interface{}{&models.Task{}, &models.TeamMember{}, &models.Message{}}
	for _, child := range children {
		if err := tx.Unscoped().Where("team_id = ?", teamID).Delete(child).Error; err != nil {
			return err
		}
	}
	return tx.Unscoped().Delete(&models.Team{}, teamID).Error
}
