package repository

import (
	"errors"

	"github.com/Pokatocz/quest-and-check/internal/models"
	"gorm.io/gorm"
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Create(profile *models.Profile) error {
	return r.db.Create(profile).Error
}

func (r *ProfileRepository) FindByID(id uint) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.First(&profile, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func (r *ProfileRepository) FindByEmail(email string) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.Where("email = ?", email).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// DisplayNames maps each known id to its full name. Unknown ids are absent.
func (r *ProfileRepository) DisplayNames(ids []uint) (map[uint]string, error) {
	names := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	var profiles []models.Profile
	err := r.db.Select("id", "full_name").Where("id IN ?", ids).Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		names[p.ID] = p.FullName
	}
	return names, nil
}

func (r *ProfileRepository) UpdateFullName(id uint, fullName string) error {
	return r.db.Model(&models.Profile{}).Where("id = ?", id).Update("full_name", fullName).Error
}

// DeleteCascade removes the profile together with its tokens, its memberships
// and every team it owns, in one transaction.
func (r *ProfileRepository) DeleteCascade(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var ownedTeamIDs []uint
		err := tx.Model(&models.Team{}).Where("owner_id = ?", id).Pluck("id", &ownedTeamIDs).Error
		if err != nil {
			return err
		}
		for _, teamID := range ownedTeamIDs {
			if err := deleteTeamInTx(tx, teamID); err != nil {
				return err
			}
		}

		if err := tx.Unscoped().Where("user_id = ?", id).Delete(&models.TeamMember{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("user_id = ?", id).Delete(&models.APIToken{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Profile{}, id).Error
	})
}
