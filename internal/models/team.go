package models

import "gorm.io/gorm"

// TeamRole is a user's designation inside one team. Owner is never stored on
// a membership row; it is derived from Team.OwnerID.
type TeamRole string

const (
	TeamRoleOwner    TeamRole = "owner"
	TeamRoleManager  TeamRole = "manager"
	TeamRoleEmployee TeamRole = "employee"
)

// Assignable reports whether r may be stored on a membership row.
func (r TeamRole) Assignable() bool {
	return r == TeamRoleManager || r == TeamRoleEmployee
}

type Team struct {
	gorm.Model
	Name              string `gorm:"not null" json:"name"`
	OwnerID           uint   `gorm:"not null;index" json:"owner_id"`
	FirstPlaceReward  int    `gorm:"not null;default:0" json:"first_place_reward"`
	SecondPlaceReward int    `gorm:"not null;default:0" json:"second_place_reward"`
	ThirdPlaceReward  int    `gorm:"not null;default:0" json:"third_place_reward"`
}

// BonusSchedule maps leaderboard ranks 1-3 to the team's configured rewards.
type BonusSchedule struct {
	First  int `json:"first"`
	Second int `json:"second"`
	Third  int `json:"third"`
}

func (t *Team) BonusSchedule() BonusSchedule {
	return BonusSchedule{
		First:  t.FirstPlaceReward,
		Second: t.SecondPlaceReward,
		Third:  t.ThirdPlaceReward,
	}
}

// For returns the bonus paid at a 1-based rank; ranks past third pay nothing.
func (b BonusSchedule) For(rank int) int {
	switch rank {
	case 1:
		return b.First
	case 2:
		return b.Second
	case 3:
		return b.Third
	default:
		return 0
	}
}

type TeamMember struct {
	gorm.Model
	TeamID  uint     `gorm:"not null;uniqueIndex:idx_team_member" json:"team_id"`
	UserID  uint     `gorm:"not null;uniqueIndex:idx_team_member;index" json:"user_id"`
	Role    TeamRole `gorm:"type:varchar(16);not null;default:employee" json:"role"`
	Profile *Profile `gorm:"foreignKey:UserID" json:"profile,omitempty"`
}
