package models

import "gorm.io/gorm"

// GlobalRole is the account-level designation chosen at signup.
type GlobalRole string

const (
	RoleEmployer GlobalRole = "employer"
	RoleEmployee GlobalRole = "employee"
)

func (r GlobalRole) Valid() bool {
	return r == RoleEmployer || r == RoleEmployee
}

type Profile struct {
	gorm.Model
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	FullName     string     `gorm:"not null" json:"full_name"`
	Role         GlobalRole `gorm:"type:varchar(16);not null" json:"role"`
	APITokens    []APIToken `gorm:"foreignKey:UserID" json:"-"`
}
