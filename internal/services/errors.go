package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Category errors. Every error a service returns either wraps one of these
// or is a *StoreError, so callers classify failures with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrPermission   = errors.New("permission denied")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
)

var (
	ErrUserNotFound   = categorized(ErrNotFound, "user not found")
	ErrTeamNotFound   = categorized(ErrNotFound, "team not found")
	ErrTaskNotFound   = categorized(ErrNotFound, "task not found")
	ErrMemberNotFound = categorized(ErrNotFound, "member not found")
	ErrTokenNotFound  = categorized(ErrNotFound, "token not found")

	ErrNotTeamMember        = categorized(ErrPermission, "not a member of this team")
	ErrNotReservationHolder = categorized(ErrPermission, "task is reserved by another user")

	ErrTaskReserved     = categorized(ErrConflict, "task is already reserved")
	ErrTaskNotOpen      = categorized(ErrConflict, "task is not open")
	ErrTaskNotReserved  = categorized(ErrConflict, "task is not reserved")
	ErrTaskNotPending   = categorized(ErrConflict, "task is not awaiting review")
	ErrAlreadyMember    = categorized(ErrConflict, "already a member of this team")
	ErrOwnerMembership  = categorized(ErrConflict, "the owner cannot hold a membership row")
	ErrEmailTaken       = categorized(ErrConflict, "email already registered")
	ErrConcurrentChange = categorized(ErrConflict, "task changed concurrently, reload and retry")

	ErrInsufficientEvidence = categorized(ErrValidation, "not enough evidence photos")
	ErrTooManyPhotos        = categorized(ErrValidation, "too many evidence photos")
	ErrUnsupportedPhoto     = categorized(ErrValidation, "unsupported photo type")
	ErrInvalidDecision      = categorized(ErrValidation, "decision must be approved or rejected")
	ErrInvalidRole          = categorized(ErrValidation, "invalid role")
	ErrInvalidView          = categorized(ErrValidation, "invalid task view")
	ErrInvalidReward        = categorized(ErrValidation, "rewards must not be negative")
	ErrEmptyMessage         = categorized(ErrValidation, "message needs text or a photo")
	ErrAssigneeNotMember    = categorized(ErrValidation, "assignee is not a member of this team")
	ErrInvalidEmail         = categorized(ErrValidation, "invalid email address")
	ErrInvalidStatement     = categorized(ErrValidation, "invalid statement")

	ErrInvalidCredentials = categorized(ErrUnauthorized, "invalid email or password")
	ErrInvalidToken       = categorized(ErrUnauthorized, "invalid token")
	ErrExpiredToken       = categorized(ErrUnauthorized, "token expired")
)

type domainError struct {
	category error
	msg      string
}

func (e *domainError) Error() string { return e.msg }
func (e *domainError) Unwrap() error { return e.category }

func categorized(category error, msg string) error {
	return &domainError{category: category, msg: msg}
}

// StoreError reports a failure of the relational store itself.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// storeErr wraps err for op. Unique violations surface as conflicts.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: duplicate %s", ErrConflict, op)
	}
	return &StoreError{Op: op, Err: err}
}

func denied(action Action) error {
	return fmt.Errorf("%w: your role cannot %s", ErrPermission, action.describe())
}

func isConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
