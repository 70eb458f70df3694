package models

import (
	"time"

	"gorm.io/gorm"
)

type ApprovalStatus string

const (
	ApprovalNone     ApprovalStatus = "none"
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// TaskState is the lifecycle position derived from a task's stored fields.
type TaskState string

const (
	TaskOpen            TaskState = "open"
	TaskReserved        TaskState = "reserved"
	TaskPendingApproval TaskState = "pending_approval"
	TaskApproved        TaskState = "approved"
	TaskRejected        TaskState = "rejected"
)

type Task struct {
	gorm.Model
	TeamID         uint           `gorm:"not null;index" json:"team_id"`
	Title          string         `gorm:"not null" json:"title"`
	Description    string         `gorm:"type:text" json:"description"`
	XP             int            `gorm:"column:xp;not null;default:0" json:"xp"`
	Location       string         `json:"location,omitempty"`
	AssignedTo     *uint          `gorm:"index" json:"assigned_to,omitempty"`
	CreatedBy      uint           `gorm:"not null" json:"created_by"`
	Completed      bool           `gorm:"not null;default:false;index" json:"completed"`
	CompletedBy    *uint          `gorm:"index" json:"completed_by,omitempty"`
	PhotoURL       string         `gorm:"type:text" json:"photo_url,omitempty"`
	ApprovalStatus ApprovalStatus `gorm:"type:varchar(16);not null;default:none;index" json:"approval_status"`
	ReservedBy     *uint          `gorm:"index" json:"reserved_by,omitempty"`
	ReservedAt     *time.Time     `json:"reserved_at,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
}

func (t *Task) State() TaskState {
	if t.Completed {
		switch t.ApprovalStatus {
		case ApprovalApproved:
			return TaskApproved
		case ApprovalRejected:
			return TaskRejected
		default:
			return TaskPendingApproval
		}
	}
	if t.ReservedBy != nil {
		return TaskReserved
	}
	return TaskOpen
}

// Countable reports whether the task's reward belongs to its completer's ledger.
func (t *Task) Countable() bool {
	return t.Completed && t.ApprovalStatus == ApprovalApproved && t.CompletedBy != nil
}

func (t *Task) Photos() []string {
	return DecodeEvidence(t.PhotoURL)
}

// TaskView names the task listings a team page offers.
type TaskView string

const (
	ViewActive    TaskView = "active"
	ViewPending   TaskView = "pending"
	ViewCompleted TaskView = "completed"
	ViewRejected  TaskView = "rejected"
	ViewAll       TaskView = "all"
)

func (v TaskView) Valid() bool {
	switch v {
	case ViewActive, ViewPending, ViewCompleted, ViewRejected, ViewAll:
		return true
	}
	return false
}
