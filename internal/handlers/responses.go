package handlers

import (
	"time"

	"github.com/Pokatocz/quest-and-check/internal/models"
)

type ProfileResponse struct {
	ID        uint              `json:"id"`
	Email     string            `json:"email"`
	FullName  string            `json:"full_name"`
	Role      models.GlobalRole `json:"role"`
	CreatedAt time.Time         `json:"created_at"`
}

func newProfileResponse(p *models.Profile) ProfileResponse {
	return ProfileResponse{
		ID:        p.ID,
		Email:     p.Email,
		FullName:  p.FullName,
		Role:      p.Role,
		CreatedAt: p.CreatedAt,
	}
}

type TeamResponse struct {
	ID        uint                 `json:"id"`
	Name      string               `json:"name"`
	OwnerID   uint                 `json:"owner_id"`
	Rewards   models.BonusSchedule `json:"rewards"`
	CreatedAt time.Time            `json:"created_at"`
}

func newTeamResponse(t *models.Team) TeamResponse {
	return TeamResponse{
		ID:        t.ID,
		Name:      t.Name,
		OwnerID:   t.OwnerID,
		Rewards:   t.BonusSchedule(),
		CreatedAt: t.CreatedAt,
	}
}

// TeamDetailResponse is a team as seen by the caller.
type TeamDetailResponse struct {
	TeamResponse
	Role models.TeamRole `json:"role"`
}

type TaskResponse struct {
	ID             uint                  `json:"id"`
	TeamID         uint                  `json:"team_id"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	XP             int                   `json:"xp"`
	Location       string                `json:"location,omitempty"`
	AssignedTo     *uint                 `json:"assigned_to,omitempty"`
	CreatedBy      uint                  `json:"created_by"`
	State          models.TaskState      `json:"state"`
	Completed      bool                  `json:"completed"`
	CompletedBy    *uint                 `json:"completed_by,omitempty"`
	ApprovalStatus models.ApprovalStatus `json:"approval_status"`
	Photos         []string              `json:"photos"`
	ReservedBy     *uint                 `json:"reserved_by,omitempty"`
	ReservedAt     *time.Time            `json:"reserved_at,omitempty"`
	CompletedAt    *time.Time            `json:"completed_at,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}

func newTaskResponse(t *models.Task) TaskResponse {
	photos := t.Photos()
	if photos == nil {
		photos = []string{}
	}
	return TaskResponse{
		ID:             t.ID,
		TeamID:         t.TeamID,
		Title:          t.Title,
		Description:    t.Description,
		XP:             t.XP,
		Location:       t.Location,
		AssignedTo:     t.AssignedTo,
		CreatedBy:      t.CreatedBy,
		State:          t.State(),
		Completed:      t.Completed,
		CompletedBy:    t.CompletedBy,
		ApprovalStatus: t.ApprovalStatus,
		Photos:         photos,
		ReservedBy:     t.ReservedBy,
		ReservedAt:     t.ReservedAt,
		CompletedAt:    t.CompletedAt,
		CreatedAt:      t.CreatedAt,
	}
}

func newTaskResponses(tasks []models.Task) []TaskResponse {
	response := make([]TaskResponse, len(tasks))
	for i := range tasks {
		response[i] = newTaskResponse(&tasks[i])
	}
	return response
}
