package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Pokatocz/quest-and-check/internal/middleware"
	"github.com/Pokatocz/quest-and-check/internal/models"
	"github.com/Pokatocz/quest-and-check/internal/services"
)

type TeamHandler struct {
	teamService *services.TeamService
}

func NewTeamHandler(teamService *services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

type CreateTeamRequest struct {
	Name string `json:"name" binding:"required"`
}

type UpdateRewardsRequest struct {
	First  int `json:"first"`
	Second int `json:"second"`
	Third  int `json:"third"`
}

type SetMemberRoleRequest struct {
	Role models.TeamRole `json:"role" binding:"required"`
}

type MembershipResponse struct {
	TeamID uint            `json:"team_id"`
	UserID uint            `json:"user_id"`
	Role   models.TeamRole `json:"role"`
}

// CreateTeam godoc
// @Summary Create a team
// @Description Employers create teams and become their owner
// @Tags teams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTeamRequest true "Team name"
// @Success 201 {object} TeamResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /teams [post]
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	team, err := h.teamService.CreateTeam(middleware.GetUserID(c), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTeamResponse(team))
}

// ListTeams godoc
// @Summary List my teams
// @Description Teams the caller owns or belongs to
// @Tags teams
// @Produce json
// @Security BearerAuth
// @Success 200 {array} TeamResponse
// @Router /teams [get]
func (h *TeamHandler) ListTeams(c *gin.Context) {
	teams, err := h.teamService.ListTeams(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]TeamResponse, len(teams))
	for i := range teams {
		response[i] = newTeamResponse(&teams[i])
	}
	c.JSON(http.StatusOK, response)
}

// GetTeam godoc
// @Summary Get a team
// @Tags teams
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Success 200 {object} TeamDetailResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /teams/{id} [get]
func (h *TeamHandler) GetTeam(c *gin.Context) {
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}

	standing, err := h.teamService.GetTeam(middleware.GetUserID(c), teamID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, TeamDetailResponse{
		TeamResponse: newTeamResponse(standing.Team),
		Role:         standing.Role,
	})
}

// DeleteTeam godoc
// @Summary Delete a team
// @Description Owner only. Removes the team with its tasks, members and messages
// @Tags teams
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /teams/{id} [delete]
func (h *TeamHandler) DeleteTeam(c *gin.Context) {
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.teamService.DeleteTeam(middleware.GetUserID(c), teamID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "team deleted"})
}

// UpdateRewards godoc
// @Summary Configure leaderboard bonuses
// @Description Owner only. Sets the bonus for ranks 1, 2 and 3
// @Tags teams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Param request body UpdateRewardsRequest true "Bonus per rank"
// @Success 200 {object} TeamResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /teams/{id}/rewards [put]
func (h *TeamHandler) UpdateRewards(c *gin.Context) {
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req UpdateRewardsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	schedule := models.BonusSchedule{First: req.First, Second: req.Second, Third: req.Third}
	team, err := h.teamService.UpdateBonusSchedule(middleware.GetUserID(c), teamID, schedule)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTeamResponse(team))
}

// JoinTeam godoc
// @Summary Join a team
// @Description Adds the caller as an employee member
// @Tags members
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Success 201 {object} MembershipResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /teams/{id}/join [post]
func (h *TeamHandler) JoinTeam(c *gin.Context) {
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}

	member, err := h.teamService.JoinTeam(middleware.GetUserID(c), teamID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MembershipResponse{TeamID: member.TeamID, UserID: member.UserID, Role: member.Role})
}

// ListMembers godoc
// @Summary Team roster
// @Tags members
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Success 200 {array} services.MemberView
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /teams/{id}/members [get]
func (h *TeamHandler) ListMembers(c *gin.Context) {
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}

	members, err := h.teamService.ListMembers(middleware.GetUserID(c), teamID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

// SetMemberRole godoc
// @Summary Promote or demote a member
// @Description Owner only. Role is employee or manager
// @Tags members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Param userId path int true "Member user ID"
// @Param request body SetMemberRoleRequest true "New role"
// @Success 200 {object} MembershipResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /teams/{id}/members/{userId} [put]
func (h *TeamHandler) SetMemberRole(c *gin.Context) {
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}
	memberID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	var req SetMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	if err := h.teamService.SetMemberRole(middleware.GetUserID(c), teamID, memberID, req.Role); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MembershipResponse{TeamID: teamID, UserID: memberID, Role: req.Role})
}

// RemoveMember godoc
// @Summary Remove a member
// @Description The owner removes anyone; members may remove themselves
// @Tags members
// @Produce json
// @Security BearerAuth
// @Param id path int true "Team ID"
// @Param userId path int true "Member user ID"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /teams/{id}/members/{userId} [delete]
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	teamID, ok := pathID(c, "id")
	if !ok {
		return
	}
	memberID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	if err := h.teamService.RemoveMember(middleware.GetUserID(c), teamID, memberID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "member removed"})
}
