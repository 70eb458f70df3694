package services

import (
	"github.com/Pokatocz/quest-and-check/internal/models"
	"github.com/Pokatocz/quest-and-check/internal/repository"
)

// Action is a capability checked against a user's global and team roles.
type Action string

const (
	ActionCreateTeam       Action = "create_team"
	ActionCreateTask       Action = "create_task"
	ActionReserveTask      Action = "reserve_task"
	ActionCompleteTask     Action = "complete_task"
	ActionReleaseAny       Action = "release_any_reservation"
	ActionReviewTask       Action = "review_task"
	ActionDeleteTask       Action = "delete_task"
	ActionManageMembers    Action = "manage_members"
	ActionConfigureRewards Action = "configure_rewards"
	ActionDeleteTeam       Action = "delete_team"
	ActionViewTeam         Action = "view_team"
	ActionPostMessage      Action = "post_message"
)

func (a Action) describe() string {
	switch a {
	case ActionCreateTeam:
		return "create teams"
	case ActionCreateTask:
		return "create tasks"
	case ActionReserveTask:
		return "reserve tasks"
	case ActionCompleteTask:
		return "complete tasks"
	case ActionReleaseAny:
		return "release another user's reservation"
	case ActionReviewTask:
		return "review tasks"
	case ActionDeleteTask:
		return "delete tasks"
	case ActionManageMembers:
		return "manage members"
	case ActionConfigureRewards:
		return "configure rewards"
	case ActionDeleteTeam:
		return "delete this team"
	default:
		return string(a)
	}
}

// Allowed is the capability gate. Both role axes take part: an employer
// account may create and moderate tasks in any team it can access, while a
// team manager gets the same powers from the membership row alone.
func Allowed(global models.GlobalRole, team models.TeamRole, action Action) bool {
	supervisor := global == models.RoleEmployer ||
		team == models.TeamRoleOwner ||
		team == models.TeamRoleManager

	switch action {
	case ActionCreateTeam:
		return global == models.RoleEmployer
	case ActionCreateTask, ActionReleaseAny, ActionReviewTask, ActionDeleteTask:
		return supervisor
	case ActionReserveTask, ActionCompleteTask:
		return global == models.RoleEmployee
	case ActionManageMembers, ActionConfigureRewards, ActionDeleteTeam:
		return team == models.TeamRoleOwner
	case ActionViewTeam, ActionPostMessage:
		return true
	default:
		return false
	}
}

// EffectiveRole: owner when the team names the user as owner, otherwise the
// membership row's role, otherwise employee.
func EffectiveRole(team *models.Team, userID uint, member *models.TeamMember) models.TeamRole {
	if team.OwnerID == userID {
		return models.TeamRoleOwner
	}
	if member != nil && member.Role.Assignable() {
		return member.Role
	}
	return models.TeamRoleEmployee
}

// Standing is a user's resolved position in one team.
type Standing struct {
	Team    *models.Team
	Profile *models.Profile
	Role    models.TeamRole
	// Member is true for the owner and for users with a membership row.
	Member bool
}

func (s *Standing) Can(action Action) bool {
	return Allowed(s.Profile.Role, s.Role, action)
}

type RoleResolver struct {
	teamRepo    *repository.TeamRepository
	memberRepo  *repository.MemberRepository
	profileRepo *repository.ProfileRepository
}

func NewRoleResolver(teamRepo *repository.TeamRepository, memberRepo *repository.MemberRepository, profileRepo *repository.ProfileRepository) *RoleResolver {
	return &RoleResolver{
		teamRepo:    teamRepo,
		memberRepo:  memberRepo,
		profileRepo: profileRepo,
	}
}

func (r *RoleResolver) Resolve(teamID, userID uint) (*Standing, error) {
	profile, err := r.profileRepo.FindByID(userID)
	if err != nil {
		return nil, storeErr("load profile", err)
	}
	if profile == nil {
		return nil, ErrUserNotFound
	}

	team, err := r.teamRepo.FindByID(teamID)
	if err != nil {
		return nil, storeErr("load team", err)
	}
	if team == nil {
		return nil, ErrTeamNotFound
	}

	member, err := r.memberRepo.Find(teamID, userID)
	if err != nil {
		return nil, storeErr("load membership", err)
	}

	return &Standing{
		Team:    team,
		Profile: profile,
		Role:    EffectiveRole(team, userID, member),
		Member:  team.OwnerID == userID || member != nil,
	}, nil
}

// Require resolves the user's standing and fails unless the user belongs to
// the team and the gate allows action.
func (r *RoleResolver) Require(teamID, userID uint, action Action) (*Standing, error) {
	standing, err := r.Resolve(teamID, userID)
	if err != nil {
		return nil, err
	}
	if !standing.Member {
		return nil, ErrNotTeamMember
	}
	if !standing.Can(action) {
		return nil, denied(action)
	}
	return standing, nil
}
