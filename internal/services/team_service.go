package services

import (
	"strings"

	"github.com/Pokatocz/quest-and-check/internal/models"
	"github.com/Pokatocz/quest-and-check/internal/realtime"
	"github.com/Pokatocz/quest-and-check/internal/repository"
)

type createTeamInput struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

// MemberView is one row of a team roster. The owner is listed first.
type MemberView struct {
	UserID   uint            `json:"user_id"`
	FullName string          `json:"full_name"`
	Role     models.TeamRole `json:"role"`
}

type TeamService struct {
	teamRepo    *repository.TeamRepository
	memberRepo  *repository.MemberRepository
	profileRepo *repository.ProfileRepository
	roles       *RoleResolver
	changes     ChangePublisher
}

func NewTeamService(
	teamRepo *repository.TeamRepository,
	memberRepo *repository.MemberRepository,
	profileRepo *repository.ProfileRepository,
	roles *RoleResolver,
	changes ChangePublisher,
) *TeamService {
	return &TeamService{
		teamRepo:    teamRepo,
		memberRepo:  memberRepo,
		profileRepo: profileRepo,
		roles:       roles,
		changes:     publisherOrDiscard(changes),
	}
}

func (s *TeamService) CreateTeam(actorID uint, name string) (*models.Team, error) {
	input := createTeamInput{Name: strings.TrimSpace(name)}
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	profile, err := s.profileRepo.FindByID(actorID)
	if err != nil {
		return nil, storeErr("load profile", err)
	}
	if profile == nil {
		return nil, ErrUserNotFound
	}
	if !Allowed(profile.Role, "", ActionCreateTeam) {
		return nil, denied(ActionCreateTeam)
	}

	team := &models.Team{Name: input.Name, OwnerID: actorID}
	if err := s.teamRepo.Create(team); err != nil {
		return nil, storeErr("create team", err)
	}

	notify(s.changes, realtime.TableTeams, realtime.EventInsert, team.ID, team.ID)
	return team, nil
}

// GetTeam returns the team together with the caller's standing in it.
func (s *TeamService) GetTeam(actorID, teamID uint) (*Standing, error) {
	return s.roles.Require(teamID, actorID, ActionViewTeam)
}

func (s *TeamService) ListTeams(userID uint) ([]models.Team, error) {
	teams, err := s.teamRepo.ListForUser(userID)
	if err != nil {
		return nil, storeErr("list teams", err)
	}
	return teams, nil
}

// DeleteTeam removes the team with all of its tasks, members and messages.
func (s *TeamService) DeleteTeam(actorID, teamID uint) error {
	if _, err := s.roles.Require(teamID, actorID, ActionDeleteTeam); err != nil {
		return err
	}
	if err := s.teamRepo.DeleteCascade(teamID); err != nil {
		return storeErr("delete team", err)
	}

	notify(s.changes, realtime.TableTeams, realtime.EventDelete, teamID, teamID)
	return nil
}

func (s *TeamService) UpdateBonusSchedule(actorID, teamID uint, schedule models.BonusSchedule) (*models.Team, error) {
	if schedule.First < 0 || schedule.Second < 0 || schedule.Third < 0 {
		return nil, ErrInvalidReward
	}
	if _, err := s.roles.Require(teamID, actorID, ActionConfigureRewards); err != nil {
		return nil, err
	}
	if err := s.teamRepo.UpdateBonusSchedule(teamID, schedule); err != nil {
		return nil, storeErr("update rewards", err)
	}

	notify(s.changes, realtime.TableTeams, realtime.EventUpdate, teamID, teamID)

	team, err := s.teamRepo.FindByID(teamID)
	if err != nil {
		return nil, storeErr("reload team", err)
	}
	if team == nil {
		return nil, ErrTeamNotFound
	}
	return team, nil
}

// JoinTeam adds the user to the team as an employee.
func (s *TeamService) JoinTeam(userID, teamID uint) (*models.TeamMember, error) {
	standing, err := s.roles.Resolve(teamID, userID)
	if err != nil {
		return nil, err
	}
	if standing.Team.OwnerID == userID {
		return nil, ErrOwnerMembership
	}
	if standing.Member {
		return nil, ErrAlreadyMember
	}

	member := &models.TeamMember{TeamID: teamID, UserID: userID, Role: models.TeamRoleEmployee}
	if err := s.memberRepo.Create(member); err != nil {
		if err = storeErr("membership", err); isConflict(err) {
			return nil, ErrAlreadyMember
		}
		return nil, err
	}

	notify(s.changes, realtime.TableMembers, realtime.EventInsert, teamID, member.ID)
	return member, nil
}

func (s *TeamService) SetMemberRole(actorID, teamID, memberID uint, role models.TeamRole) error {
	if !role.Assignable() {
		return ErrInvalidRole
	}
	standing, err := s.roles.Require(teamID, actorID, ActionManageMembers)
	if err != nil {
		return err
	}
	if standing.Team.OwnerID == memberID {
		return ErrOwnerMembership
	}

	ok, err := s.memberRepo.UpdateRole(teamID, memberID, role)
	if err != nil {
		return storeErr("update member role", err)
	}
	if !ok {
		return ErrMemberNotFound
	}

	notify(s.changes, realtime.TableMembers, realtime.EventUpdate, teamID, memberID)
	return nil
}

// RemoveMember deletes a membership row. The owner may remove anyone and
// members may remove themselves.
func (s *TeamService) RemoveMember(actorID, teamID, memberID uint) error {
	action := ActionManageMembers
	if actorID == memberID {
		action = ActionViewTeam
	}
	standing, err := s.roles.Require(teamID, actorID, action)
	if err != nil {
		return err
	}
	if standing.Team.OwnerID == memberID {
		return ErrOwnerMembership
	}

	ok, err := s.memberRepo.Delete(teamID, memberID)
	if err != nil {
		return storeErr("remove member", err)
	}
	if !ok {
		return ErrMemberNotFound
	}

	notify(s.changes, realtime.TableMembers, realtime.EventDelete, teamID, memberID)
	return nil
}

func (s *TeamService) ListMembers(actorID, teamID uint) ([]MemberView, error) {
	standing, err := s.roles.Require(teamID, actorID, ActionViewTeam)
	if err != nil {
		return nil, err
	}

	members, err := s.memberRepo.ListByTeam(teamID)
	if err != nil {
		return nil, storeErr("list members", err)
	}

	ownerName := UnknownUserName
	if owner, err := s.profileRepo.FindByID(standing.Team.OwnerID); err != nil {
		return nil, storeErr("load owner", err)
	} else if owner != nil {
		ownerName = owner.FullName
	}

	views := make([]MemberView, 0, len(members)+1)
	views = append(views, MemberView{UserID: standing.Team.OwnerID, FullName: ownerName, Role: models.TeamRoleOwner})
	for _, m := range members {
		name := UnknownUserName
		if m.Profile != nil {
			name = m.Profile.FullName
		}
		views = append(views, MemberView{UserID: m.UserID, FullName: name, Role: m.Role})
	}
	return views, nil
}
