package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pokatocz/quest-and-check/internal/models"
)

func TestTeamService_CreateTeamRequiresEmployer(t *testing.T) {
	env := setupTestEnv(t)
	boss := env.profile(t, "Boss", models.RoleEmployer)
	worker := env.profile(t, "Worker", models.RoleEmployee)

	team, err := env.teamSvc.CreateTeam(boss.ID, "  Morning Crew ")
	require.NoError(t, err)
	assert.Equal(t, "Morning Crew", team.Name)
	assert.Equal(t, boss.ID, team.OwnerID)
	assert.Equal(t, models.BonusSchedule{}, team.BonusSchedule())

	_, err = env.teamSvc.CreateTeam(worker.ID, "Rebels")
	assert.ErrorIs(t, err, ErrPermission)

	_, err = env.teamSvc.CreateTeam(boss.ID, " ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTeamService_JoinTeam(t *testing.T) {
	env := setupTestEnv(t)
	boss := env.profile(t, "Boss", models.RoleEmployer)
	worker := env.profile(t, "Worker", models.RoleEmployee)
	team := env.team(t, boss)

	member, err := env.teamSvc.JoinTeam(worker.ID, team.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TeamRoleEmployee, member.Role)

	_, err = env.teamSvc.JoinTeam(worker.ID, team.ID)
	assert.ErrorIs(t, err, ErrAlreadyMember)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = env.teamSvc.JoinTeam(boss.ID, team.ID)
	assert.ErrorIs(t, err, ErrOwnerMembership)

	_, err = env.teamSvc.JoinTeam(worker.ID, 4242)
	assert.ErrorIs(t, err, ErrTeamNotFound)
}

func TestTeamService_MemberRoles(t *testing.T) {
	env := setupTestEnv(t)
	boss := env.profile(t, "Boss", models.RoleEmployer)
	alice := env.profile(t, "Alice", models.RoleEmployee)
	bob := env.profile(t, "Bob", models.RoleEmployee)
	team := env.team(t, boss, alice, bob)

	require.NoError(t, env.teamSvc.SetMemberRole(boss.ID, team.ID, alice.ID, models.TeamRoleManager))

	standing, err := env.teamSvc.GetTeam(alice.ID, team.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TeamRoleManager, standing.Role)

	err = env.teamSvc.SetMemberRole(alice.ID, team.ID, bob.ID, models.TeamRoleManager)
	assert.ErrorIs(t, err, ErrPermission, "only the owner changes roles")

	err = env.teamSvc.SetMemberRole(boss.ID, team.ID, bob.ID, models.TeamRoleOwner)
	assert.ErrorIs(t, err, ErrInvalidRole)

	err = env.teamSvc.SetMemberRole(boss.ID, team.ID, boss.ID, models.TeamRoleEmployee)
	assert.ErrorIs(t, err, ErrOwnerMembership)

	members, err := env.teamSvc.ListMembers(bob.ID, team.ID)
	require.NoError(t, err)
	assert.Equal(t, []MemberView{
		{UserID: boss.ID, FullName: "Boss", Role: models.TeamRoleOwner},
		{UserID: alice.ID, FullName: "Alice", Role: models.TeamRoleManager},
		{UserID: bob.ID, FullName: "Bob", Role: models.TeamRoleEmployee},
	}, members)
}

func TestTeamService_RemoveMember(t *testing.T) {
	env := setupTestEnv(t)
	boss := env.profile(t, "Boss", models.RoleEmployer)
	alice := env.profile(t, "Alice", models.RoleEmployee)
	bob := env.profile(t, "Bob", models.RoleEmployee)
	team := env.team(t, boss, alice, bob)

	assert.ErrorIs(t, env.teamSvc.RemoveMember(alice.ID, team.ID, bob.ID), ErrPermission)
	require.NoError(t, env.teamSvc.RemoveMember(bob.ID, team.ID, bob.ID), "members may leave")
	require.NoError(t, env.teamSvc.RemoveMember(boss.ID, team.ID, alice.ID))
	assert.ErrorIs(t, env.teamSvc.RemoveMember(boss.ID, team.ID, alice.ID), ErrMemberNotFound)

	_, err := env.teamSvc.GetTeam(alice.ID, team.ID)
	assert.ErrorIs(t, err, ErrNotTeamMember)
}

func TestTeamService_BonusSchedule(t *testing.T) {
	env := setupTestEnv(t)
	boss := env.profile(t, "Boss", models.RoleEmployer)
	alice := env.profile(t, "Alice", models.RoleEmployee)
	team := env.team(t, boss, alice)

	_, err := env.teamSvc.UpdateBonusSchedule(boss.ID, team.ID, models.BonusSchedule{First: 10, Second: -1})
	assert.ErrorIs(t, err, ErrInvalidReward)

	_, err = env.teamSvc.UpdateBonusSchedule(alice.ID, team.ID, models.BonusSchedule{First: 10})
	assert.ErrorIs(t, err, ErrPermission)

	updated, err := env.teamSvc.UpdateBonusSchedule(boss.ID, team.ID, models.BonusSchedule{First: 500, Second: 300, Third: 100})
	require.NoError(t, err)
	assert.Equal(t, models.BonusSchedule{First: 500, Second: 300, Third: 100}, updated.BonusSchedule())
}

func TestTeamService_DeleteTeamCascades(t *testing.T) {
	env := setupTestEnv(t)
	boss := env.profile(t, "Boss", models.RoleEmployer)
	alice := env.profile(t, "Alice", models.RoleEmployee)
	team := env.team(t, boss, alice)
	task := env.task(t, boss, team, 10)
	_, err := env.messageSvc.PostMessage(context.Background(), alice.ID, team.ID, "hi", nil)
	require.NoError(t, err)

	assert.ErrorIs(t, env.teamSvc.DeleteTeam(alice.ID, team.ID), ErrPermission)
	require.NoError(t, env.teamSvc.DeleteTeam(boss.ID, team.ID))

	_, err = env.tasks.FindByID(task.ID)
	assert.Error(t, err)

	teams, err := env.teamSvc.ListTeams(alice.ID)
	require.NoError(t, err)
	assert.Empty(t, teams)
}

func TestTeamService_ListTeams(t *testing.T) {
	env := setupTestEnv(t)
	boss := env.profile(t, "Boss", models.RoleEmployer)
	other := env.profile(t, "Other Boss", models.RoleEmployer)
	alice := env.profile(t, "Alice", models.RoleEmployee)
	env.team(t, boss, alice)
	env.team(t, other)

	teams, err := env.teamSvc.ListTeams(alice.ID)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, boss.ID, teams[0].OwnerID)
}
