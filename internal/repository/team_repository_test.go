package repository

import (
	"testing"
	"time"

	"github.com/Pokatocz/quest-and-check/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestTeamRepository_ListForUserCoversOwnedAndJoined(t *testing.T) {
	db := setupTestDB(t)
	teams := NewTeamRepository(db)
	members := NewMemberRepository(db)

	owned := &models.Team{Name: "Owned", OwnerID: 1}
	joined := &models.Team{Name: "Joined", OwnerID: 2}
	other := &models.Team{Name: "Other", OwnerID: 3}
	for _, team := range []*models.Team{owned, joined, other} {
		require.NoError(t, teams.Create(team))
	}
	require.NoError(t, members.Create(&models.TeamMember{TeamID: joined.ID, UserID: 1, Role: models.TeamRoleEmployee}))

	list, err := teams.ListForUser(1)
	require.NoError(t, err)

	var names []string
	for _, team := range list {
		names = append(names, team.Name)
	}
	assert.ElementsMatch(t, []string{"Owned", "Joined"}, names)
}

func TestMemberRepository_DuplicateMembershipIsRejected(t *testing.T) {
	db := setupTestDB(t)
	members := NewMemberRepository(db)

	require.NoError(t, members.Create(&models.TeamMember{TeamID: 1, UserID: 5, Role: models.TeamRoleEmployee}))
	err := members.Create(&models.TeamMember{TeamID: 1, UserID: 5, Role: models.TeamRoleManager})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestTeamRepository_DeleteCascade(t *testing.T) {
	db := setupTestDB(t)
	teams := NewTeamRepository(db)
	members := NewMemberRepository(db)
	tasks := NewTaskRepository(db)
	messages := NewMessageRepository(db)

	team := &models.Team{Name: "Doomed", OwnerID: 1}
	require.NoError(t, teams.Create(team))
	require.NoError(t, members.Create(&models.TeamMember{TeamID: team.ID, UserID: 2, Role: models.TeamRoleEmployee}))
	createTask(t, tasks, team.ID)
	require.NoError(t, messages.Create(&models.Message{TeamID: team.ID, UserID: 2, Content: "hello"}))

	require.NoError(t, teams.DeleteCascade(team.ID))

	found, err := teams.FindByID(team.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	for _, model := range []interface{}{&models.Task{}, &models.TeamMember{}, &models.Message{}} {
		var count int64
		require.NoError(t, db.Unscoped().Model(model).Where("team_id = ?", team.ID).Count(&count).Error)
		assert.Zero(t, count)
	}
}

func TestProfileRepository_DeleteCascade(t *testing.T) {
	db := setupTestDB(t)
	profiles := NewProfileRepository(db)
	teams := NewTeamRepository(db)
	members := NewMemberRepository(db)
	tokens := NewTokenRepository(db)

	owner := &models.Profile{Email: "owner@example.com", PasswordHash: "x", FullName: "Owner", Role: models.RoleEmployer}
	require.NoError(t, profiles.Create(owner))
	team := &models.Team{Name: "Owned", OwnerID: owner.ID}
	require.NoError(t, teams.Create(team))
	elsewhere := &models.Team{Name: "Elsewhere", OwnerID: 99}
	require.NoError(t, teams.Create(elsewhere))
	require.NoError(t, members.Create(&models.TeamMember{TeamID: elsewhere.ID, UserID: owner.ID, Role: models.TeamRoleEmployee}))
	require.NoError(t, tokens.Create(&models.APIToken{UserID: owner.ID, Token: "t", ExpiresAt: time.Now().Add(time.Hour)}))

	require.NoError(t, profiles.DeleteCascade(owner.ID))

	found, err := profiles.FindByID(owner.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	gone, err := teams.FindByID(team.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := teams.FindByID(elsewhere.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept)

	membership, err := members.Find(elsewhere.ID, owner.ID)
	require.NoError(t, err)
	assert.Nil(t, membership)

	list, err := tokens.FindByUserID(owner.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestProfileRepository_DisplayNames(t *testing.T) {
	profiles := NewProfileRepository(setupTestDB(t))
	ana := &models.Profile{Email: "ana@example.com", PasswordHash: "x", FullName: "Ana", Role: models.RoleEmployee}
	require.NoError(t, profiles.Create(ana))

	names, err := profiles.DisplayNames([]uint{ana.ID, 404})
	require.NoError(t, err)
	assert.Equal(t, map[uint]string{ana.ID: "Ana"}, names)
}

func TestMessageRepository_ListWindowKeepsChronologicalOrder(t *testing.T) {
	messages := NewMessageRepository(setupTestDB(t))
	for _, content := range []string{"one", "two", "three"} {
		require.NoError(t, messages.Create(&models.Message{TeamID: 1, UserID: 1, Content: content}))
	}

	list, err := messages.ListByTeam(1, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "two", list[0].Content)
	assert.Equal(t, "three", list[1].Content)
}
