package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pokatocz/quest-and-check/internal/models"
)

func TestTokenService_GenerateListDelete(t *testing.T) {
	env := setupTestEnv(t)
	user := env.profile(t, "Token User", models.RoleEmployee)

	first, _, err := env.tokenSvc.GenerateToken(user.ID, "cli", time.Hour)
	require.NoError(t, err)
	second, _, err := env.tokenSvc.GenerateToken(user.ID, "cli", time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "tokens issued in the same second differ")

	tokens, err := env.tokenSvc.ListUserTokens(user.ID)
	require.NoError(t, err)
	require.Len(t, tokens, 2)

	other := env.profile(t, "Other", models.RoleEmployee)
	assert.ErrorIs(t, env.tokenSvc.DeleteToken(tokens[0].ID, other.ID), ErrTokenNotFound)
	require.NoError(t, env.tokenSvc.DeleteToken(tokens[0].ID, user.ID))

	tokens, err = env.tokenSvc.ListUserTokens(user.ID)
	require.NoError(t, err)
	assert.Len(t, tokens, 1)
}

func TestTokenService_RejectsForeignAndExpiredTokens(t *testing.T) {
	env := setupTestEnv(t)
	user := env.profile(t, "Token User", models.RoleEmployee)

	_, err := env.tokenSvc.ValidateToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = env.tokenSvc.GenerateToken(9999, "ghost", time.Hour)
	assert.ErrorIs(t, err, ErrUserNotFound)

	token, _, err := env.tokenSvc.GenerateToken(user.ID, "short", time.Minute)
	require.NoError(t, err)

	later := time.Now().Add(2 * time.Minute)
	env.tokenSvc.now = func() time.Time { return later }
	_, err = env.tokenSvc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)

	purged, err := env.tokenSvc.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}
