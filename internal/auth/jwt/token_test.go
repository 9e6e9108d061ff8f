package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager() *Manager {
	return NewManager(TokenConfig{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
	})
}

func TestAccessTokenRoundTrip(t *testing.T) {
	mgr := testManager()
	user := User{
		ID:          uuid.New(),
		Email:       "user@example.com",
		DisplayName: "User",
		Role:        "learner",
	}

	token, err := mgr.GenerateAccessToken(user)
	require.NoError(t, err)

	claims, err := mgr.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, "learner", claims.Role)
	assert.False(t, claims.IsAdmin())
}

func TestRefreshTokenUsesSeparateSecret(t *testing.T) {
	mgr := testManager()
	user := User{ID: uuid.New(), Role: "admin"}

	refresh, err := mgr.GenerateRefreshToken(user)
	require.NoError(t, err)

	_, err = mgr.ValidateAccessToken(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	claims, err := mgr.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin())
}

func TestExpiredTokenRejected(t *testing.T) {
	mgr := NewManager(TokenConfig{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     -time.Minute,
	})

	token, err := mgr.GenerateAccessToken(User{ID: uuid.New()})
	require.NoError(t, err)

	_, err = mgr.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestGarbageTokenRejected(t *testing.T) {
	mgr := testManager()

	_, err := mgr.ValidateAccessToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
