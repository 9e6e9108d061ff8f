package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rs/zerolog"

	"github.com/skillgauge/assessment-platform/internal/auth/jwt"
)

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) Create(ctx context.Context, params CreateUserParams) (*User, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *mockUserStore) GetByID(ctx context.Context, userID uuid.UUID) (*User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *mockUserStore) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func testService(store *mockUserStore) *Service {
	return NewService(store, ServiceOptions{
		TokenConfig: jwt.TokenConfig{
			AccessSecret:  []byte("test-access-secret"),
			RefreshSecret: []byte("test-refresh-secret"),
		},
	}, zerolog.Nop())
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("testpassword123")
	assert.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.True(t, len(hash) > 20) // bcrypt hashes are long
}

func TestVerifyPassword(t *testing.T) {
	hash, _ := HashPassword("testpassword123")

	err := VerifyPassword(hash, "testpassword123")
	assert.NoError(t, err)

	err = VerifyPassword(hash, "wrongpassword")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	err = VerifyPassword("", "anything")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestPasswordTooShort(t *testing.T) {
	_, err := HashPassword("short")
	assert.Error(t, err)
	assert.Equal(t, ErrPasswordTooShort, err)
}

func TestRegisterNewUser(t *testing.T) {
	store := new(mockUserStore)
	svc := testService(store)

	store.On("GetByEmail", mock.Anything, "new@example.com").Return(nil, ErrUserNotFound)
	store.On("Create", mock.Anything, mock.MatchedBy(func(p CreateUserParams) bool {
		return p.Email == "new@example.com" && p.Role == RoleLearner && p.PasswordHash != ""
	})).Return(&User{
		ID:          uuid.New(),
		Email:       "new@example.com",
		DisplayName: "New User",
		Role:        RoleLearner,
		CreatedAt:   time.Now(),
	}, nil)

	user, tokens, err := svc.Register(context.Background(), RegisterRequest{
		Email:       "new@example.com",
		Password:    "longenoughpassword",
		DisplayName: "New User",
	})
	require.NoError(t, err)
	assert.Equal(t, RoleLearner, user.Role)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	store.AssertExpectations(t)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	store := new(mockUserStore)
	svc := testService(store)

	store.On("GetByEmail", mock.Anything, "taken@example.com").Return(&User{
		ID:    uuid.New(),
		Email: "taken@example.com",
	}, nil)

	_, _, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "taken@example.com",
		Password: "longenoughpassword",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLoginSuccess(t *testing.T) {
	store := new(mockUserStore)
	svc := testService(store)

	hash, _ := HashPassword("correcthorse")
	userID := uuid.New()
	store.On("GetByEmail", mock.Anything, "user@example.com").Return(&User{
		ID:           userID,
		Email:        "user@example.com",
		Role:         RoleLearner,
		PasswordHash: hash,
	}, nil)
	store.On("UpdateLastLogin", mock.Anything, userID).Return(nil)

	user, tokens, err := svc.Login(context.Background(), LoginRequest{
		Email:    "user@example.com",
		Password: "correcthorse",
	})
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)

	claims, err := svc.ValidateToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.False(t, claims.IsAdmin())
}

func TestLoginWrongPassword(t *testing.T) {
	store := new(mockUserStore)
	svc := testService(store)

	hash, _ := HashPassword("correcthorse")
	store.On("GetByEmail", mock.Anything, "user@example.com").Return(&User{
		ID:           uuid.New(),
		Email:        "user@example.com",
		PasswordHash: hash,
	}, nil)

	_, _, err := svc.Login(context.Background(), LoginRequest{
		Email:    "user@example.com",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUnknownEmail(t *testing.T) {
	store := new(mockUserStore)
	svc := testService(store)

	store.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, ErrUserNotFound)

	_, _, err := svc.Login(context.Background(), LoginRequest{
		Email:    "ghost@example.com",
		Password: "whatever",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginOAuthAccountHasNoPassword(t *testing.T) {
	store := new(mockUserStore)
	svc := testService(store)

	store.On("GetByEmail", mock.Anything, "oauth@example.com").Return(&User{
		ID:    uuid.New(),
		Email: "oauth@example.com",
	}, nil)

	_, _, err := svc.Login(context.Background(), LoginRequest{
		Email:    "oauth@example.com",
		Password: "anything",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginOAuthCreatesAccountOnFirstUse(t *testing.T) {
	store := new(mockUserStore)
	svc := testService(store)

	userID := uuid.New()
	store.On("GetByEmail", mock.Anything, "fresh@example.com").Return(nil, ErrUserNotFound)
	store.On("Create", mock.Anything, mock.MatchedBy(func(p CreateUserParams) bool {
		return p.Email == "fresh@example.com" && p.PasswordHash == ""
	})).Return(&User{ID: userID, Email: "fresh@example.com", Role: RoleLearner}, nil)
	store.On("UpdateLastLogin", mock.Anything, userID).Return(nil)

	user, tokens, err := svc.LoginOAuth(context.Background(), "fresh@example.com", "Fresh")
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.NotEmpty(t, tokens.AccessToken)
	store.AssertExpectations(t)
}

func TestTokenPairReportsConfiguredTTL(t *testing.T) {
	store := new(mockUserStore)
	svc := NewService(store, ServiceOptions{
		TokenConfig: jwt.TokenConfig{
			AccessSecret:  []byte("test-access-secret"),
			RefreshSecret: []byte("test-refresh-secret"),
			AccessTTL:     2 * time.Hour,
		},
	}, zerolog.Nop())

	store.On("GetByEmail", mock.Anything, "ttl@example.com").Return(nil, ErrUserNotFound)
	store.On("Create", mock.Anything, mock.Anything).Return(&User{
		ID:    uuid.New(),
		Email: "ttl@example.com",
		Role:  RoleLearner,
	}, nil)

	_, tokens, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "ttl@example.com",
		Password: "longenoughpassword",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7200), tokens.ExpiresIn)
}

func TestTokenPairDefaultTTL(t *testing.T) {
	store := new(mockUserStore)
	svc := testService(store)

	store.On("GetByEmail", mock.Anything, "default@example.com").Return(nil, ErrUserNotFound)
	store.On("Create", mock.Anything, mock.Anything).Return(&User{
		ID:    uuid.New(),
		Email: "default@example.com",
		Role:  RoleLearner,
	}, nil)

	_, tokens, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "default@example.com",
		Password: "longenoughpassword",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3600), tokens.ExpiresIn)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	store := new(mockUserStore)
	svc := testService(store)

	userID := uuid.New()
	user := &User{ID: userID, Email: "user@example.com", Role: RoleAdmin}

	hash, _ := HashPassword("correcthorse")
	user.PasswordHash = hash
	store.On("GetByEmail", mock.Anything, "user@example.com").Return(user, nil)
	store.On("GetByID", mock.Anything, userID).Return(user, nil)
	store.On("UpdateLastLogin", mock.Anything, userID).Return(nil)

	_, tokens, err := svc.Login(context.Background(), LoginRequest{
		Email:    "user@example.com",
		Password: "correcthorse",
	})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), tokens.RefreshToken)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(refreshed.AccessToken)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin())
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	store := new(mockUserStore)
	svc := testService(store)

	hash, _ := HashPassword("correcthorse")
	userID := uuid.New()
	store.On("GetByEmail", mock.Anything, "user@example.com").Return(&User{
		ID:           userID,
		Email:        "user@example.com",
		PasswordHash: hash,
	}, nil)
	store.On("UpdateLastLogin", mock.Anything, userID).Return(nil)

	_, tokens, err := svc.Login(context.Background(), LoginRequest{
		Email:    "user@example.com",
		Password: "correcthorse",
	})
	require.NoError(t, err)

	// Access and refresh tokens are signed with different secrets.
	_, err = svc.RefreshToken(context.Background(), tokens.AccessToken)
	assert.Error(t, err)
}
