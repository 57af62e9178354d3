package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/campus-api/internal/models"
	appErrors "github.com/noah-isme/campus-api/pkg/errors"
)

type authRepoStub struct {
	usersByEmail map[string]*models.User
	usersByID    map[string]*models.User
	tokens       map[string]*models.RefreshToken

	revokedTokenIDs []string
	revokedAllFor   []string
	passwordUpdates map[string]string
}

func newAuthRepoStub(users ...*models.User) *authRepoStub {
	stub := &authRepoStub{
		usersByEmail:    map[string]*models.User{},
		usersByID:       map[string]*models.User{},
		tokens:          map[string]*models.RefreshToken{},
		passwordUpdates: map[string]string{},
	}
	for _, u := range users {
		stub.usersByEmail[u.Email] = u
		stub.usersByID[u.ID] = u
	}
	return stub
}

func (s *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := s.usersByEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (s *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := s.usersByID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (s *authRepoStub) Create(ctx context.Context, user *models.User) error {
	s.usersByEmail[user.Email] = user
	s.usersByID[user.ID] = user
	return nil
}

func (s *authRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (s *authRepoStub) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	s.passwordUpdates[id] = passwordHash
	return nil
}

func (s *authRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	s.tokens[token.Token] = token
	return nil
}

func (s *authRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	t, ok := s.tokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return t, nil
}

func (s *authRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	s.revokedTokenIDs = append(s.revokedTokenIDs, id)
	for _, t := range s.tokens {
		if t.ID == id {
			t.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (s *authRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	s.revokedAllFor = append(s.revokedAllFor, userID)
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "campus-api",
	}
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestRegisterRestrictsRoles(t *testing.T) {
	repo := newAuthRepoStub()
	svc := NewAuthService(repo, nil, nil, testAuthConfig())
	ctx := context.Background()

	for _, role := range []models.UserRole{models.RoleAdmin, models.RoleEmployee} {
		_, err := svc.Register(ctx, RegisterRequest{
			Email:    "staff@example.com",
			Password: "secret1",
			FullName: "Staff Member",
			Role:     role,
		})
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}

	user, err := svc.Register(ctx, RegisterRequest{
		Email:    "student@example.com",
		Password: "secret1",
		FullName: "New Student",
		Role:     models.RoleStudent,
	})
	require.NoError(t, err)
	assert.True(t, user.Active)
	assert.Empty(t, user.SchoolID)

	_, err = svc.Register(ctx, RegisterRequest{
		Email:    "student@example.com",
		Password: "secret1",
		FullName: "Duplicate",
		Role:     models.RoleStudent,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestLoginIssuesSchoolScopedToken(t *testing.T) {
	schoolID := "sch-1"
	subRole := "teacher"
	user := &models.User{
		ID:           "user-1",
		Email:        "teacher@example.com",
		PasswordHash: hashPassword(t, "secret1"),
		FullName:     "Jordan Blake",
		Role:         models.RoleEmployee,
		SubRole:      &subRole,
		SchoolID:     &schoolID,
		Active:       true,
	}
	repo := newAuthRepoStub(user)
	svc := NewAuthService(repo, nil, nil, testAuthConfig())
	ctx := context.Background()

	_, err := svc.Login(ctx, models.LoginRequest{Email: "teacher@example.com", Password: "wrong-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	resp, err := svc.Login(ctx, models.LoginRequest{Email: "teacher@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.RefreshToken)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleEmployee, claims.Role)
	assert.Equal(t, "teacher", claims.SubRole)
	assert.Equal(t, "sch-1", claims.SchoolID)
	assert.True(t, claims.HasSchool())
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	user := &models.User{
		ID:           "user-1",
		Email:        "gone@example.com",
		PasswordHash: hashPassword(t, "secret1"),
		FullName:     "Former Student",
		Role:         models.RoleStudent,
		Active:       false,
	}
	svc := NewAuthService(newAuthRepoStub(user), nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "gone@example.com", Password: "secret1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	user := &models.User{
		ID:           "user-1",
		Email:        "student@example.com",
		PasswordHash: hashPassword(t, "secret1"),
		FullName:     "New Student",
		Role:         models.RoleStudent,
		Active:       true,
	}
	repo := newAuthRepoStub(user)
	svc := NewAuthService(repo, nil, nil, testAuthConfig())
	ctx := context.Background()

	login, err := svc.Login(ctx, models.LoginRequest{Email: "student@example.com", Password: "secret1"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(ctx, models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The used token is revoked and cannot be replayed.
	_, err = svc.RefreshToken(ctx, models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	_, err = svc.RefreshToken(ctx, models.RefreshTokenRequest{RefreshToken: refreshed.RefreshToken})
	require.NoError(t, err)
}

func TestRefreshRejectsExpiredToken(t *testing.T) {
	user := &models.User{ID: "user-1", Email: "student@example.com", Role: models.RoleStudent, Active: true}
	repo := newAuthRepoStub(user)
	repo.tokens["stale"] = &models.RefreshToken{
		ID:        "tok-1",
		UserID:    "user-1",
		Token:     "stale",
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestLogoutChecksTokenOwner(t *testing.T) {
	repo := newAuthRepoStub()
	repo.tokens["tok"] = &models.RefreshToken{
		ID:        "tok-1",
		UserID:    "user-1",
		Token:     "tok",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())
	ctx := context.Background()

	err := svc.Logout(ctx, "tok", "user-2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.revokedTokenIDs)

	require.NoError(t, svc.Logout(ctx, "tok", "user-1"))
	assert.Equal(t, []string{"tok-1"}, repo.revokedTokenIDs)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	user := &models.User{
		ID:           "user-1",
		Email:        "student@example.com",
		PasswordHash: hashPassword(t, "old-secret"),
		Role:         models.RoleStudent,
		Active:       true,
	}
	repo := newAuthRepoStub(user)
	svc := NewAuthService(repo, nil, nil, testAuthConfig())
	ctx := context.Background()

	err := svc.ChangePassword(ctx, "user-1", models.ChangePasswordRequest{
		OldPassword: "wrong-secret",
		NewPassword: "new-secret",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.ChangePassword(ctx, "user-1", models.ChangePasswordRequest{
		OldPassword: "old-secret",
		NewPassword: "new-secret",
	}))
	assert.NotEmpty(t, repo.passwordUpdates["user-1"])
	assert.Equal(t, []string{"user-1"}, repo.revokedAllFor)
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	user := &models.User{
		ID:           "user-1",
		Email:        "student@example.com",
		PasswordHash: hashPassword(t, "secret1"),
		Role:         models.RoleStudent,
		Active:       true,
	}
	repo := newAuthRepoStub(user)
	issuer := NewAuthService(repo, nil, nil, testAuthConfig())

	login, err := issuer.Login(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "secret1"})
	require.NoError(t, err)

	otherCfg := testAuthConfig()
	otherCfg.AccessTokenSecret = "other-secret"
	verifier := NewAuthService(repo, nil, nil, otherCfg)

	_, err = verifier.ValidateToken(login.AccessToken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
