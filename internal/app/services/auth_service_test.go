package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/pkg/apperrors"
)

func registerRequest(username string) *dto.RegisterRequest {
	return &dto.RegisterRequest{
		Username:  username,
		Email:     username + "@school.edu",
		Password:  "secret123",
		FirstName: "Ada",
		LastName:  "Lovelace",
		RoleType:  "STUDENT",
	}
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tokens, err := env.svc.Auth.Register(ctx, registerRequest("ada"))
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, "Bearer", tokens.TokenType)
	require.NotNil(t, tokens.User)
	assert.Equal(t, "STUDENT", tokens.User.RoleType)

	for _, identifier := range []string{"ada", "ADA@school.edu"} {
		t.Run(identifier, func(t *testing.T) {
			resp, err := env.svc.Auth.Login(ctx, &dto.LoginRequest{Identifier: identifier, Password: "secret123"})
			require.NoError(t, err)
			assert.Equal(t, tokens.User.ID, resp.User.ID)
			assert.NotNil(t, resp.User.LastLoginAt)
		})
	}

	_, err = env.svc.Auth.Login(ctx, &dto.LoginRequest{Identifier: "ada", Password: "wrong1234"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = env.svc.Auth.Login(ctx, &dto.LoginRequest{Identifier: "nobody", Password: "secret123"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestAuthService_RegisterRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.svc.Auth.Register(ctx, registerRequest("taken"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(r *dto.RegisterRequest)
		want   error
	}{
		{"admin role", func(r *dto.RegisterRequest) { r.RoleType = "ADMIN" }, apperrors.ErrPermissionDenied},
		{"short username", func(r *dto.RegisterRequest) { r.Username = "ab" }, apperrors.ErrInvalidUsername},
		{"weak password", func(r *dto.RegisterRequest) { r.Password = "lettersonly" }, apperrors.ErrInvalidPassword},
		{"duplicate username", func(r *dto.RegisterRequest) { r.Username = "TAKEN"; r.Email = "new@school.edu" }, apperrors.ErrUsernameExists},
		{"duplicate email", func(r *dto.RegisterRequest) { r.Username = "fresh"; r.Email = "Taken@School.edu" }, apperrors.ErrEmailAlreadyExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := registerRequest("someone")
			tt.mutate(req)
			_, err := env.svc.Auth.Register(ctx, req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuthService_DisabledAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tokens, err := env.svc.Auth.Register(ctx, registerRequest("blocked"))
	require.NoError(t, err)

	user, err := env.repos.UserRepository.GetByID(ctx, tokens.User.ID)
	require.NoError(t, err)
	user.IsActive = false
	require.NoError(t, env.repos.UserRepository.Update(ctx, user))

	_, err = env.svc.Auth.Login(ctx, &dto.LoginRequest{Identifier: "blocked", Password: "secret123"})
	assert.ErrorIs(t, err, apperrors.ErrAccountDisabled)

	_, err = env.svc.Auth.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrAccountDisabled)
}

func TestAuthService_RefreshRotatesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tokens, err := env.svc.Auth.Register(ctx, registerRequest("rotor"))
	require.NoError(t, err)

	refreshed, err := env.svc.Auth.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, refreshed.RefreshToken)

	_, err = env.svc.Auth.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenRevoked)

	require.NoError(t, env.svc.Auth.Logout(ctx, refreshed.RefreshToken))
	_, err = env.svc.Auth.Refresh(ctx, refreshed.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenRevoked)

	assert.NoError(t, env.svc.Auth.Logout(ctx, "unknown-token"))
}

func TestAuthService_ProfileAndPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tokens, err := env.svc.Auth.Register(ctx, registerRequest("grace"))
	require.NoError(t, err)
	_, err = env.svc.Auth.Register(ctx, registerRequest("other"))
	require.NoError(t, err)
	id := tokens.User.ID

	profile, err := env.svc.Auth.UpdateProfile(ctx, id, &dto.UpdateProfileRequest{FirstName: ptr("Grace"), Email: ptr("Grace@Navy.mil")})
	require.NoError(t, err)
	assert.Equal(t, "Grace", profile.FirstName)
	assert.Equal(t, "Lovelace", profile.LastName)
	assert.Equal(t, "grace@navy.mil", profile.Email)

	_, err = env.svc.Auth.UpdateProfile(ctx, id, &dto.UpdateProfileRequest{Email: ptr("other@school.edu")})
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)

	err = env.svc.Auth.ChangePassword(ctx, id, &dto.ChangePasswordRequest{CurrentPassword: "nope1234", NewPassword: "newpass456"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	require.NoError(t, env.svc.Auth.ChangePassword(ctx, id, &dto.ChangePasswordRequest{CurrentPassword: "secret123", NewPassword: "newpass456"}))

	_, err = env.svc.Auth.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenRevoked, "password change signs out every session")

	_, err = env.svc.Auth.Login(ctx, &dto.LoginRequest{Identifier: "grace", Password: "newpass456"})
	assert.NoError(t, err)

	me, err := env.svc.Auth.Me(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "grace", me.Username)
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := NewAccount{Username: "admin", Email: "admin@school.edu", Password: "admin1234"}

	created, err := env.svc.Auth.EnsureAdmin(ctx, acc)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = env.svc.Auth.EnsureAdmin(ctx, acc)
	require.NoError(t, err)
	assert.False(t, created)

	n, err := env.repos.UserRepository.CountByRole(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, env.svc.Auth.ResetPassword(ctx, "admin", "changed123"))
	resp, err := env.svc.Auth.Login(ctx, &dto.LoginRequest{Identifier: "admin@school.edu", Password: "changed123"})
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", resp.User.RoleType)
}
