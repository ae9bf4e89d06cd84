package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/pkg/apperrors"
)

func newTestService() *JWTService {
	return NewJWTService(JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenExp:  15 * time.Minute,
		RefreshTokenExp: 24 * time.Hour,
		TokenIssuer:     "classroom-test",
	})
}

func TestGenerateAndValidate(t *testing.T) {
	svc := newTestService()
	user := &models.User{ID: 12, Username: "ada", RoleType: models.RoleTeacher}

	pair, err := svc.GenerateTokenPair(user)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Len(t, pair.RefreshToken, 36)
	assert.Equal(t, 900, pair.ExpiresIn)
	assert.Equal(t, 86400, pair.RefreshExpiresIn)

	claims, err := svc.ValidateAndExtractClaims(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(12), claims.UserID)
	assert.Equal(t, "ada", claims.Username)
	assert.Equal(t, "TEACHER", claims.RoleType)
}

func TestValidateToken_Errors(t *testing.T) {
	svc := newTestService()
	user := &models.User{ID: 1, Username: "bob", RoleType: models.RoleStudent}

	pair, err := svc.GenerateTokenPair(user)
	require.NoError(t, err)

	expired := newTestService()
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, err := expired.GenerateTokenPair(user)
	require.NoError(t, err)

	other := NewJWTService(JWTConfig{SecretKey: "another", AccessTokenExp: time.Minute, TokenIssuer: "classroom-test"})

	tests := []struct {
		name    string
		svc     *JWTService
		token   string
		wantErr error
	}{
		{name: "empty", svc: svc, token: "", wantErr: apperrors.ErrTokenInvalid},
		{name: "garbage", svc: svc, token: "not.a.jwt", wantErr: apperrors.ErrTokenInvalid},
		{name: "expired", svc: svc, token: old.AccessToken, wantErr: apperrors.ErrTokenExpired},
		{name: "wrong secret", svc: other, token: pair.AccessToken, wantErr: apperrors.ErrTokenInvalid},
		{name: "valid", svc: svc, token: pair.AccessToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.svc.ValidateAndExtractClaims(tt.token)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{header: "Bearer abc.def", want: "abc.def"},
		{header: "bearer abc.def", want: "abc.def"},
		{header: "", wantErr: true},
		{header: "Basic Zm9vOmJhcg==", wantErr: true},
		{header: "Bearer ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, err := ExtractBearerToken(tt.header)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrInvalidFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPassword(t *testing.T) {
	BcryptCost = 4
	hash, err := HashPassword("s3cretpass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cretpass", hash)
	assert.True(t, CheckPassword(hash, "s3cretpass"))
	assert.False(t, CheckPassword(hash, "wrong"))
}
