package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	authz "github.com/yigit/classroom/internal/app/auth"
	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/app/repositories/memory"
	"github.com/yigit/classroom/internal/app/services"
	"github.com/yigit/classroom/internal/pkg/apperrors"
	"github.com/yigit/classroom/internal/pkg/auth"
)

func TestMain(m *testing.M) {
	auth.BcryptCost = bcrypt.MinCost
	os.Exit(m.Run())
}

type fakeExporter struct {
	actor  authz.Actor
	formID int64
	err    error
}

func (f *fakeExporter) ExportFormResponses(_ context.Context, actor authz.Actor, formID int64) (*services.Spreadsheet, error) {
	f.actor, f.formID = actor, formID
	if f.err != nil {
		return nil, f.err
	}
	return &services.Spreadsheet{Filename: "quiz-responses.xlsx", Data: []byte("xlsx")}, nil
}

func setup(t *testing.T) (*commandLine, *services.AuthService, *fakeExporter) {
	t.Helper()
	repos := memory.NewRepositories()
	jwt := auth.NewJWTService(auth.JWTConfig{SecretKey: "test-secret", AccessTokenExp: time.Hour, RefreshTokenExp: 24 * time.Hour})
	authSvc := services.NewAuthService(repos.UserRepository, repos.TokenRepository, jwt, zerolog.Nop(), time.Now)
	exporter := &fakeExporter{}

	return &commandLine{
		migrationsDir: "migrations",
		migrate: func(_ context.Context, dir string) (int, error) {
			if dir == "missing" {
				return 0, errors.New("failed to read migration directory")
			}
			return 2, nil
		},
		accounts: authSvc,
		exporter: exporter,
		out:      &bytes.Buffer{},
		logger:   zerolog.Nop(),
	}, authSvc, exporter
}

func withPassword(t *testing.T, pwd string) {
	t.Helper()
	prev := readPasswordFunc
	readPasswordFunc = func() ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = prev })
}

func TestCommandLine_Usage(t *testing.T) {
	cli, _, _ := setup(t)
	ctx := context.Background()

	assert.ErrorIs(t, cli.run(ctx, []string{"admin"}), errHelp)
	assert.ErrorIs(t, cli.run(ctx, []string{"admin", "lol"}), errHelp)
	assert.Contains(t, cli.out.(*bytes.Buffer).String(), "reset-password")
}

func TestCommandLine_Migrate(t *testing.T) {
	cli, _, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, cli.run(ctx, []string{"admin", "migrate"}))
	assert.Contains(t, cli.out.(*bytes.Buffer).String(), "2 migration(s) applied")

	err := cli.run(ctx, []string{"admin", "migrate", "-dir", "missing"})
	assert.EqualError(t, err, "failed to read migration directory")
}

func TestCommandLine_CreateAdmin(t *testing.T) {
	cli, authSvc, _ := setup(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		args    []string
		pwd     string
		wantErr error
	}{
		{name: "missing username", args: []string{"-email", "root@school.edu"}, pwd: "secret123", wantErr: errHelp},
		{name: "empty password", args: []string{"-username", "root", "-email", "root@school.edu"}, pwd: "", wantErr: errHelp},
		{name: "weak password", args: []string{"-username", "root", "-email", "root@school.edu"}, pwd: "short", wantErr: apperrors.ErrInvalidPassword},
		{name: "ok", args: []string{"-username", "root", "-email", "root@school.edu"}, pwd: "secret123"},
		{name: "duplicate", args: []string{"-username", "root", "-email", "other@school.edu"}, pwd: "secret123", wantErr: apperrors.ErrUsernameExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withPassword(t, tt.pwd)
			err := cli.run(ctx, append([]string{"admin", "create-admin"}, tt.args...))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}

	tokens, err := authSvc.Login(ctx, &dto.LoginRequest{Identifier: "root", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, string(models.RoleAdmin), tokens.User.RoleType)
}

func TestCommandLine_ResetPassword(t *testing.T) {
	cli, authSvc, _ := setup(t)
	ctx := context.Background()

	_, err := authSvc.CreateAdmin(ctx, services.NewAccount{Username: "root", Email: "root@school.edu", Password: "secret123"})
	require.NoError(t, err)

	withPassword(t, "newpass456")
	assert.ErrorIs(t, cli.run(ctx, []string{"admin", "reset-password"}), errHelp)
	assert.ErrorIs(t, cli.run(ctx, []string{"admin", "reset-password", "-username", "ghost"}), apperrors.ErrUserNotFound)
	require.NoError(t, cli.run(ctx, []string{"admin", "reset-password", "-username", "root@school.edu"}))

	_, err = authSvc.Login(ctx, &dto.LoginRequest{Identifier: "root", Password: "secret123"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = authSvc.Login(ctx, &dto.LoginRequest{Identifier: "root", Password: "newpass456"})
	assert.NoError(t, err)
}

func TestCommandLine_ExportResponses(t *testing.T) {
	cli, _, exporter := setup(t)
	ctx := context.Background()

	assert.ErrorIs(t, cli.run(ctx, []string{"admin", "export-responses"}), errHelp)

	out := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, cli.run(ctx, []string{"admin", "export-responses", "-form", "7", "-out", out}))
	assert.Equal(t, int64(7), exporter.formID)
	assert.Equal(t, models.RoleAdmin, exporter.actor.Role)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "xlsx", string(data))

	exporter.err = apperrors.ErrFormNotFound
	assert.ErrorIs(t, cli.run(ctx, []string{"admin", "export-responses", "-form", "8", "-out", out}), apperrors.ErrFormNotFound)
}
