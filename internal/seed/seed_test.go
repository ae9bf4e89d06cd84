package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appServices "github.com/yigit/classroom/internal/app/services"
	"github.com/yigit/classroom/internal/config"
)

type fakeAdminCreator struct {
	calls   []appServices.NewAccount
	created bool
	err     error
}

func (f *fakeAdminCreator) EnsureAdmin(_ context.Context, acc appServices.NewAccount) (bool, error) {
	f.calls = append(f.calls, acc)
	return f.created, f.err
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	lgr := zerolog.Nop()

	t.Run("skips without password", func(t *testing.T) {
		f := &fakeAdminCreator{}
		require.NoError(t, EnsureAdmin(ctx, f, config.AdminConfig{Username: "root"}, lgr))
		assert.Empty(t, f.calls)
	})

	t.Run("fills defaults", func(t *testing.T) {
		f := &fakeAdminCreator{created: true}
		require.NoError(t, EnsureAdmin(ctx, f, config.AdminConfig{Password: "secret123"}, lgr))
		require.Len(t, f.calls, 1)
		assert.Equal(t, "admin", f.calls[0].Username)
		assert.Equal(t, "admin@classroom.local", f.calls[0].Email)
		assert.Equal(t, "secret123", f.calls[0].Password)
	})

	t.Run("uses configured account", func(t *testing.T) {
		f := &fakeAdminCreator{}
		cfg := config.AdminConfig{Username: "root", Email: "root@school.edu", Password: "secret123"}
		require.NoError(t, EnsureAdmin(ctx, f, cfg, lgr))
		require.Len(t, f.calls, 1)
		assert.Equal(t, "root", f.calls[0].Username)
		assert.Equal(t, "root@school.edu", f.calls[0].Email)
	})

	t.Run("propagates errors", func(t *testing.T) {
		boom := errors.New("boom")
		f := &fakeAdminCreator{err: boom}
		err := EnsureAdmin(ctx, f, config.AdminConfig{Password: "secret123"}, lgr)
		assert.ErrorIs(t, err, boom)
	})
}
