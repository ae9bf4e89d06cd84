package seed

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	appServices "github.com/yigit/classroom/internal/app/services"
	"github.com/yigit/classroom/internal/config"
)

// AdminCreator is the part of the auth service the seeder needs
type AdminCreator interface {
	EnsureAdmin(ctx context.Context, acc appServices.NewAccount) (bool, error)
}

// EnsureAdmin creates the configured administrator when no ADMIN account exists.
// Nothing happens when no admin password is configured.
func EnsureAdmin(ctx context.Context, auth AdminCreator, cfg config.AdminConfig, lgr zerolog.Logger) error {
	if strings.TrimSpace(cfg.Password) == "" {
		lgr.Debug().Msg("No admin password configured, skipping admin seed")
		return nil
	}

	username := cfg.Username
	if username == "" {
		username = "admin"
	}
	emailAddr := cfg.Email
	if emailAddr == "" {
		emailAddr = username + "@classroom.local"
	}

	created, err := auth.EnsureAdmin(ctx, appServices.NewAccount{
		Username:  username,
		Email:     emailAddr,
		Password:  cfg.Password,
		FirstName: "System",
		LastName:  "Administrator",
	})
	if err != nil {
		lgr.Error().Err(err).Str("username", username).Msg("Error creating default admin")
		return err
	}

	if created {
		lgr.Info().Str("username", username).Msg("Default admin account created")
	} else {
		lgr.Info().Msg("Admin account already exists, skipping seed")
	}
	return nil
}
