package main

import (
	"context"
	"errors"
	"os"

	"github.com/yigit/classroom/internal/bootstrap"
	"github.com/yigit/classroom/internal/pkg/logger"
)

func main() {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(os.Getenv("CLASSROOM_CONFIG"))
	if err != nil {
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := bootstrap.ConnectDatabase(ctx, cfg, lgr)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}

	deps, err := bootstrap.BuildServices(ctx, cfg, pool, lgr)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to build services")
		os.Exit(1)
	}
	defer deps.Close()

	cli := commandLine{
		migrationsDir: cfg.Database.MigrationsDir,
		migrate: func(ctx context.Context, dir string) (int, error) {
			if pool == nil {
				return 0, errors.New("migrations need the postgres driver")
			}
			return runMigrations(ctx, pool, dir, lgr)
		},
		accounts: deps.Services.Auth,
		exporter: deps.Services.Export,
		out:      os.Stdout,
		logger:   logger.Component("admin"),
	}
	if err := cli.run(ctx, os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			lgr.Error().Err(err).Msg("Command failed")
		}
		os.Exit(1)
	}
}
