package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	authz "github.com/yigit/classroom/internal/app/auth"
	"github.com/yigit/classroom/internal/app/migrations"
	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/services"
)

var (
	readPasswordFunc = func() ([]byte, error) { return term.ReadPassword(int(syscall.Stdin)) } // mockable

	errHelp = errors.New("help provided")
)

type accountAdmin interface {
	CreateAdmin(ctx context.Context, acc services.NewAccount) (*models.User, error)
	ResetPassword(ctx context.Context, identifier, newPassword string) error
}

type responseExporter interface {
	ExportFormResponses(ctx context.Context, actor authz.Actor, formID int64) (*services.Spreadsheet, error)
}

type commandLine struct {
	migrationsDir string
	migrate       func(ctx context.Context, dir string) (int, error)
	accounts      accountAdmin
	exporter      responseExporter
	out           io.Writer
	logger        zerolog.Logger
}

// systemActor is the identity admin commands act as
var systemActor = authz.Actor{Role: models.RoleAdmin}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate [-dir DIR]                                    - apply pending SQL migrations")
	fmt.Fprintln(cli.out, "  create-admin -username NAME -email EMAIL              - create an ADMIN account, password is prompted")
	fmt.Fprintln(cli.out, "  reset-password -username USERNAME|EMAIL               - reset a user's password, password is prompted")
	fmt.Fprintln(cli.out, "  export-responses -form ID [-out FILE]                 - write a form's responses as XLSX")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		cmd := flag.NewFlagSet("migrate", flag.ContinueOnError)
		cmd.SetOutput(cli.out)
		dir := cmd.String("dir", cli.migrationsDir, "directory holding the .sql migration files")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.runMigrate(ctx, *dir)

	case "create-admin":
		cmd := flag.NewFlagSet("create-admin", flag.ContinueOnError)
		cmd.SetOutput(cli.out)
		username := cmd.String("username", "", "login name of the new admin")
		email := cmd.String("email", "", "email address of the new admin")
		firstName := cmd.String("first-name", "System", "first name")
		lastName := cmd.String("last-name", "Administrator", "last name")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *username == "" || *email == "" {
			cmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.createAdmin(ctx, services.NewAccount{
			Username:  *username,
			Email:     *email,
			Password:  pwd,
			FirstName: *firstName,
			LastName:  *lastName,
		})

	case "reset-password":
		cmd := flag.NewFlagSet("reset-password", flag.ContinueOnError)
		cmd.SetOutput(cli.out)
		username := cmd.String("username", "", "The user's username or email. The password will be prompted next.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *username == "" {
			cmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.resetPassword(ctx, *username, pwd)

	case "export-responses":
		cmd := flag.NewFlagSet("export-responses", flag.ContinueOnError)
		cmd.SetOutput(cli.out)
		formID := cmd.Int64("form", 0, "ID of the form to export")
		out := cmd.String("out", "", "output file, defaults to the generated workbook name")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *formID <= 0 {
			cmd.Usage()
			return errHelp
		}
		return cli.exportResponses(ctx, *formID, *out)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc()
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) runMigrate(ctx context.Context, dir string) error {
	applied, err := cli.migrate(ctx, dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d migration(s) applied\n", applied)
	return nil
}

func (cli *commandLine) createAdmin(ctx context.Context, acc services.NewAccount) error {
	user, err := cli.accounts.CreateAdmin(ctx, acc)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "admin %q created with id %d\n", user.Username, user.ID)
	return nil
}

func (cli *commandLine) resetPassword(ctx context.Context, identifier, pwd string) error {
	if err := cli.accounts.ResetPassword(ctx, identifier, pwd); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "password of %q reset\n", identifier)
	return nil
}

func (cli *commandLine) exportResponses(ctx context.Context, formID int64, path string) error {
	sheet, err := cli.exporter.ExportFormResponses(ctx, systemActor, formID)
	if err != nil {
		return err
	}
	if path == "" {
		path = sheet.Filename
	}
	if err := os.WriteFile(path, sheet.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	cli.logger.Info().Int64("formID", formID).Str("file", path).Int("bytes", len(sheet.Data)).Msg("Responses exported")
	fmt.Fprintf(cli.out, "responses written to %s\n", path)
	return nil
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool, dir string, lgr zerolog.Logger) (int, error) {
	return migrations.NewMigrator(pool, lgr).MigrateFromDirectory(ctx, dir)
}
