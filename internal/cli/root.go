// Package cli implements mealctl, the operator command line for recovery
// tasks that must work without a session: resetting the admin password,
// inspecting the login throttle, revoking sessions and forcing an archival
// pass. Commands talk to the database directly through the same services
// the server uses.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/keyxmakerx/mealboard/internal/app"
	"github.com/keyxmakerx/mealboard/internal/config"
	"github.com/keyxmakerx/mealboard/internal/database"
	"github.com/keyxmakerx/mealboard/internal/plugins/auth"
	"github.com/keyxmakerx/mealboard/internal/plugins/history"
)

// Operator is the subset of the auth service mealctl drives.
type Operator interface {
	ResetPassword(ctx context.Context, username, newPassword string) (int64, error)
	RevokeUserSessions(ctx context.Context, username string) (int64, error)
	Diagnose(ctx context.Context, input auth.DiagnoseInput) (*auth.Diagnosis, error)
}

// ArchiveRunner runs one archival pass.
type ArchiveRunner interface {
	RunOnce(ctx context.Context) (history.ArchiveResult, error)
}

// Backend is what a command needs once connected.
type Backend struct {
	Auth     Operator
	Archiver ArchiveRunner
	Close    func()
}

// Connector opens a Backend. Tests swap it for in-memory fakes.
type Connector func(ctx context.Context) (*Backend, error)

type cliApp struct {
	connect Connector
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

// NewRootCommand builds mealctl wired to the real database.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithIO(connectDatabase, os.Stdin, os.Stdout, os.Stderr)
}

// NewRootCommandWithIO builds mealctl with an explicit connector and streams.
func NewRootCommandWithIO(connect Connector, in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &cliApp{connect: connect, stdin: in, stdout: out, stderr: errOut}

	cmd := &cobra.Command{
		Use:           "mealctl",
		Short:         "Operator tools for the Mealboard server",
		Long:          "mealctl performs recovery and maintenance tasks directly against the Mealboard database. It reads the same environment variables as the server.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.AddCommand(
		newResetPasswordCmd(a),
		newDiagnoseCmd(a),
		newRevokeSessionsCmd(a),
		newArchiveCmd(a),
	)
	return cmd
}

// withBackend connects, runs fn and releases the connection.
func (a *cliApp) withBackend(ctx context.Context, fn func(*Backend) error) error {
	b, err := a.connect(ctx)
	if err != nil {
		return err
	}
	if b.Close != nil {
		defer b.Close()
	}
	return fn(b)
}

// connectDatabase loads config from the environment, opens MariaDB, applies
// pending migrations and wires the services through the app root.
func connectDatabase(ctx context.Context) (*Backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	db, err := database.NewMariaDB(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	a := app.New(cfg, db, nil)
	return &Backend{
		Auth:     a.Auth,
		Archiver: a.Archiver,
		Close:    func() { db.Close() },
	}, nil
}
