package cmd

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/angelmondragon/user-management/internal/users"
	"github.com/angelmondragon/user-management/pkg/config"
	"github.com/angelmondragon/user-management/pkg/db"
	pkgerrors "github.com/angelmondragon/user-management/pkg/errors"
	"github.com/angelmondragon/user-management/pkg/logger"
)

// Runtime is what a subcommand needs from the environment.
type Runtime struct {
	Users users.Service
	DB    db.Pinger
	Close func() error
}

// Opener builds a Runtime. Tests swap it for an in-memory store.
type Opener func(ctx context.Context, verbose bool) (*Runtime, error)

type app struct {
	open    Opener
	runtime *Runtime
	verbose bool
}

func NewRootCommand(open Opener) *cobra.Command {
	a := &app{open: open}

	root := &cobra.Command{
		Use:   "usermgmt",
		Short: "Manage user records",
		Long: `A command-line interface to the user record store.

It runs the same validation and conflict checks as the HTTP API against the
store configured through USERMGMT_* environment variables.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log to stderr")

	root.AddCommand(newUserCommand(a), newDBCommand(a))
	return root
}

// withRuntime opens the store for one command and closes it afterwards.
// Failing to open the store is reported as DEPENDENCY_ERROR.
func (a *app) withRuntime(fn func(cmd *cobra.Command, args []string, rt *Runtime) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		rt, err := a.load(cmd.Context())
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, a.close())
		}()
		return fn(cmd, args, rt)
	}
}

func (a *app) load(ctx context.Context) (*Runtime, error) {
	if a.runtime != nil {
		return a.runtime, nil
	}
	if a.open == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "no store configured")
	}
	rt, err := a.open(ctx, a.verbose)
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "connect to store")
		}
		return nil, err
	}
	a.runtime = rt
	return rt, nil
}

func (a *app) close() error {
	if a.runtime == nil || a.runtime.Close == nil {
		return nil
	}
	err := a.runtime.Close()
	a.runtime = nil
	return err
}

// OpenFromEnv loads .env and USERMGMT_* settings and connects to the store.
func OpenFromEnv(ctx context.Context, verbose bool) (*Runtime, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logg := logger.Nop()
	if verbose {
		logg = logger.New(logger.Options{
			ServiceName: "user-management-cli",
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			Format:      cfg.App.LogFormat,
			Output:      stderr(),
		})
	}

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, err
	}
	if cfg.DB.IsSQLite() {
		if err := client.EnsureSQLiteSchema(ctx); err != nil {
			return nil, multierr.Append(err, client.Close())
		}
	}

	svc, err := users.NewService(users.NewRepository(client.DB(), cfg.DB.QueryTimeout), logg, nil)
	if err != nil {
		return nil, multierr.Append(err, client.Close())
	}
	return &Runtime{Users: svc, DB: client, Close: client.Close}, nil
}
