package cmd

import (
	"github.com/spf13/cobra"

	pkgerrors "github.com/angelmondragon/user-management/pkg/errors"
)

func newDBCommand(a *app) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Record store utilities",
	}

	pingCmd := &cobra.Command{
		Use:   "ping",
		Short: "Check connectivity to the record store",
		Args:  cobra.NoArgs,
		RunE: a.withRuntime(func(cmd *cobra.Command, args []string, rt *Runtime) error {
			if err := rt.DB.Ping(cmd.Context()); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ping store")
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{"dbStatus": "OK"})
		}),
	}

	dbCmd.AddCommand(pingCmd)
	return dbCmd
}
