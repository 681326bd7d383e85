package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/user-management/internal/users"
	pkgerrors "github.com/angelmondragon/user-management/pkg/errors"
)

type userFlags struct {
	userName   string
	firstName  string
	lastName   string
	email      string
	status     string
	department string
}

func (f *userFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.userName, "user-name", "", "Unique login name (4-255 ASCII letters/digits)")
	flags.StringVar(&f.firstName, "first-name", "", "Given name")
	flags.StringVar(&f.lastName, "last-name", "", "Family name")
	flags.StringVar(&f.email, "email", "", "Unique email address")
	flags.StringVar(&f.status, "status", "A", "Lifecycle status: A, I or T")
	flags.StringVar(&f.department, "department", "", "Optional department")
}

// departmentValue is nil unless --department was passed, so an explicit
// empty value still reaches validation.
func (f *userFlags) departmentValue(cmd *cobra.Command) *string {
	if !cmd.Flags().Changed("department") {
		return nil
	}
	d := f.department
	return &d
}

func (f *userFlags) createRequest(cmd *cobra.Command) users.CreateUserRequest {
	return users.CreateUserRequest{
		UserName:   f.userName,
		FirstName:  f.firstName,
		LastName:   f.lastName,
		Email:      f.email,
		UserStatus: f.status,
		Department: f.departmentValue(cmd),
	}
}

func (f *userFlags) updateRequest(cmd *cobra.Command) users.UpdateUserRequest {
	return users.UpdateUserRequest(f.createRequest(cmd))
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "id must be a positive integer").
			WithDetails(map[string]string{"id": "must be a positive integer"})
	}
	return id, nil
}

func newUserCommand(a *app) *cobra.Command {
	userCmd := &cobra.Command{
		Use:     "user",
		Aliases: []string{"users"},
		Short:   "Create, read, update and delete users",
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List every user ordered by id",
		Args:    cobra.NoArgs,
		RunE: a.withRuntime(func(cmd *cobra.Command, args []string, rt *Runtime) error {
			list, err := rt.Users.List(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), list)
		}),
	}

	getCmd := &cobra.Command{
		Use:     "get <id>",
		Aliases: []string{"show"},
		Short:   "Show one user",
		Args:    cobra.ExactArgs(1),
		RunE: a.withRuntime(func(cmd *cobra.Command, args []string, rt *Runtime) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			user, err := rt.Users.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), user)
		}),
	}

	var createFlags userFlags
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Long: `Create a user.

Example:
  usermgmt user create --user-name jdoe1 --first-name John --last-name Doe \
    --email jdoe@example.com --status A --department "R&D"`,
		Args: cobra.NoArgs,
		RunE: a.withRuntime(func(cmd *cobra.Command, args []string, rt *Runtime) error {
			user, err := rt.Users.Create(cmd.Context(), createFlags.createRequest(cmd))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), user)
		}),
	}
	createFlags.bind(createCmd)

	var updateFlags userFlags
	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace every mutable field of a user",
		Long:  "Replace every mutable field of a user. Omitting --department clears it.",
		Args:  cobra.ExactArgs(1),
		RunE: a.withRuntime(func(cmd *cobra.Command, args []string, rt *Runtime) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			user, err := rt.Users.Update(cmd.Context(), id, updateFlags.updateRequest(cmd))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), user)
		}),
	}
	updateFlags.bind(updateCmd)

	deleteCmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a user",
		Args:    cobra.ExactArgs(1),
		RunE: a.withRuntime(func(cmd *cobra.Command, args []string, rt *Runtime) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := rt.Users.Delete(cmd.Context(), id); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]int64{"deleted": id})
		}),
	}

	userCmd.AddCommand(listCmd, getCmd, createCmd, updateCmd, deleteCmd)
	return userCmd
}
