package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/genzugar/backend/core"
	"github.com/genzugar/backend/core/user"
)

func (cli *commandLine) addUserCmd() *cobra.Command {
	var (
		email, name string
		isAdmin     bool
	)
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user, or update the password and admin flag of an existing one. The password is prompted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := cli.promptPassword("Enter password: ")
			if err != nil {
				return err
			}
			usr, err := cli.addUser(cmd, email, name, pwd, isAdmin)
			if err != nil {
				return err
			}
			cli.printf("user %s saved (admin: %t)\n", usr.Email, usr.IsAdmin)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "the user's email")
	cmd.Flags().StringVar(&name, "name", "", "the user's full name")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "grant admin rights")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(cmd *cobra.Command, email, name, pwd string, isAdmin bool) (user.User, error) {
	ctx := cmd.Context()
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)

	usr, err := cli.svcs.User.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return user.User{}, err
		}
		nu := user.NewUser{FullName: name, Email: email, Password: pwd, PasswordConfirm: pwd, IsAdmin: isAdmin}
		if err := nu.Validate(cli.svcs.User); err != nil {
			return user.User{}, err
		}
		return cli.svcs.User.Create(ctx, nu)
	}

	if err := user.CheckPasswordPolicy(pwd, usr.FullName, usr.Email); err != nil {
		return user.User{}, err
	}
	if usr, err = cli.svcs.User.SetPassword(ctx, usr, pwd); err != nil {
		return user.User{}, err
	}
	active := true
	return cli.svcs.User.AdminUpdate(ctx, usr, user.AdminUpdateUser{IsAdmin: &isAdmin, IsActive: &active})
}

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a user's password. The new password is prompted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			usr, err := cli.svcs.User.GetByEmail(cmd.Context(), core.CleanString(email, true /* lower */))
			if err != nil {
				return err
			}
			pwd, err := cli.promptPassword("Enter new password: ")
			if err != nil {
				return err
			}
			if err := user.CheckPasswordPolicy(pwd, usr.FullName, usr.Email); err != nil {
				return err
			}
			if _, err := cli.svcs.User.SetPassword(cmd.Context(), usr, pwd); err != nil {
				return errors.Wrap(err, "saving password")
			}
			cli.printf("password of %s reset\n", usr.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "the user's email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
