package main

import (
	"context"

	"github.com/dmitrijs2005/skeleton/internal/common"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// createUserConfig holds the flags of the create-user command.
type createUserConfig struct {
	email    string
	password string
	username string
	admin    bool
}

// NewCreateUserCmd creates the create-user subcommand.
func NewCreateUserCmd(deps *Deps) *cobra.Command {
	cfg := &createUserConfig{}

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an account",
		Long: `Creates an account with the given email. The password is prompted for
when -p is omitted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCreateUser(cmd, deps, cfg)
		},
	}

	cmd.Flags().StringVarP(&cfg.email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&cfg.password, "password", "p", "", "account password (prompted when omitted)")
	cmd.Flags().StringVarP(&cfg.username, "username", "u", "admin", "account username")
	cmd.Flags().BoolVarP(&cfg.admin, "admin", "a", false, "grant admin rights")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func runCreateUser(cmd *cobra.Command, deps *Deps, cfg *createUserConfig) error {
	password := cfg.password
	if password == "" {
		pw, err := promptPassword(cmd.OutOrStdout())
		if err != nil {
			return oops.Code("INPUT_FAILED").With("operation", "read password").Wrap(err)
		}
		password = string(pw)
		common.WipeByteArray(pw)
	}
	if password == "" {
		return oops.Code("INPUT_INVALID").Errorf("password is required")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
	defer cancel()

	accounts, closeFn, err := deps.OpenAccounts(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	id, err := accounts.Register(ctx, cfg.admin, cfg.username, password, cfg.email)
	if err != nil {
		return err
	}

	role := "user"
	if cfg.admin {
		role = "admin"
	}
	cmd.Printf("Created %s %q with id %d\n", role, cfg.email, id)
	return nil
}

// NewDeleteUserCmd creates the delete-user subcommand.
func NewDeleteUserCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-user <email>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			accounts, closeFn, err := deps.OpenAccounts(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = closeFn() }()

			if err := accounts.DeleteUserByEmail(ctx, args[0]); err != nil {
				return err
			}
			cmd.Printf("Deleted %q\n", args[0])
			return nil
		},
	}
}
