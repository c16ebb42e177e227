package main

import (
	"time"

	"github.com/spf13/cobra"
)

// Timeout for a single command's database and mail work.
const defaultTimeout = 30 * time.Second

// NewRootCmd creates the artisan root command.
func NewRootCmd(deps *Deps) *cobra.Command {
	deps.setDefaults()

	cmd := &cobra.Command{
		Use:   "artisan",
		Short: "Account and mail maintenance",
		Long: `artisan manages accounts and sends account mail directly, without a
running server. Database and SMTP settings come from the CONFIG file and
the DATABASE_URL / SMTP_* environment variables.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewCreateUserCmd(deps))
	cmd.AddCommand(NewDeleteUserCmd(deps))
	cmd.AddCommand(NewSendMailCmd(deps))
	cmd.AddCommand(NewSendRegisterMailCmd(deps))
	cmd.AddCommand(NewSendResetMailCmd(deps))

	return cmd
}
