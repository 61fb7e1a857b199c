package main

import (
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for orgctl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "orgctl",
		Short:         "orgctl - operate the orgchart auth service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewHashPasswordCmd())
	cmd.AddCommand(NewIssueTokenCmd())
	cmd.AddCommand(NewRegisterCmd())
	cmd.AddCommand(NewLoginCmd())
	cmd.AddCommand(NewWhoamiCmd())

	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
