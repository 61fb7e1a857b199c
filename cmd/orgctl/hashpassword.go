package main

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/orgchart/internal/common"
	"github.com/dmitrijs2005/orgchart/internal/server/auth"
	"github.com/spf13/cobra"
)

// NewHashPasswordCmd creates the hash-password subcommand. It is handy for
// seeding accounts directly in the database.
func NewHashPasswordCmd() *cobra.Command {
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print an argon2id hash of a password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var pw []byte
			if fromStdin {
				line, err := readLine(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				pw = []byte(line)
			} else {
				var err error
				pw, err = getPassword(cmd.ErrOrStderr(), "Password: ")
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
			}
			defer common.WipeByteArray(pw)

			hash, err := auth.NewArgon2idHasher().Hash(string(pw))
			if err != nil {
				if errors.Is(err, auth.ErrEmptyPassword) {
					return errors.New("password must not be empty")
				}
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "read the password from standard input instead of the terminal")
	return cmd
}
