package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/orgchart/internal/client/authclient"
	"github.com/dmitrijs2005/orgchart/internal/common"
	"github.com/spf13/cobra"
)

const defaultAddr = "http://localhost:8080"

type accountConfig struct {
	Addr     string
	Username string
}

func (c accountConfig) Validate() error {
	if c.Addr == "" {
		return errors.New("--addr is required")
	}
	if c.Username == "" {
		return errors.New("--username is required")
	}
	return nil
}

type sessionFunc func(c *authclient.Client, ctx context.Context, username, password string) (*authclient.Session, error)

func newAccountCmd(use, short string, call sessionFunc) *cobra.Command {
	var cfg accountConfig

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}

			pw, err := getPassword(cmd.ErrOrStderr(), "Password: ")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			defer common.WipeByteArray(pw)

			s, err := call(authclient.New(cfg.Addr), cmd.Context(), cfg.Username, string(pw))
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), s.Token)
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.Addr, "addr", envOr("ORGCHART_URL", defaultAddr), "server base URL")
	cmd.Flags().StringVar(&cfg.Username, "username", "", "account username")
	return cmd
}

// NewRegisterCmd creates the register subcommand.
func NewRegisterCmd() *cobra.Command {
	return newAccountCmd("register", "Create an account and print its token", (*authclient.Client).Register)
}

// NewLoginCmd creates the login subcommand.
func NewLoginCmd() *cobra.Command {
	return newAccountCmd("login", "Log in and print a fresh token", (*authclient.Client).Login)
}

// NewWhoamiCmd creates the whoami subcommand.
func NewWhoamiCmd() *cobra.Command {
	var addr, token string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the account a token belongs to",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if token == "" {
				return errors.New("token is required (--token or ORGCHART_TOKEN)")
			}

			id, err := authclient.New(addr).Whoami(cmd.Context(), token)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "username: %s\nuser_id:  %s\n", id.Username, id.UserID)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", envOr("ORGCHART_URL", defaultAddr), "server base URL")
	cmd.Flags().StringVar(&token, "token", envOr("ORGCHART_TOKEN", ""), "session token")
	return cmd
}
