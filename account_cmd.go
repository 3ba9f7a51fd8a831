// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielhkuo/vote-x/models"
)

var (
	password string
	username string
)

var loginCmd = &cobra.Command{
	Use:   "login EMAIL",
	Short: "Sign in and store the tokens",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pw, err := readPassword(cmd)
		if err != nil {
			return err
		}
		profile, err := a.auth.Login(cmd.Context(), args[0], pw)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", profile.Username, profile.Email)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register EMAIL",
	Short: "Create an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if username == "" {
			return fmt.Errorf("--username is required")
		}
		pw, err := readPassword(cmd)
		if err != nil {
			return err
		}
		profile, err := a.client.Register(cmd.Context(), models.RegisterRequest{
			Username: username,
			Email:    args[0],
			Password: pw,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s); run \"votex login %s\" to sign in\n",
			profile.Username, profile.Email, profile.Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored tokens",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := a.auth.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current viewer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := a.resume(cmd.Context()); err != nil {
			return err
		}
		v := a.session.Viewer()
		out := cmd.OutOrStdout()
		switch {
		case v.Authenticated:
			fmt.Fprintf(out, "%s (%s), id %d\n", v.Username, v.Email, v.ID)
		case v.Email != "":
			fmt.Fprintf(out, "guest (last signed in as %s)\n", v.Email)
		default:
			fmt.Fprintln(out, "guest")
		}
		return nil
	},
}

// readPassword returns --password or the first line of stdin.
func readPassword(cmd *cobra.Command) (string, error) {
	if password != "" {
		return password, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("password is required")
	}
	return line, nil
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVarP(&password, "password", "p", "", "Password (read from stdin if omitted)")
	}
	registerCmd.Flags().StringVarP(&username, "username", "u", "", "Username")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
}
