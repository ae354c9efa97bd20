// Copyright (c) 2025, the talentgate contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/talentgate/talentgate/internal/auth"
	"github.com/talentgate/talentgate/internal/config"
	"github.com/talentgate/talentgate/internal/database"
)

// RunCreateUserCommand creates the single local operator account.
func RunCreateUserCommand() *cobra.Command {
	var (
		configDir string
		username  string
		password  string
	)

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create the local operator account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			authService, cleanup, err := openAuthService(configDir)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()

			complete, err := authService.IsSetupComplete(ctx)
			if err != nil {
				return err
			}
			if complete {
				cmd.Println("User account already exists; talentgate is a single-operator gateway")
				return nil
			}

			if username == "" {
				if username, err = promptLine(cmd, "Username: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = promptPassword(cmd, "Password: "); err != nil {
					return err
				}
			}

			if _, err := authService.SetupUser(ctx, username, password); err != nil {
				return err
			}

			cmd.Printf("User '%s' created successfully\n", username)
			return nil
		},
	}

	cmd.Flags().StringVar(&configDir, "config-dir", "", "Directory holding config.toml")
	cmd.Flags().StringVar(&username, "username", "", "Username for the new account")
	cmd.Flags().StringVar(&password, "password", "", "Password for the new account (prompted when omitted)")

	return cmd
}

// RunChangePasswordCommand resets the operator password from the CLI.
func RunChangePasswordCommand() *cobra.Command {
	var (
		configDir   string
		username    string
		newPassword string
	)

	cmd := &cobra.Command{
		Use:   "change-password",
		Short: "Reset the operator password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			authService, cleanup, err := openAuthService(configDir)
			if err != nil {
				return err
			}
			defer cleanup()

			if username == "" {
				if username, err = promptLine(cmd, "Username: "); err != nil {
					return err
				}
			}
			if newPassword == "" {
				if newPassword, err = promptPassword(cmd, "New password: "); err != nil {
					return err
				}
			}

			if err := authService.ResetPassword(cmd.Context(), username, newPassword); err != nil {
				return err
			}

			cmd.Println("Password changed successfully")
			return nil
		},
	}

	cmd.Flags().StringVar(&configDir, "config-dir", "", "Directory holding config.toml")
	cmd.Flags().StringVar(&username, "username", "", "Username of the account")
	cmd.Flags().StringVar(&newPassword, "new-password", "", "New password (prompted when omitted)")

	return cmd
}

func openAuthService(configDir string) (*auth.Service, func(), error) {
	cfg, err := config.New(configDir)
	if err != nil {
		return nil, nil, err
	}

	db, err := database.New(cfg.GetDatabasePath())
	if err != nil {
		return nil, nil, err
	}

	return auth.NewService(db), func() { _ = db.Close() }, nil
}

func promptLine(cmd *cobra.Command, prompt string) (string, error) {
	cmd.Print(prompt)

	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", errors.Wrap(err, "failed to read input")
	}

	value := strings.TrimSpace(line)
	if value == "" {
		return "", errors.New("input must not be empty")
	}
	return value, nil
}

func promptPassword(cmd *cobra.Command, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptLine(cmd, prompt)
	}

	cmd.Print(prompt)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", errors.Wrap(err, "failed to read password")
	}

	password := strings.TrimSpace(string(raw))
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	return password, nil
}
