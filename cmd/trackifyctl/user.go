package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Register, verify and show users",
	}

	cmd.AddCommand(userRegisterCmd())
	cmd.AddCommand(userVerifyCmd())
	cmd.AddCommand(userShowCmd())

	return cmd
}

func userRegisterCmd() *cobra.Command {
	var name, password string

	cmd := &cobra.Command{
		Use:   "register <email>",
		Short: "Register a new user",
		Long: `Register a new user. The password is read from --password or, when
omitted, from the first line of standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordInput(cmd, password)
			if err != nil {
				return err
			}

			svc, cleanup, err := openServices(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := svc.Credentials.Register(cmd.Context(), name, args[0], pw); err != nil {
				return err
			}
			u, err := svc.Credentials.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]string{"email": u.Email, "name": u.Name})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s\n", u.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&password, "password", "", "password (default: read from stdin)")
	return cmd
}

func userVerifyCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "verify <email>",
		Short: "Check a password; exits non-zero when it does not match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordInput(cmd, password)
			if err != nil {
				return err
			}

			svc, cleanup, err := openServices(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			ok, err := svc.Credentials.Verify(cmd.Context(), args[0], pw)
			if err != nil {
				return err
			}
			if jsonOutput {
				if err := printJSON(cmd.OutOrStdout(), map[string]bool{"valid": ok}); err != nil {
					return err
				}
			}
			if !ok {
				return errors.New("credentials do not match")
			}
			if !jsonOutput {
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "password (default: read from stdin)")
	return cmd
}

func userShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <email>",
		Short: "Show a user's profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openServices(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			u, err := svc.Credentials.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]string{"email": u.Email, "name": u.Name})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", u.Email, u.Name)
			return nil
		},
	}
}

// passwordInput returns flagValue, or the first stdin line without its
// line ending.
func passwordInput(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("no password given")
	}
	return line, nil
}
