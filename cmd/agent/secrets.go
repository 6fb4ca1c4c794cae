package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"autonomous-agent/internal/config"
	"autonomous-agent/internal/secrets"
)

func newSecretsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Manage passwords in the OS keyring",
	}
	cmd.AddCommand(newSecretsSetCmd(g), newSecretsDeleteCmd(g))
	return cmd
}

func newSecretsSetCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set <imap|bluesky|db>",
		Short: "Store a password read from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := secretAccount(cmd, g, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "password for %s: ", account)
			pw, err := promptSecret(cmd)
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := secrets.Set(account, pw); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", account)
			return nil
		},
	}
}

func newSecretsDeleteCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <imap|bluesky|db>",
		Short: "Remove a stored password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := secretAccount(cmd, g, args[0])
			if err != nil {
				return err
			}
			if err := secrets.Delete(account); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", account)
			return nil
		},
	}
}

func secretAccount(cmd *cobra.Command, g *globalFlags, arg string) (string, error) {
	kind, err := secrets.ParseKind(arg)
	if err != nil {
		return "", err
	}
	cfg, _, err := g.load(cmd)
	if err != nil {
		return "", err
	}
	return secrets.Account(cfg, kind), nil
}

// promptSecret hides input on a terminal and falls back to a plain line read
// when stdin is piped.
func promptSecret(cmd *cobra.Command) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	return readSecret(cmd.InOrStdin())
}

func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newConfigCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the config file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write an example config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				if _, err := os.Stat(g.configPath); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", g.configPath)
				}
			}
			if err := config.SaveAtomic(g.configPath, config.Example()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", g.configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective config with passwords removed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := g.load(cmd)
			if err != nil {
				return err
			}
			cfg.Store.Password = ""
			cfg.Email.Password = ""
			cfg.Bluesky.Password = ""
			return printJSON(cmd.OutOrStdout(), cfg)
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
