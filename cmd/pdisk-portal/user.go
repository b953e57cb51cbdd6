package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/stratuslab/pdisk-portal/internal/database"
	"github.com/stratuslab/pdisk-portal/internal/userauth"
	"github.com/stratuslab/pdisk-portal/internal/util/sliceutil"
	"github.com/stratuslab/pdisk-portal/internal/util/slogx"
	"github.com/stratuslab/pdisk-portal/internal/util/style"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage portal users",
}

var userOptsPath *string

func withUsers(ctx context.Context, f func(ctx context.Context, m *userauth.Manager) error) error {
	opts, err := loadOptions(*userOptsPath)
	if err != nil {
		return err
	}
	log := slogx.DiscardLogger()
	if opts.DB.Debug {
		if log, err = newLogger(opts.Log); err != nil {
			return err
		}
	}
	db, err := database.New(log, opts.DB)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()
	m := userauth.NewManager(log, db, opts.Users)
	defer m.Close()
	return f(ctx, m)
}

// readPassword takes the first line of r, so that passwords never show up in the process list.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

var userAddCmd = &cobra.Command{
	Use:   "add USERNAME",
	Args:  cobra.ExactArgs(1),
	Short: "Create a user, reading the password from stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd.InOrStdin())
		if err != nil {
			return err
		}
		return withUsers(cmd.Context(), func(ctx context.Context, m *userauth.Manager) error {
			user, err := m.AddUser(ctx, args[0], password)
			if err != nil {
				return fmt.Errorf("add user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%v user %v (%v)\n", style.Status(true, "created"), user.Username, user.ID)
			return nil
		})
	},
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd USERNAME",
	Args:  cobra.ExactArgs(1),
	Short: "Change the password of a user, reading it from stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd.InOrStdin())
		if err != nil {
			return err
		}
		return withUsers(cmd.Context(), func(ctx context.Context, m *userauth.Manager) error {
			if err := m.SetPassword(ctx, args[0], password); err != nil {
				return fmt.Errorf("set password: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%v password of %v\n", style.Status(true, "changed"), args[0])
			return nil
		})
	},
}

func blockCmd(use string, blocked bool) *cobra.Command {
	verb := "unblocked"
	short := "Allow a blocked user to log in again"
	if blocked {
		verb = "blocked"
		short = "Block a user and end all their sessions"
	}
	return &cobra.Command{
		Use:   use + " USERNAME",
		Args:  cobra.ExactArgs(1),
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUsers(cmd.Context(), func(ctx context.Context, m *userauth.Manager) error {
				if err := m.SetBlocked(ctx, args[0], blocked); err != nil {
					return fmt.Errorf("set blocked: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%v user %v\n", style.Status(!blocked, verb), args[0])
				return nil
			})
		},
	}
}

func formatUser(u userauth.User) string {
	state := style.Status(true, "active")
	if u.IsBlocked {
		state = style.Status(false, "blocked")
	}
	loggedOut := "-"
	if u.LoggedOutAt != nil {
		loggedOut = u.LoggedOutAt.String()
	}
	return strings.Join([]string{u.Username, state, u.CreatedAt.String(), loggedOut}, "\t")
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Args:  cobra.ExactArgs(0),
	Short: "List users",
	RunE: func(cmd *cobra.Command, _args []string) error {
		return withUsers(cmd.Context(), func(ctx context.Context, m *userauth.Manager) error {
			users, err := m.ListUsers(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "USERNAME\tSTATE\tCREATED\tLAST LOGOUT")
			for _, line := range sliceutil.Map(users, formatUser) {
				fmt.Fprintln(w, line)
			}
			return w.Flush()
		})
	},
}

func init() {
	userOptsPath = userCmd.PersistentFlags().StringP(
		"options", "o", "",
		"options file, only the db and users sections are used",
	)
	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userPasswdCmd)
	userCmd.AddCommand(blockCmd("block", true))
	userCmd.AddCommand(blockCmd("unblock", false))
	userCmd.AddCommand(userListCmd)
}
