package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/keyxmakerx/mealboard/internal/plugins/auth"
)

func newResetPasswordCmd(a *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <username>",
		Short: "Set a new password, unlock the account and revoke its sessions",
		Long: `Prompts twice for a new password (input is not echoed), then:

  - stores the new bcrypt hash
  - reactivates the account
  - clears its failed login attempts
  - revokes every session it holds`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := promptNewPassword(a.stderr)
			if err != nil {
				return err
			}
			return a.withBackend(cmd.Context(), func(b *Backend) error {
				revoked, err := b.Auth.ResetPassword(cmd.Context(), args[0], password)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "password reset for %s; %d session(s) revoked\n", args[0], revoked)
				return nil
			})
		},
	}
}

func newRevokeSessionsCmd(a *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke-sessions <username>",
		Short: "Revoke every session held by a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd.Context(), func(b *Backend) error {
				revoked, err := b.Auth.RevokeUserSessions(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "%d session(s) revoked for %s\n", revoked, args[0])
				return nil
			})
		},
	}
}

func newArchiveCmd(a *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "Run one archival pass now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withBackend(cmd.Context(), func(b *Backend) error {
				res, err := b.Archiver.RunOnce(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "archived %d, skipped %d, failed %d\n", res.Archived, res.Skipped, res.Failed)
				return nil
			})
		},
	}
}

func newDiagnoseCmd(a *cliApp) *cobra.Command {
	var (
		username      string
		ip            string
		checkPassword bool
	)
	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Show users, recent login attempts and lock status",
		Long: `Lists every user and the login attempts inside the throttle window.
With --username or --ip, also reports whether that key is locked and for how
long. --check-password prompts for a password and verifies it against the
stored hash without recording a login attempt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			input := auth.DiagnoseInput{Username: username, IP: ip}
			if checkPassword {
				if username == "" {
					return fmt.Errorf("--check-password requires --username")
				}
				pw, err := promptPassword(a.stderr, "Password to check: ")
				if err != nil {
					return err
				}
				input.Password = pw
			}
			return a.withBackend(cmd.Context(), func(b *Backend) error {
				d, err := b.Auth.Diagnose(cmd.Context(), input)
				if err != nil {
					return err
				}
				a.printDiagnosis(d, input)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username to check lock status for")
	cmd.Flags().StringVar(&ip, "ip", "", "client IP to check lock status for")
	cmd.Flags().BoolVar(&checkPassword, "check-password", false, "prompt for a password and verify it")
	return cmd
}

func (a *cliApp) printDiagnosis(d *auth.Diagnosis, input auth.DiagnoseInput) {
	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "USERNAME\tDISPLAY NAME\tACTIVE\tLAST LOGIN")
	for _, u := range d.Users {
		last := "never"
		if u.LastLogin != nil {
			last = u.LastLogin.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", u.Username, u.DisplayName, u.IsActive, last)
	}
	w.Flush()

	fmt.Fprintf(a.stdout, "\nRecent attempts: %d\n", len(d.RecentAttempts))
	if len(d.RecentAttempts) > 0 {
		fmt.Fprintln(w, "TIME\tUSERNAME\tIP\tRESULT")
		for _, at := range d.RecentAttempts {
			result := "failure"
			if at.Success {
				result = "success"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", at.AttemptedAt.UTC().Format(time.RFC3339), at.Username, at.IPAddress, result)
		}
		w.Flush()
	}

	if input.Username != "" || input.IP != "" {
		fmt.Fprintln(a.stdout)
		fmt.Fprintf(a.stdout, "Failures in window: username=%d ip=%d\n", d.Lockout.UsernameFailures, d.Lockout.IPFailures)
		if d.Lockout.Locked {
			fmt.Fprintf(a.stdout, "Status: LOCKED (retry in %s)\n", d.Lockout.RetryAfter.Round(time.Second))
		} else {
			fmt.Fprintln(a.stdout, "Status: not locked")
		}
	}

	if d.PasswordChecked {
		if d.PasswordValid {
			fmt.Fprintln(a.stdout, "Password: matches")
		} else {
			fmt.Fprintln(a.stdout, "Password: does not match")
		}
	}
}
