package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/baiirun/tracker/internal/account"
	"github.com/baiirun/tracker/internal/model"
)

var (
	flagUserPassword   string
	flagUserFirst      string
	flagUserLast       string
	flagUserAssignment string
	flagUserRole       string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

// password returns --password, falling back to $TRACKER_PASSWORD so it can
// be kept out of shell history.
func password() (string, error) {
	if flagUserPassword != "" {
		return flagUserPassword, nil
	}
	if p := os.Getenv("TRACKER_PASSWORD"); p != "" {
		return p, nil
	}
	return "", fmt.Errorf("--password or $TRACKER_PASSWORD is required")
}

var userAddCmd = &cobra.Command{
	Use:   "add <email>",
	Short: "Register a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pw, err := password()
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			u, err := a.accounts.Register(ctx, account.NewUser{
				Email:           args[0],
				Password:        pw,
				FirstName:       flagUserFirst,
				LastName:        flagUserLast,
				AssignmentTitle: flagUserAssignment,
				Role:            model.Role(strings.ToLower(flagUserRole)),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s)\n", u.Email, u.Role)
			return nil
		})
	},
}

// UserJSON is the --json form of a user. The password hash is never shown.
type UserJSON struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	AssignmentTitle string `json:"assignment_title"`
	Role            string `json:"role"`
	Status          string `json:"status"`
	Frequency       string `json:"frequency"`
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List user accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			users, err := a.db.LoadUsers(ctx)
			if err != nil {
				return err
			}
			settings, err := a.db.LoadSettings(ctx)
			if err != nil {
				return err
			}
			out := make([]UserJSON, 0, len(users))
			for _, u := range users {
				freq := model.FrequencyNever
				if i := slices.IndexFunc(settings, func(s model.Setting) bool { return strings.EqualFold(s.Email, u.Email) }); i >= 0 {
					freq = settings[i].Frequency
				}
				status := u.Status
				if status == "" {
					status = model.UserActive
				}
				out = append(out, UserJSON{
					Email:           u.Email,
					Name:            u.Name(),
					AssignmentTitle: u.AssignmentTitle,
					Role:            string(u.Role),
					Status:          string(status),
					Frequency:       string(freq),
				})
			}
			if flagJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			for _, u := range out {
				fmt.Fprintf(cmd.OutOrStdout(), "%-32s %-20s %-14s %-6s %-8s %s\n",
					u.Email, u.Name, u.AssignmentTitle, u.Role, u.Status, u.Frequency)
			}
			return nil
		})
	},
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd <email>",
	Short: "Reset a user's password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pw, err := password()
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.accounts.SetPassword(ctx, args[0], pw); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %s\n", args[0])
			return nil
		})
	},
}

var userRoleCmd = &cobra.Command{
	Use:   "role <email> <admin|viewer>",
	Short: "Change a user's role",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.accounts.SetRole(ctx, args[0], model.Role(strings.ToLower(args[1]))); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", args[0], strings.ToLower(args[1]))
			return nil
		})
	},
}

var userStatusCmd = &cobra.Command{
	Use:   "status <email> <active|inactive>",
	Short: "Enable or disable an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.accounts.SetStatus(ctx, args[0], model.UserStatus(strings.ToLower(args[1]))); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", args[0], strings.ToLower(args[1]))
			return nil
		})
	},
}

var userFrequencyCmd = &cobra.Command{
	Use:   "frequency <email> <Daily|Weekly|Never>",
	Short: "Set how often a user receives the task digest",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		freq, err := parseFrequency(args[1])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			settings, err := a.db.LoadSettings(ctx)
			if err != nil {
				return err
			}
			settings = upsertSetting(settings, args[0], freq)
			if err := a.db.SaveSettings(ctx, settings); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Digest for %s: %s\n", args[0], freq)
			return nil
		})
	},
}

func parseFrequency(raw string) (model.Frequency, error) {
	for _, f := range []model.Frequency{model.FrequencyDaily, model.FrequencyWeekly, model.FrequencyNever} {
		if strings.EqualFold(raw, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("invalid frequency %q (want Daily, Weekly or Never)", raw)
}

func upsertSetting(settings []model.Setting, email string, freq model.Frequency) []model.Setting {
	email = strings.ToLower(strings.TrimSpace(email))
	for i := range settings {
		if strings.EqualFold(settings[i].Email, email) {
			settings[i].Frequency = freq
			return settings
		}
	}
	return append(settings, model.Setting{Email: email, Frequency: freq})
}

func init() {
	userCmd.PersistentFlags().StringVar(&flagUserPassword, "password", "", "password (or set $TRACKER_PASSWORD)")
	userAddCmd.Flags().StringVar(&flagUserFirst, "first", "", "first name")
	userAddCmd.Flags().StringVar(&flagUserLast, "last", "", "last name")
	userAddCmd.Flags().StringVar(&flagUserAssignment, "assignment", "", "assignment title")
	userAddCmd.Flags().StringVar(&flagUserRole, "role", string(model.RoleViewer), "admin or viewer")

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userPasswdCmd)
	userCmd.AddCommand(userRoleCmd)
	userCmd.AddCommand(userStatusCmd)
	userCmd.AddCommand(userFrequencyCmd)
	rootCmd.AddCommand(userCmd)
}
