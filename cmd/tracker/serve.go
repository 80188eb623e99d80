package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baiirun/tracker/internal/web"
)

var flagAddr string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the tracker database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized tracker database at %s\n", a.cfg.DBPath)
			return nil
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the calendar feed and JSON API",
	Long: `Serves GET /calendar.ics?bucket=&year= for calendar subscriptions,
GET /tasks/<key>/calendar.ics for single-task downloads, and the /api routes
used by the UI (HTTP basic auth against the users table).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			addr := a.cfg.HTTPAddr
			if flagAddr != "" {
				addr = flagAddr
			}
			srv := web.NewServer(web.Deps{
				Store:        a.db,
				Saver:        a.engine,
				Notifier:     a.notify,
				Accounts:     a.accounts,
				CalendarName: a.cfg.CalendarName,
			})
			return srv.Run(ctx, addr)
		})
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (default $TRACKER_HTTP_ADDR or :5005)")
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serveCmd)
}
