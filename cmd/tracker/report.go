package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/baiirun/tracker/internal/db"
	"github.com/baiirun/tracker/internal/model"
	"github.com/baiirun/tracker/internal/snapshot"
)

var (
	flagLogAction string
	flagLogSource string
	flagLogFrom   string
	flagLogTo     string
	flagLogLimit  int
)

var changelogCmd = &cobra.Command{
	Use:   "changelog",
	Short: "Show the change log, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := changelogFilter()
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			entries, err := a.db.QueryChangelog(ctx, f)
			if err != nil {
				return err
			}
			if flagLogLimit > 0 && len(entries) > flagLogLimit {
				entries = entries[:flagLogLimit]
			}
			if flagJSON {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			return writeChangelog(cmd.OutOrStdout(), entries)
		})
	},
}

func changelogFilter() (db.ChangelogFilter, error) {
	var f db.ChangelogFilter
	if flagLogAction != "" {
		f.Action = model.Action(strings.ToUpper(flagLogAction))
		if !f.Action.IsValid() {
			return f, fmt.Errorf("invalid --action %q (want ADD, DELETE or EDIT)", flagLogAction)
		}
	}
	f.Source = flagLogSource
	if flagLogFrom != "" {
		if f.From = db.ParseDate(flagLogFrom); f.From == nil {
			return f, fmt.Errorf("invalid --from %q", flagLogFrom)
		}
	}
	if flagLogTo != "" {
		if f.To = db.ParseDate(flagLogTo); f.To == nil {
			return f, fmt.Errorf("invalid --to %q", flagLogTo)
		}
	}
	return f, nil
}

func writeChangelog(w io.Writer, entries []model.ChangelogEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No changelog entries")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tACTION\tTASK\tUSER\tSOURCE\tFIELD\tOLD\tNEW")
	for _, e := range entries {
		task := "N/A"
		if e.TaskKey != 0 {
			task = fmt.Sprintf("#%d", e.TaskKey)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"), e.Action, task, e.User, e.Source,
			e.Field, oneLine(e.OldValue), oneLine(e.NewValue))
	}
	return tw.Flush()
}

// oneLine keeps multi-line values on a single table row.
func oneLine(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the project summary report",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			criteria, err := filterCriteria(ctx, a)
			if err != nil {
				return err
			}
			tasks, err := a.db.LoadTasks(ctx)
			if err != nil {
				return err
			}
			summary := snapshot.Summarize(snapshot.Filter(tasks, criteria), time.Now())
			if flagJSON {
				return writeJSON(cmd.OutOrStdout(), summary)
			}
			return summary.WriteText(cmd.OutOrStdout())
		})
	},
}

func init() {
	changelogCmd.Flags().StringVar(&flagLogAction, "action", "", "only ADD, DELETE or EDIT entries")
	changelogCmd.Flags().StringVar(&flagLogSource, "source", "", "only entries from this source")
	changelogCmd.Flags().StringVar(&flagLogFrom, "from", "", "first day to include (YYYY-MM-DD)")
	changelogCmd.Flags().StringVar(&flagLogTo, "to", "", "last day to include (YYYY-MM-DD)")
	changelogCmd.Flags().IntVarP(&flagLogLimit, "limit", "n", 0, "show at most n entries")
	addFilterFlags(reportCmd)

	rootCmd.AddCommand(changelogCmd)
	rootCmd.AddCommand(reportCmd)
}
