package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/baiirun/tracker/internal/ical"
	"github.com/baiirun/tracker/internal/model"
	"github.com/baiirun/tracker/internal/snapshot"
)

var (
	flagCalBucket  string
	flagCalYears   string
	flagCalOut     string
	flagCalTask    int
	flagCalPublish bool
)

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Export tasks as an iCalendar document",
	Long: `Writes the calendar for the dated tasks to stdout (or --out).

With --task the document holds that one task in the task-detail style.
With --publish the feed is regenerated and handed to the configured
publishers (TRACKER_CALENDAR_FILE, TRACKER_CALENDAR_URL) instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			tasks, err := a.db.LoadTasks(ctx)
			if err != nil {
				return err
			}
			if flagCalPublish {
				if len(a.exporter.Publishers) == 0 {
					return fmt.Errorf("no calendar publisher configured")
				}
				if err := a.exporter.Export(ctx, tasks); err != nil {
					return fmt.Errorf("failed to publish calendar: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Published calendar to %d target(s)\n", len(a.exporter.Publishers))
				return nil
			}

			doc, err := renderCalendar(tasks, a.cfg.CalendarName, time.Now())
			if err != nil {
				return err
			}
			return writeDocument(cmd.OutOrStdout(), flagCalOut, doc)
		})
	},
}

// renderCalendar applies the calendar flags to tasks and renders the result.
func renderCalendar(tasks []model.Task, name string, now time.Time) ([]byte, error) {
	opts := ical.Options{Name: name, Now: now, Detail: ical.DetailFeed}

	if flagCalTask != 0 {
		task, ok := snapshot.Find(tasks, flagCalTask)
		if !ok {
			return nil, fmt.Errorf("task #%d not found", flagCalTask)
		}
		if !task.HasDates() {
			return nil, fmt.Errorf("task #%d has no start and end dates", flagCalTask)
		}
		opts.Detail = ical.DetailTask
		return ical.Render([]model.Task{task}, opts), nil
	}

	years, err := parseYears(flagCalYears)
	if err != nil {
		return nil, err
	}
	criteria := snapshot.Criteria{Years: years, Buckets: splitList(flagCalBucket)}
	return ical.Render(snapshot.Dated(snapshot.Filter(tasks, criteria)), opts), nil
}

func writeDocument(stdout io.Writer, path string, doc []byte) error {
	if path == "" {
		_, err := stdout.Write(doc)
		return err
	}
	if err := os.WriteFile(path, doc, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(stdout, "Wrote %s\n", path)
	return nil
}

func init() {
	calendarCmd.Flags().StringVar(&flagCalBucket, "bucket", "", "only these planner buckets (comma-separated)")
	calendarCmd.Flags().StringVar(&flagCalYears, "year", "", "only these fiscal years (comma-separated)")
	calendarCmd.Flags().StringVarP(&flagCalOut, "out", "o", "", "write to this file instead of stdout")
	calendarCmd.Flags().IntVar(&flagCalTask, "task", 0, "export a single task by key")
	calendarCmd.Flags().BoolVar(&flagCalPublish, "publish", false, "publish the full feed to the configured targets")
	rootCmd.AddCommand(calendarCmd)
}
