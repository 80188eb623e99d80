package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/baiirun/tracker/internal/db"
	"github.com/baiirun/tracker/internal/model"
	"github.com/baiirun/tracker/internal/snapshot"
)

var (
	flagTaskBucket     string
	flagTaskAssignment string
	flagTaskSemester   string
	flagTaskYear       int
	flagTaskAudience   string
	flagTaskStart      string
	flagTaskEnd        string
	flagTaskProgress   string

	flagFilterBuckets string
	flagFilterYears   string
	flagFilterPreset  string

	flagDupYear  int
	flagDupShift int
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "List and edit tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task under the next free key",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := taskFromFlags(strings.Join(args, " "))
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			added, err := a.admin.AddTask(ctx, actor(), t)
			if err != nil {
				return err
			}
			if flagJSON {
				return writeJSON(cmd.OutOrStdout(), taskToJSON(added))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added task #%d: %s\n", added.Key, added.Title)
			return nil
		})
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, optionally filtered by bucket, year or a saved preset",
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
			return printTasks(cmd.OutOrStdout(), snapshot.Filter(tasks, criteria))
		})
	},
}

var duplicateCmd = &cobra.Command{
	Use:   "duplicate",
	Short: "Copy filtered tasks into a new fiscal year",
	Long: `Copies every task matching --bucket/--year/--preset into --to-year with
fresh keys, shifting START and END by --shift days (default 364, which keeps
weekdays aligned).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagDupYear == 0 {
			return fmt.Errorf("--to-year is required")
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			criteria, err := filterCriteria(ctx, a)
			if err != nil {
				return err
			}
			n, err := a.admin.Duplicate(ctx, actor(), criteria, flagDupYear, flagDupShift)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Duplicated %d task(s) into FY%d\n", n, flagDupYear)
			return nil
		})
	},
}

// taskFromFlags builds a new task from the task flags.
func taskFromFlags(title string) (model.Task, error) {
	t := model.Task{
		Title:           strings.TrimSpace(title),
		Bucket:          strings.TrimSpace(flagTaskBucket),
		AssignmentTitle: strings.TrimSpace(flagTaskAssignment),
		Semester:        strings.TrimSpace(flagTaskSemester),
		FiscalYear:      flagTaskYear,
		Audience:        strings.TrimSpace(flagTaskAudience),
		Progress:        model.Progress(strings.ToUpper(strings.TrimSpace(flagTaskProgress))),
	}
	var err error
	if t.Start, err = db.ParseDateTime(flagTaskStart); err != nil {
		return t, fmt.Errorf("--start: %w", err)
	}
	if t.End, err = db.ParseDateTime(flagTaskEnd); err != nil {
		return t, fmt.Errorf("--end: %w", err)
	}
	if t.Start != nil && t.End != nil && t.End.Before(*t.Start) {
		return t, fmt.Errorf("--end is before --start")
	}
	if t.Progress != "" && !t.Progress.IsValid() {
		return t, fmt.Errorf("invalid --progress %q", flagTaskProgress)
	}
	return t, nil
}

// filterCriteria resolves the filter flags. A preset is combined with any
// explicit buckets or years.
func filterCriteria(ctx context.Context, a *app) (snapshot.Criteria, error) {
	years, err := parseYears(flagFilterYears)
	if err != nil {
		return snapshot.Criteria{}, err
	}
	c := snapshot.Criteria{Buckets: splitList(flagFilterBuckets), Years: years}
	if flagFilterPreset == "" {
		return c, nil
	}

	presets, err := a.db.ListPresets(ctx, actor())
	if err != nil {
		return c, err
	}
	for _, p := range presets {
		if p.Name == flagFilterPreset {
			fromPreset := snapshot.FromPreset(p)
			c.Buckets = append(c.Buckets, fromPreset.Buckets...)
			c.Years = append(c.Years, fromPreset.Years...)
			return c, nil
		}
	}
	return c, fmt.Errorf("preset %q not found for %s", flagFilterPreset, actor())
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagFilterBuckets, "bucket", "", "planner buckets (comma-separated)")
	cmd.Flags().StringVar(&flagFilterYears, "year", "", "fiscal years (comma-separated)")
	cmd.Flags().StringVar(&flagFilterPreset, "preset", "", "apply a saved filter preset of the --as user")
}

func init() {
	taskAddCmd.Flags().StringVar(&flagTaskBucket, "bucket", "", "planner bucket")
	taskAddCmd.Flags().StringVar(&flagTaskAssignment, "assignment", "", "assignment title responsible for the task")
	taskAddCmd.Flags().StringVar(&flagTaskSemester, "semester", "", "semester")
	taskAddCmd.Flags().IntVar(&flagTaskYear, "fy", 0, "fiscal year")
	taskAddCmd.Flags().StringVar(&flagTaskAudience, "audience", "", "audience")
	taskAddCmd.Flags().StringVar(&flagTaskStart, "start", "", "start date (YYYY-MM-DD or YYYY-MM-DDTHH:MM)")
	taskAddCmd.Flags().StringVar(&flagTaskEnd, "end", "", "end date (YYYY-MM-DD or YYYY-MM-DDTHH:MM)")
	taskAddCmd.Flags().StringVar(&flagTaskProgress, "progress", "", "NOT STARTED, IN PROGRESS or COMPLETE")

	addFilterFlags(taskListCmd)
	addFilterFlags(duplicateCmd)
	duplicateCmd.Flags().IntVar(&flagDupYear, "to-year", 0, "fiscal year of the copies")
	duplicateCmd.Flags().IntVar(&flagDupShift, "shift", snapshot.DefaultShiftDays, "days to shift START and END")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(duplicateCmd)
	rootCmd.AddCommand(taskCmd)
}
