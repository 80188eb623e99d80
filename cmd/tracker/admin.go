package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baiirun/tracker/internal/model"
	"github.com/baiirun/tracker/internal/snapshot"
)

var titleCmd = &cobra.Command{
	Use:   "title",
	Short: "Manage assignment titles",
}

var titleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List assignment titles in use",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			tasks, err := a.db.LoadTasks(ctx)
			if err != nil {
				return err
			}
			titles := snapshot.Titles(tasks)
			if flagJSON {
				return writeJSON(cmd.OutOrStdout(), titles)
			}
			for _, t := range titles {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		})
	},
}

var titleAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add an assignment title (seeds a placeholder task)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.admin.AddTitle(ctx, actor(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added title %q\n", args[0])
			return nil
		})
	},
}

var titleRenameCmd = &cobra.Command{
	Use:   "rename <old> <new>",
	Short: "Rename an assignment title on tasks and users",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.admin.RenameTitle(ctx, actor(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed title %q to %q\n", args[0], args[1])
			return nil
		})
	},
}

var titleDeleteCmd = &cobra.Command{
	Use:   "delete <title>",
	Short: "Delete an assignment title no longer in use",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.admin.DeleteTitle(ctx, actor(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted title %q\n", args[0])
			return nil
		})
	},
}

var bucketCmd = &cobra.Command{
	Use:   "bucket",
	Short: "Manage planner buckets and their icons",
}

var bucketListCmd = &cobra.Command{
	Use:   "list",
	Short: "List planner buckets with their icons",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			tasks, err := a.db.LoadTasks(ctx)
			if err != nil {
				return err
			}
			icons, err := a.db.LoadBucketIcons(ctx)
			if err != nil {
				return err
			}
			if icons.AutoCreated {
				fmt.Fprintln(cmd.ErrOrStderr(), "Created missing bucket icon table")
			}
			byBucket := make(map[string]string, len(icons.Rows))
			for _, ic := range icons.Rows {
				byBucket[ic.Bucket] = ic.Icon
			}

			var out []model.BucketIcon
			for _, b := range snapshot.Buckets(tasks) {
				icon, ok := byBucket[b]
				if !ok {
					icon = model.DefaultBucketIcon
				}
				out = append(out, model.BucketIcon{Bucket: b, Icon: icon})
			}
			if flagJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			for _, ic := range out {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ic.Icon, ic.Bucket)
			}
			return nil
		})
	},
}

var bucketRenameCmd = &cobra.Command{
	Use:   "rename <old> <new>",
	Short: "Rename a planner bucket on every task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.admin.RenameBucket(ctx, actor(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed bucket %q to %q\n", args[0], args[1])
			return nil
		})
	},
}

var bucketIconCmd = &cobra.Command{
	Use:   "icon <bucket> <icon>",
	Short: "Set the display icon of a planner bucket",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.admin.SetBucketIcon(ctx, actor(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set icon for %q to %s\n", args[0], args[1])
			return nil
		})
	},
}

func init() {
	titleCmd.AddCommand(titleListCmd)
	titleCmd.AddCommand(titleAddCmd)
	titleCmd.AddCommand(titleRenameCmd)
	titleCmd.AddCommand(titleDeleteCmd)
	bucketCmd.AddCommand(bucketListCmd)
	bucketCmd.AddCommand(bucketRenameCmd)
	bucketCmd.AddCommand(bucketIconCmd)
	rootCmd.AddCommand(titleCmd)
	rootCmd.AddCommand(bucketCmd)
}
