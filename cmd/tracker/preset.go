package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Manage saved filter presets of the --as user",
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			presets, err := a.db.ListPresets(ctx, actor())
			if err != nil {
				return err
			}
			if flagJSON {
				return writeJSON(cmd.OutOrStdout(), presets)
			}
			if len(presets) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No presets for %s\n", actor())
				return nil
			}
			for _, p := range presets {
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s years=%v buckets=%v\n", p.Name, p.Years, p.Buckets)
			}
			return nil
		})
	},
}

var presetSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save the --bucket/--year selection under a name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		years, err := parseYears(flagFilterYears)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.db.SavePreset(ctx, actor(), args[0], years, splitList(flagFilterBuckets)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved preset %q\n", args[0])
			return nil
		})
	},
}

var presetDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.db.DeletePreset(ctx, actor(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted preset %q\n", args[0])
			return nil
		})
	},
}

func init() {
	presetSaveCmd.Flags().StringVar(&flagFilterBuckets, "bucket", "", "planner buckets (comma-separated)")
	presetSaveCmd.Flags().StringVar(&flagFilterYears, "year", "", "fiscal years (comma-separated)")

	presetCmd.AddCommand(presetListCmd)
	presetCmd.AddCommand(presetSaveCmd)
	presetCmd.AddCommand(presetDeleteCmd)
	rootCmd.AddCommand(presetCmd)
}
