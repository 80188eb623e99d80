package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/baiirun/tracker/internal/db"
	"github.com/baiirun/tracker/internal/notify"
)

var (
	flagCommentRole string
	flagCommentCC   string
	flagNotifyAll   bool
	flagDigestDate  string
)

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Comment on tasks",
}

var commentAddCmd = &cobra.Command{
	Use:   "add <task-key> <text>",
	Short: "Comment on a task and notify its assignees",
	Long: `Posts a comment as the --as user, then notifies every active user
holding the task's assignment title (or --role) plus the --cc addresses.
The author is never notified of their own comment.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid task key %q", args[0])
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			res, err := a.notify.AddCommentAndNotify(ctx, notify.CommentInput{
				TaskKey:         key,
				AuthorEmail:     actor(),
				Text:            strings.Join(args[1:], " "),
				AssignedRole:    flagCommentRole,
				ExtraRecipients: splitList(flagCommentCC),
			})
			if err != nil {
				return err
			}
			if flagJSON {
				recipients := make([]string, len(res.Notifications))
				for i, n := range res.Notifications {
					recipients[i] = n.RecipientEmail
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"comment_id":     res.Comment.ID,
					"task_key":       res.Comment.TaskKey,
					"recipients":     recipients,
					"email_failures": res.EmailFailures,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added comment %d on task #%d, notified %d user(s)\n",
				res.Comment.ID, key, len(res.Notifications))
			if res.EmailFailures > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Warning: %d email(s) could not be sent\n", res.EmailFailures)
			}
			return nil
		})
	},
}

var commentListCmd = &cobra.Command{
	Use:   "list <task-key>",
	Short: "Show the comments on a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid task key %q", args[0])
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			comments, err := a.notify.CommentsForTask(ctx, key)
			if err != nil {
				return err
			}
			if flagJSON {
				return writeJSON(cmd.OutOrStdout(), comments)
			}
			if len(comments) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No comments on task #%d\n", key)
				return nil
			}
			for _, c := range comments {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s: %s\n", c.Timestamp.Format("2006-01-02 15:04"), c.AuthorEmail, c.Text)
			}
			return nil
		})
	},
}

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Show unread notifications for the --as user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			unread, err := a.notify.UnreadNotifications(ctx, actor())
			if err != nil {
				return err
			}
			if flagJSON {
				return writeJSON(cmd.OutOrStdout(), unread)
			}
			if len(unread) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No unread notifications")
				return nil
			}
			for _, n := range unread {
				fmt.Fprintf(cmd.OutOrStdout(), "%4d  %s\n      %s\n", n.ID, n.Header(), n.Body())
			}
			return nil
		})
	},
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read [id...]",
	Short: "Mark notifications as read",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !flagNotifyAll && len(args) == 0 {
			return fmt.Errorf("give notification ids or --all")
		}
		ids := make([]int, 0, len(args))
		for _, arg := range args {
			id, err := strconv.Atoi(arg)
			if err != nil {
				return fmt.Errorf("invalid notification id %q", arg)
			}
			ids = append(ids, id)
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			var (
				n   int
				err error
			)
			if flagNotifyAll {
				n, err = a.notify.MarkAllRead(ctx, actor())
			} else {
				n, err = a.notify.MarkRead(ctx, actor(), ids)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %d notification(s) as read\n", n)
			return nil
		})
	},
}

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Email each due user their tasks starting this week",
	Long: `Sends the upcoming-tasks digest. Users whose frequency is Daily get it
every run, Weekly users only on Mondays. Run it once a day from cron.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		today := time.Now()
		if flagDigestDate != "" {
			d := db.ParseDate(flagDigestDate)
			if d == nil {
				return fmt.Errorf("invalid --date %q", flagDigestDate)
			}
			today = *d
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			res, err := a.notify.SendDigest(ctx, today)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Digest: %d sent, %d skipped, %d failed\n", res.Sent, res.Skipped, res.Failed)
			return nil
		})
	},
}

func init() {
	commentAddCmd.Flags().StringVar(&flagCommentRole, "role", "", "notify this assignment title instead of the task's")
	commentAddCmd.Flags().StringVar(&flagCommentCC, "cc", "", "additional recipient emails (comma-separated)")
	notificationsReadCmd.Flags().BoolVar(&flagNotifyAll, "all", false, "mark every unread notification as read")
	digestCmd.Flags().StringVar(&flagDigestDate, "date", "", "run as if today were this date (YYYY-MM-DD)")

	commentCmd.AddCommand(commentAddCmd)
	commentCmd.AddCommand(commentListCmd)
	notificationsCmd.AddCommand(notificationsReadCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(digestCmd)
}
