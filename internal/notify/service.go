// Package notify records task comments, fans them out as in-app
// notifications and sends best-effort email notices.
//
// The notifications table is the source of truth. Email is a lossy side
// channel: a failed send is logged and never undoes or blocks a comment or
// its notifications.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"

	"github.com/baiirun/tracker/internal/db"
	"github.com/baiirun/tracker/internal/model"
	"github.com/baiirun/tracker/internal/snapshot"
	"github.com/baiirun/tracker/internal/timeouts"
)

var (
	// ErrTaskNotFound indicates the commented task is not in the snapshot.
	ErrTaskNotFound = errors.New("task not found")
	// ErrEmptyComment indicates a comment without text.
	ErrEmptyComment = errors.New("comment text is required")
	// ErrAuthorRequired indicates a comment without an author.
	ErrAuthorRequired = errors.New("comment author is required")
)

// Store is the persistence boundary used by the service.
type Store interface {
	LoadTasks(ctx context.Context) ([]model.Task, error)
	LoadUsers(ctx context.Context) ([]model.User, error)
	LoadSettings(ctx context.Context) ([]model.Setting, error)
	LoadComments(ctx context.Context) (db.Table[model.Comment], error)
	SaveComments(ctx context.Context, comments []model.Comment) error
	LoadNotifications(ctx context.Context) (db.Table[model.Notification], error)
	SaveNotifications(ctx context.Context, notifications []model.Notification) error
}

// Service implements comment posting and notification management.
type Service struct {
	store  Store
	mailer Mailer
	clock  func() time.Time
	tracer trace.Tracer
}

// NewService constructs the service. A nil mailer logs instead of sending.
func NewService(store Store, mailer Mailer, clock func() time.Time) *Service {
	if mailer == nil {
		mailer = LogMailer{}
	}
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		store:  store,
		mailer: mailer,
		clock:  clock,
		tracer: otel.Tracer("github.com/baiirun/tracker/internal/notify"),
	}
}

// CommentInput describes one comment to post.
//
// AssignedRole is the task's ASSIGNMENT TITLE; when empty it is looked up
// from the tasks snapshot.
type CommentInput struct {
	TaskKey         int
	AuthorEmail     string
	Text            string
	AssignedRole    string
	ExtraRecipients []string
}

// CommentResult reports what AddCommentAndNotify wrote.
type CommentResult struct {
	Comment       model.Comment
	Notifications []model.Notification
	EmailFailures int
}

// Header returns the notification header for a comment.
func Header(author string, taskKey int) string {
	return fmt.Sprintf("New comment from %s on task #%d", author, taskKey)
}

// AddCommentAndNotify appends the comment, creates one notification per
// resolved recipient and emails each of them.
//
// Recipients are the active users holding the assigned role plus the extra
// recipients, without duplicates. The author never receives a notification
// for their own comment.
func (s *Service) AddCommentAndNotify(ctx context.Context, in CommentInput) (CommentResult, error) {
	ctx, span := s.tracer.Start(ctx, "notify.AddCommentAndNotify",
		trace.WithAttributes(attribute.Int("tracker.task_key", in.TaskKey)))
	defer span.End()

	res, err := s.addComment(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "add comment failed")
		return res, err
	}
	span.SetAttributes(
		attribute.Int("tracker.notifications", len(res.Notifications)),
		attribute.Int("tracker.email_failures", res.EmailFailures),
	)
	return res, nil
}

func (s *Service) addComment(ctx context.Context, in CommentInput) (CommentResult, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return CommentResult{}, ErrEmptyComment
	}
	author := strings.TrimSpace(in.AuthorEmail)
	if author == "" {
		return CommentResult{}, ErrAuthorRequired
	}

	role := in.AssignedRole
	if role == "" {
		tasks, err := s.store.LoadTasks(ctx)
		if err != nil {
			return CommentResult{}, fmt.Errorf("failed to load tasks: %w", err)
		}
		task, ok := snapshot.Find(tasks, in.TaskKey)
		if !ok {
			return CommentResult{}, fmt.Errorf("%w: #%d", ErrTaskNotFound, in.TaskKey)
		}
		role = task.AssignmentTitle
	}

	users, err := s.store.LoadUsers(ctx)
	if err != nil {
		return CommentResult{}, fmt.Errorf("failed to load users: %w", err)
	}

	now := s.clock()
	comments, err := s.store.LoadComments(ctx)
	if err != nil {
		return CommentResult{}, fmt.Errorf("failed to load comments: %w", err)
	}
	comment := model.Comment{
		ID:          nextCommentID(comments.Rows),
		TaskKey:     in.TaskKey,
		AuthorEmail: author,
		Timestamp:   now,
		Text:        text,
	}
	if err := s.store.SaveComments(ctx, append(comments.Rows, comment)); err != nil {
		return CommentResult{}, fmt.Errorf("failed to save comment: %w", err)
	}

	res := CommentResult{Comment: comment}
	recipients := Recipients(users, role, in.ExtraRecipients, author)
	if len(recipients) == 0 {
		return res, nil
	}

	existing, err := s.store.LoadNotifications(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to load notifications: %w", err)
	}
	header := Header(author, in.TaskKey)
	message := model.JoinMessage(header, text)
	nextID := nextNotificationID(existing.Rows)
	for _, r := range recipients {
		res.Notifications = append(res.Notifications, model.Notification{
			ID:             nextID,
			RecipientEmail: r,
			Message:        message,
			Timestamp:      now,
		})
		nextID++
	}
	if err := s.store.SaveNotifications(ctx, append(existing.Rows, res.Notifications...)); err != nil {
		return res, fmt.Errorf("failed to save notifications: %w", err)
	}

	for _, r := range recipients {
		msg := Message{
			To:      r,
			Subject: fmt.Sprintf("New comment on task #%d", in.TaskKey),
			Body:    header + "\n\n" + text + "\n",
		}
		if err := s.send(ctx, msg); err != nil {
			res.EmailFailures++
			log.Printf("comment on task #%d: email %s: %v", in.TaskKey, r, err)
		}
	}
	return res, nil
}

func (s *Service) send(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.MailSend)
	defer cancel()
	return s.mailer.Send(ctx, msg)
}

var fold = cases.Fold()

// sameEmail compares addresses case-insensitively.
func sameEmail(a, b string) bool {
	return fold.String(strings.TrimSpace(a)) == fold.String(strings.TrimSpace(b))
}

// Recipients resolves who is notified about a comment: active users holding
// role, then the extra addresses, minus the author and duplicates.
func Recipients(users []model.User, role string, extra []string, author string) []string {
	var out []string
	add := func(email string) {
		email = strings.TrimSpace(email)
		if email == "" || sameEmail(email, author) {
			return
		}
		if slices.ContainsFunc(out, func(e string) bool { return sameEmail(e, email) }) {
			return
		}
		out = append(out, email)
	}
	if role != "" {
		for _, u := range users {
			if u.AssignmentTitle == role && u.IsActive() {
				add(u.Email)
			}
		}
	}
	for _, e := range extra {
		add(e)
	}
	return out
}

func nextCommentID(comments []model.Comment) int {
	next := 1
	for _, c := range comments {
		if c.ID >= next {
			next = c.ID + 1
		}
	}
	return next
}

func nextNotificationID(notifications []model.Notification) int {
	next := 1
	for _, n := range notifications {
		if n.ID >= next {
			next = n.ID + 1
		}
	}
	return next
}

// CommentsForTask returns the comments on one task, oldest first.
func (s *Service) CommentsForTask(ctx context.Context, taskKey int) ([]model.Comment, error) {
	comments, err := s.store.LoadComments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load comments: %w", err)
	}
	var out []model.Comment
	for _, c := range comments.Rows {
		if c.TaskKey == taskKey {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b model.Comment) int { return a.Timestamp.Compare(b.Timestamp) })
	return out, nil
}

// UnreadNotifications returns the user's unread notifications, newest first.
func (s *Service) UnreadNotifications(ctx context.Context, user string) ([]model.Notification, error) {
	all, err := s.store.LoadNotifications(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load notifications: %w", err)
	}
	var out []model.Notification
	for _, n := range all.Rows {
		if !n.IsRead && sameEmail(n.RecipientEmail, user) {
			out = append(out, n)
		}
	}
	slices.SortStableFunc(out, func(a, b model.Notification) int { return b.Timestamp.Compare(a.Timestamp) })
	return out, nil
}

// MarkRead flips the read flag on the given notification ids and writes the
// whole table back. When recipient is non-empty only that user's
// notifications are touched. It returns how many rows changed.
func (s *Service) MarkRead(ctx context.Context, recipient string, ids []int) (int, error) {
	all, err := s.store.LoadNotifications(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load notifications: %w", err)
	}
	changed := 0
	for i, n := range all.Rows {
		if n.IsRead || !slices.Contains(ids, n.ID) {
			continue
		}
		if recipient != "" && !sameEmail(n.RecipientEmail, recipient) {
			continue
		}
		all.Rows[i].IsRead = true
		changed++
	}
	if changed == 0 {
		return 0, nil
	}
	if err := s.store.SaveNotifications(ctx, all.Rows); err != nil {
		return 0, fmt.Errorf("failed to save notifications: %w", err)
	}
	return changed, nil
}

// MarkAllRead marks every unread notification of user as read.
func (s *Service) MarkAllRead(ctx context.Context, user string) (int, error) {
	unread, err := s.UnreadNotifications(ctx, user)
	if err != nil {
		return 0, err
	}
	ids := make([]int, len(unread))
	for i, n := range unread {
		ids[i] = n.ID
	}
	return s.MarkRead(ctx, user, ids)
}

// TaskKeyFromHeader extracts the task key from a notification header of the
// form produced by Header. It returns false when none is present.
func TaskKeyFromHeader(header string) (int, bool) {
	_, rest, ok := strings.Cut(header, "task #")
	if !ok {
		return 0, false
	}
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	key, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0, false
	}
	return key, true
}
