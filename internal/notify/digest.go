package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/baiirun/tracker/internal/model"
	"github.com/baiirun/tracker/internal/snapshot"
)

// DigestWindowDays is how far ahead the digest looks for starting tasks.
const DigestWindowDays = 7

// DigestResult counts what SendDigest did.
type DigestResult struct {
	Sent    int
	Skipped int
	Failed  int
}

// Due reports whether a digest with frequency f goes out on day.
func Due(f model.Frequency, day time.Time) bool {
	switch f {
	case model.FrequencyDaily:
		return true
	case model.FrequencyWeekly:
		return day.Weekday() == time.Monday
	}
	return false
}

// SendDigest emails each due user the tasks for their assignment title that
// start within the next week. Users with nothing upcoming get no email.
// Failed sends are logged and counted.
func (s *Service) SendDigest(ctx context.Context, today time.Time) (DigestResult, error) {
	ctx, span := s.tracer.Start(ctx, "notify.SendDigest")
	defer span.End()

	var res DigestResult
	settings, err := s.store.LoadSettings(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to load settings: %w", err)
	}
	users, err := s.store.LoadUsers(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to load users: %w", err)
	}
	tasks, err := s.store.LoadTasks(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to load tasks: %w", err)
	}

	for _, setting := range settings {
		if !Due(setting.Frequency, today) {
			continue
		}
		user, ok := findUser(users, setting.Email)
		if !ok || !user.IsActive() || user.AssignmentTitle == "" {
			res.Skipped++
			continue
		}
		upcoming := snapshot.StartingWithin(tasks, user.AssignmentTitle, today, DigestWindowDays)
		if len(upcoming) == 0 {
			res.Skipped++
			continue
		}
		msg := Message{
			To:      user.Email,
			Subject: "Your Upcoming Tasks for the Week",
			Body:    digestBody(user, upcoming),
		}
		if err := s.send(ctx, msg); err != nil {
			res.Failed++
			log.Printf("digest: email %s: %v", user.Email, err)
			continue
		}
		res.Sent++
	}
	return res, nil
}

func findUser(users []model.User, email string) (model.User, bool) {
	for _, u := range users {
		if sameEmail(u.Email, email) {
			return u, true
		}
	}
	return model.User{}, false
}

func digestBody(u model.User, tasks []model.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\nHere are your tasks starting in the next %d days:\n\n", u.Name(), DigestWindowDays)
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Task\tStart Date\tStatus")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Title, t.Start.Format("01-02-2006, Monday"), t.Progress)
	}
	_ = tw.Flush()
	return b.String()
}
