package notify

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/baiirun/tracker/internal/model"
)

func TestDue(t *testing.T) {
	monday := time.Date(2025, 10, 6, 0, 0, 0, 0, time.Local)
	tuesday := monday.AddDate(0, 0, 1)

	tests := []struct {
		f    model.Frequency
		day  time.Time
		want bool
	}{
		{model.FrequencyDaily, tuesday, true},
		{model.FrequencyWeekly, monday, true},
		{model.FrequencyWeekly, tuesday, false},
		{model.FrequencyNever, monday, false},
		{"", monday, false},
	}
	for _, tt := range tests {
		if got := Due(tt.f, tt.day); got != tt.want {
			t.Errorf("Due(%q, %s) = %v, want %v", tt.f, tt.day.Weekday(), got, tt.want)
		}
	}
}

func TestSendDigest(t *testing.T) {
	store := setupTestDB(t)
	seed(t, store)
	ctx := context.Background()
	if err := store.SaveSettings(ctx, []model.Setting{
		{Email: "bob@x.edu", Frequency: model.FrequencyWeekly},
		{Email: "alice@x.edu", Frequency: model.FrequencyDaily},
		{Email: "carol@x.edu", Frequency: model.FrequencyNever},
	}); err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	mailer := &fakeMailer{}
	svc := NewService(store, mailer, func() time.Time { return now })

	res, err := svc.SendDigest(ctx, now)
	if err != nil {
		t.Fatalf("send digest: %v", err)
	}
	// bob has task #42 starting Wednesday; alice's task has no start.
	if res.Sent != 1 || res.Skipped != 1 {
		t.Errorf("result = %+v", res)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].To != "bob@x.edu" {
		t.Fatalf("sent = %+v", mailer.sent)
	}
	body := mailer.sent[0].Body
	if !strings.Contains(body, "Hi Bob") || !strings.Contains(body, "Opening") {
		t.Errorf("body = %q", body)
	}
}
