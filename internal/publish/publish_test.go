package publish

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/baiirun/tracker/internal/model"
)

type recordingPublisher struct {
	docs [][]byte
	err  error
}

func (p *recordingPublisher) Publish(ctx context.Context, doc []byte) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish called without a deadline")
	}
	p.docs = append(p.docs, doc)
	return p.err
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	return &t
}

func TestFilePublisher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "public", "calendar.ics")
	p := FilePublisher{Path: path}

	if err := p.Publish(context.Background(), []byte("first")); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if err := p.Publish(context.Background(), []byte("second")); err != nil {
		t.Fatalf("second publish: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read published file: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("published = %q, want second", got)
	}
}

func TestHTTPPublisher(t *testing.T) {
	var method, contentType, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := HTTPPublisher{URL: srv.URL + "/calendar.ics", Client: srv.Client()}
	if err := p.Publish(context.Background(), []byte("BEGIN:VCALENDAR")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if method != http.MethodPut {
		t.Errorf("method = %s, want PUT", method)
	}
	if contentType != ContentType {
		t.Errorf("content type = %q", contentType)
	}
	if body != "BEGIN:VCALENDAR" {
		t.Errorf("body = %q", body)
	}
}

func TestHTTPPublisher_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	p := HTTPPublisher{URL: srv.URL, Client: srv.Client()}
	err := p.Publish(context.Background(), []byte("x"))
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Errorf("expected 403 error, got %v", err)
	}
}

func TestExporter_PublishesDatedTasks(t *testing.T) {
	ok := &recordingPublisher{}
	failing := &recordingPublisher{err: errors.New("boom")}
	e := &Exporter{Name: "Feed", Publishers: []Publisher{failing, ok}}

	tasks := []model.Task{
		{Key: 1, Title: "Scheduled", Start: day(2025, 10, 10), End: day(2025, 10, 10)},
		{Key: 2, Title: "Placeholder", FiscalYear: 1900, Start: day(1900, 1, 1), End: day(1900, 1, 1)},
		{Key: 3, Title: "Unscheduled"},
	}
	err := e.Export(context.Background(), tasks)
	if err == nil {
		t.Error("expected the failing publisher's error")
	}
	if len(ok.docs) != 1 {
		t.Fatalf("second publisher should still run, got %d docs", len(ok.docs))
	}

	doc := string(ok.docs[0])
	if strings.Count(doc, "BEGIN:VEVENT") != 2 {
		t.Errorf("expected two events, the undated task skipped:\n%s", doc)
	}
	if !strings.Contains(doc, "X-WR-CALNAME:Feed") {
		t.Error("calendar name not applied")
	}
}

func TestExporter_NoPublishers(t *testing.T) {
	var e *Exporter
	if err := e.Export(context.Background(), nil); err != nil {
		t.Errorf("nil exporter should be a no-op, got %v", err)
	}
}
