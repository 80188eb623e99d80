// Package publish delivers the rendered calendar feed to where subscribers
// read it: a local file or an object-storage URL accepting HTTP PUT.
package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/baiirun/tracker/internal/ical"
	"github.com/baiirun/tracker/internal/model"
	"github.com/baiirun/tracker/internal/snapshot"
	"github.com/baiirun/tracker/internal/timeouts"
)

// ContentType is the media type of published calendar documents.
const ContentType = "text/calendar; charset=utf-8"

// Publisher stores one calendar document.
type Publisher interface {
	Publish(ctx context.Context, doc []byte) error
}

// FilePublisher writes the document to Path, replacing it atomically.
type FilePublisher struct {
	Path string
}

// Publish implements Publisher.
func (p FilePublisher) Publish(ctx context.Context, doc []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.Path == "" {
		return errors.New("publish path is required")
	}
	dir := filepath.Dir(p.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".calendar-*.ics")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(doc); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write calendar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close calendar: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.Path); err != nil {
		return fmt.Errorf("failed to replace calendar: %w", err)
	}
	return nil
}

// HTTPPublisher uploads the document with an HTTP PUT, as accepted by
// S3-compatible storage behind a presigned or public-write URL.
type HTTPPublisher struct {
	URL    string
	Client *http.Client
}

// Publish implements Publisher.
func (p HTTPPublisher) Publish(ctx context.Context, doc []byte) error {
	if p.URL == "" {
		return errors.New("publish URL is required")
	}
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: timeouts.CalendarPublish}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, p.URL, bytes.NewReader(doc))
	if err != nil {
		return fmt.Errorf("failed to build publish request: %w", err)
	}
	req.Header.Set("Content-Type", ContentType)
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to publish calendar: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("failed to publish calendar: status %s", resp.Status)
	}
	return nil
}

// Exporter renders the feed from a tasks snapshot and hands it to every
// configured publisher.
type Exporter struct {
	Name       string
	Publishers []Publisher
	Now        func() time.Time
}

// Export renders the dated tasks and publishes the document. Each
// publisher gets its own timeout. The first failure is returned after all
// publishers have been tried.
func (e *Exporter) Export(ctx context.Context, tasks []model.Task) error {
	if e == nil || len(e.Publishers) == 0 {
		return nil
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}

	doc := ical.Render(snapshot.Dated(tasks), ical.Options{Name: e.Name, Now: now(), Detail: ical.DetailFeed})

	var errs []error
	for _, p := range e.Publishers {
		pctx, cancel := context.WithTimeout(ctx, timeouts.CalendarPublish)
		if err := p.Publish(pctx, doc); err != nil {
			errs = append(errs, err)
		}
		cancel()
	}
	return errors.Join(errs...)
}
