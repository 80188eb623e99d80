package changelog

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/baiirun/tracker/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Store persists the changelog entries and the tasks snapshot together.
// Either both writes land or neither does.
type Store interface {
	SaveTasksWithLog(ctx context.Context, tasks []model.Task, entries []model.ChangelogEntry) error
}

// Exporter regenerates and publishes the calendar after a save.
type Exporter interface {
	Export(ctx context.Context, tasks []model.Task) error
}

// Engine runs the save-and-log flow.
type Engine struct {
	store    Store
	exporter Exporter
	clock    func() time.Time
	tracer   trace.Tracer
}

// NewEngine constructs an engine. exporter may be nil to skip publishing.
func NewEngine(store Store, exporter Exporter, clock func() time.Time) *Engine {
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		store:    store,
		exporter: exporter,
		clock:    clock,
		tracer:   otel.Tracer("github.com/baiirun/tracker/internal/changelog"),
	}
}

// SaveAndLog diffs original against updated, then appends the entries and
// replaces the tasks table atomically. A nil return means both landed.
//
// Both snapshots are normalized the way the store writes them before the
// diff, so values the store fills in never show up as edits.
//
// After a successful save the calendar is republished on a best-effort basis:
// a publish failure is logged and never undoes or fails the save.
func (e *Engine) SaveAndLog(ctx context.Context, original, updated []model.Task, actor, source string) error {
	ctx, span := e.tracer.Start(ctx, "changelog.SaveAndLog", trace.WithAttributes(
		attribute.String("tracker.source", source),
		attribute.Int("tracker.tasks", len(updated)),
	))
	defer span.End()

	original, updated = Normalize(original), Normalize(updated)
	entries, err := Diff(original, updated, actor, source, e.clock())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "diff failed")
		return fmt.Errorf("failed to diff snapshots: %w", err)
	}
	span.SetAttributes(attribute.Int("tracker.changelog_entries", len(entries)))

	if err := e.store.SaveTasksWithLog(ctx, updated, entries); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return fmt.Errorf("failed to save tasks: %w", err)
	}

	if e.exporter != nil {
		if err := e.exporter.Export(ctx, updated); err != nil {
			span.AddEvent("calendar publish failed")
			log.Printf("calendar publish after %s save: %v", source, err)
		}
	}
	return nil
}

// Normalize returns a copy of tasks as the tasks table stores them: an
// empty progress becomes NOT STARTED.
func Normalize(tasks []model.Task) []model.Task {
	out := model.CloneTasks(tasks)
	for i := range out {
		if out[i].Progress == "" {
			out[i].Progress = model.ProgressNotStarted
		}
	}
	return out
}
