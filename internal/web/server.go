// Package web is the HTTP surface of the tracker: the public calendar feed
// and a small JSON API for the UI layers.
package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/baiirun/tracker/internal/db"
	"github.com/baiirun/tracker/internal/model"
	"github.com/baiirun/tracker/internal/notify"
	"github.com/baiirun/tracker/internal/timeouts"
)

// Store is the table access the handlers need.
type Store interface {
	LoadTasks(ctx context.Context) ([]model.Task, error)
	QueryChangelog(ctx context.Context, f db.ChangelogFilter) ([]model.ChangelogEntry, error)
	ListPresets(ctx context.Context, user string) ([]model.FilterPreset, error)
	SavePreset(ctx context.Context, user, name string, years []int, buckets []string) error
	DeletePreset(ctx context.Context, user, name string) error
}

// Saver persists an edited tasks snapshot together with its changelog.
type Saver interface {
	SaveAndLog(ctx context.Context, original, updated []model.Task, actor, source string) error
}

// Notifier posts comments and manages the notification inbox.
type Notifier interface {
	AddCommentAndNotify(ctx context.Context, in notify.CommentInput) (notify.CommentResult, error)
	CommentsForTask(ctx context.Context, taskKey int) ([]model.Comment, error)
	UnreadNotifications(ctx context.Context, user string) ([]model.Notification, error)
	MarkRead(ctx context.Context, recipient string, ids []int) (int, error)
	MarkAllRead(ctx context.Context, user string) (int, error)
}

// Authenticator checks API credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (model.User, error)
}

// Deps wires a Server.
type Deps struct {
	Store        Store
	Saver        Saver
	Notifier     Notifier
	Accounts     Authenticator
	CalendarName string
	Clock        func() time.Time
}

// Server is the tracker web server.
type Server struct {
	store        Store
	saver        Saver
	notifier     Notifier
	accounts     Authenticator
	calendarName string
	clock        func() time.Time
	router       *gin.Engine
}

// NewServer creates a server and registers its routes.
func NewServer(d Deps) *Server {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	clock := d.Clock
	if clock == nil {
		clock = time.Now
	}
	s := &Server{
		store:        d.Store,
		saver:        d.Saver,
		notifier:     d.Notifier,
		accounts:     d.Accounts,
		calendarName: d.CalendarName,
		clock:        clock,
		router:       router,
	}

	// Calendar routes are unauthenticated so calendar clients can subscribe.
	router.GET("/calendar.ics", s.handleFeed)
	router.GET("/tasks/:id/calendar.ics", s.handleTaskCalendar)

	api := router.Group("/api", s.requireUser)
	{
		api.GET("/tasks", s.handleAPITasks)
		api.PUT("/tasks", s.handleAPISaveTasks)
		api.GET("/tasks/:id/comments", s.handleAPIComments)
		api.POST("/tasks/:id/comments", s.handleAPIAddComment)
		api.GET("/notifications", s.handleAPINotifications)
		api.POST("/notifications/read", s.handleAPIMarkRead)
		api.GET("/presets", s.handleAPIPresets)
		api.PUT("/presets/:name", s.handleAPISavePreset)
		api.DELETE("/presets/:name", s.handleAPIDeletePreset)
		api.GET("/changelog", requireAdmin, s.handleAPIChangelog)
	}

	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("serving calendar feed and API on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
