package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/baiirun/tracker/internal/account"
	"github.com/baiirun/tracker/internal/admin"
	"github.com/baiirun/tracker/internal/changelog"
	"github.com/baiirun/tracker/internal/config"
	"github.com/baiirun/tracker/internal/db"
	"github.com/baiirun/tracker/internal/notify"
	"github.com/baiirun/tracker/internal/publish"
	"github.com/baiirun/tracker/internal/telemetry"
	"github.com/baiirun/tracker/internal/timeouts"
)

var (
	flagDB    string
	flagEnv   string
	flagJSON  bool
	flagActor string
)

var rootCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Departmental project tracker",
	Long: `Tracks a shared departmental task list with a full change log, task
comments with email notifications, and a subscribable calendar feed.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "path to the tracker database (default $TRACKER_DB_PATH or ~/.tracker/tracker.db)")
	rootCmd.PersistentFlags().StringVar(&flagEnv, "env", "", "load settings from this .env file")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&flagActor, "as", "", "email recorded as the actor in the changelog (default $USER)")
}

// app holds the wired services for one command invocation.
type app struct {
	cfg      config.Config
	db       *db.DB
	engine   *changelog.Engine
	notify   *notify.Service
	accounts *account.Service
	admin    *admin.Service
	exporter *publish.Exporter
	shutdown func(context.Context) error
}

// loadConfig reads settings from the environment and applies flag overrides.
func loadConfig() (config.Config, error) {
	var files []string
	if flagEnv != "" {
		files = append(files, flagEnv)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return cfg, err
	}
	if flagDB != "" {
		cfg.DBPath = flagDB
	}
	return cfg, nil
}

// openApp opens the database and wires every service.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	shutdown, err := telemetry.Setup(ctx, "tracker", cfg.OTelEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	if err := database.Init(); err != nil {
		_ = database.Close()
		_ = shutdown(ctx)
		return nil, err
	}

	return newApp(cfg, database, notify.NewMailer(cfg.Mail()), shutdown), nil
}

func newApp(cfg config.Config, database *db.DB, mailer notify.Mailer, shutdown func(context.Context) error) *app {
	exporter := &publish.Exporter{Name: cfg.CalendarName}
	if cfg.CalendarFile != "" {
		exporter.Publishers = append(exporter.Publishers, publish.FilePublisher{Path: cfg.CalendarFile})
	}
	if cfg.CalendarURL != "" {
		exporter.Publishers = append(exporter.Publishers, publish.HTTPPublisher{URL: cfg.CalendarURL})
	}

	engine := changelog.NewEngine(database, exporter, time.Now)
	return &app{
		cfg:      cfg,
		db:       database,
		engine:   engine,
		notify:   notify.NewService(database, mailer, time.Now),
		accounts: account.NewService(database, 0),
		admin:    admin.NewService(database, engine, time.Now),
		exporter: exporter,
		shutdown: shutdown,
	}
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		log.Printf("close database: %v", err)
	}
	if a.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := a.shutdown(ctx); err != nil {
			log.Printf("flush traces: %v", err)
		}
	}
}

// withApp runs fn with a wired app and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// actor returns the identity recorded in the changelog for CLI edits.
func actor() string {
	if flagActor != "" {
		return flagActor
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}

func main() {
	log.SetPrefix("[TRACKER] ")
	log.SetFlags(log.LstdFlags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
