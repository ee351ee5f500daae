package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"social_publisher/internal/config"
	"social_publisher/internal/credstore"
	"social_publisher/internal/logging"
	"social_publisher/internal/platform/linkedin"
	"social_publisher/internal/report"
	"social_publisher/internal/scheduler"
	"social_publisher/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single report instead of the periodic loop")
	flag.Parse()

	logger := logging.Setup("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger = logging.Setup(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	client := linkedin.New(linkedin.Config{
		ClientID:     cfg.LinkedIn.ClientID,
		ClientSecret: cfg.LinkedIn.ClientSecret,
		AuthorURN:    cfg.LinkedIn.AuthorURN,
		Scopes:       cfg.LinkedIn.Scopes,
		AuthBaseURL:  cfg.LinkedIn.AuthBaseURL,
		APIBaseURL:   cfg.LinkedIn.APIBaseURL,
		RedirectURI:  cfg.LinkedIn.RedirectURI(),
		Timeout:      cfg.LinkedIn.HTTPTimeout,
	}, logger)

	reporter := report.New(
		credstore.NewFileStore(cfg.Credential.Path, logger),
		postgres.NewDraftStore(db),
		client,
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if *once {
		if err := reporter.Run(ctx); err != nil {
			logger.Error("report failed", "error", err)
			os.Exit(1)
		}
		return
	}

	sched := scheduler.NewScheduler(reporter, cfg.Report.Interval, logger)
	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}
