package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"social_publisher/internal/config"
	"social_publisher/internal/credstore"
	"social_publisher/internal/domain"
	"social_publisher/internal/events"
	"social_publisher/internal/logging"
	"social_publisher/internal/platform/linkedin"
	"social_publisher/internal/service"
	"social_publisher/internal/storage/postgres"
)

// Exit codes for scheduler callers: 0 success, 1 error, 2 no eligible
// drafts (single-draft mode only).
const (
	exitOK       = 0
	exitError    = 1
	exitNoDrafts = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to config file")
	all := flag.Bool("all", false, "publish every eligible draft instead of just the next one")
	flag.Parse()

	logger := logging.Setup("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return exitError
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		return exitError
	}

	logger = logging.Setup(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return exitError
	}
	defer db.Close()

	draftStore := postgres.NewDraftStore(db)
	credStore := credstore.NewFileStore(cfg.Credential.Path, logger)

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

	var eventPub service.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		rabbit, err := events.NewRabbitMQ(events.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			return exitError
		}
		defer rabbit.Close()
		eventPub = rabbit
	}

	svc := service.NewPublishService(
		credStore,
		draftStore,
		client,
		eventPub,
		service.SleepDelayer{},
		logger,
		cfg.Publish,
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

	if *all {
		stats, err := svc.PublishAll(ctx)
		if err != nil {
			logger.Error("publish run failed", "error", err)
			return exitError
		}
		logger.Info("batch done",
			"published", stats.Published,
			"failed", stats.Failed,
			"skipped", stats.Skipped,
		)
		return exitOK
	}

	draft, err := svc.PublishNext(ctx)
	switch {
	case errors.Is(err, domain.ErrNoEligibleDrafts):
		logger.Info("no eligible drafts")
		return exitNoDrafts
	case err != nil:
		logger.Error("publish failed", "error", err)
		return exitError
	}

	logger.Info("draft processed", "draft_id", draft.ID, "status", draft.Status)
	return exitOK
}
