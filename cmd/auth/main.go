package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"social_publisher/internal/auth"
	"social_publisher/internal/config"
	"social_publisher/internal/credstore"
	"social_publisher/internal/logging"
	"social_publisher/internal/platform/linkedin"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
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

	credStore := credstore.NewFileStore(cfg.Credential.Path, logger)

	authenticator := auth.New(client, credStore, auth.BrowserOpener{}, auth.Config{
		CallbackPort: cfg.LinkedIn.CallbackPort,
		CallbackPath: cfg.LinkedIn.CallbackPath,
		Timeout:      cfg.LinkedIn.AuthTimeout,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	cred, err := authenticator.Authenticate(ctx)
	if err != nil {
		logger.Error("authentication failed", "error", err)
		os.Exit(1)
	}

	logger.Info("credential saved", "expires_at", cred.ExpiresAt)
}
