package main

import (
	"fmt"
	"log/slog"

	"github.com/fynch/toast-export-api/internal/config"
	"github.com/fynch/toast-export-api/internal/delivery"
	"github.com/fynch/toast-export-api/internal/export"
	"github.com/fynch/toast-export-api/internal/platform/logger"
	"github.com/fynch/toast-export-api/internal/platform/toast"
	"github.com/fynch/toast-export-api/internal/task"
)

// application holds the initialized components of the server. Everything is
// wired once at startup; nothing is created per request.
type application struct {
	config     *config.Config
	logger     *slog.Logger
	store      *task.Store
	dispatcher *task.Dispatcher
}

// initializeApp loads configuration and wires all application components:
// the upstream Toast client, the payload transformer, the webhook delivery
// client, and the task subsystem that ties them together.
func initializeApp() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.Setup(cfg.Server)
	log.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"locations", len(cfg.Toast.Locations),
		"default_webhook_configured", cfg.Delivery.DefaultWebhookURL != "")

	locations, err := cfg.Toast.LocationGUIDs()
	if err != nil {
		return nil, fmt.Errorf("invalid location configuration: %w", err)
	}

	toastClient := toast.NewClient(toast.Config{
		BaseURL:      cfg.Toast.BaseURL,
		AuthURL:      cfg.Toast.AuthURL,
		ClientID:     cfg.Toast.ClientID,
		ClientSecret: cfg.Toast.ClientSecret,
	}, log)

	transformer := export.NewTransformer(log)

	deliverer := delivery.NewClient(delivery.Config{
		MaxAttempts:  cfg.Delivery.MaxAttempts,
		RetryWaitMin: cfg.Delivery.RetryWaitMin,
		RetryWaitMax: cfg.Delivery.RetryWaitMax,
		Timeout:      cfg.Delivery.Timeout,
	}, log)

	store := task.NewStore()
	sink := task.NewSink(store, log)
	executor := task.NewExecutor(store, sink, toastClient, transformer, deliverer, log)
	dispatcher := task.NewDispatcher(
		store,
		executor,
		locations,
		cfg.Delivery.DefaultWebhookURL,
		log,
	)

	return &application{
		config:     cfg,
		logger:     log,
		store:      store,
		dispatcher: dispatcher,
	}, nil
}
