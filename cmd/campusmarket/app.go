package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/campusmarket/campusmarket/internal/config"
	"github.com/campusmarket/campusmarket/internal/marketplace"
	"github.com/campusmarket/campusmarket/internal/repository"
	"github.com/campusmarket/campusmarket/internal/store"
	"github.com/campusmarket/campusmarket/internal/telemetry"
	"github.com/campusmarket/campusmarket/internal/view"
)

// app holds everything a data command needs: config, cache, API client,
// repositories, and the screen projector.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	store  *store.Store
	client *marketplace.Client

	items  *repository.ItemRepository
	bids   *repository.BidLedger
	orders *repository.OrderRepository
	notes  *repository.NotificationRepository
	proj   *view.Projector

	shutdownTel telemetry.ShutdownFunc
}

// openApp loads the config at cfgPath and wires the stack. Close releases it.
func openApp(ctx context.Context, cfgPath string, verbose bool) (*app, error) {
	logger := newLogger(verbose)

	// --- Config --------------------------------------------------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config from %q: %w", cfgPath, err)
	}
	logger.Debug("config loaded",
		"api_url", cfg.APIURL,
		"user_id", cfg.UserID,
		"db_path", cfg.DBPath,
		"poll_interval", cfg.PollInterval,
	)

	a := &app{cfg: cfg, log: logger}

	// --- Telemetry (optional) ------------------------------------------------

	a.shutdownTel, err = telemetry.Setup(ctx, cfg.Telemetry, version)
	if err != nil {
		logger.Error("telemetry setup failed, continuing without telemetry", "error", err)
	} else if cfg.Telemetry != nil {
		logger.Info("telemetry enabled", "endpoint", cfg.Telemetry.OTLPEndpoint)
	}

	// --- Cache DB ------------------------------------------------------------

	a.store, err = store.Open(cfg.DBPath, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("opening cache DB at %q: %w", cfg.DBPath, err)
	}
	logger.Debug("cache DB opened", "path", cfg.DBPath)

	// --- Marketplace client --------------------------------------------------

	a.client, err = marketplace.NewClient(cfg.APIURL, cfg.APIToken, cfg.RequestTimeout, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("initialising marketplace client: %w", err)
	}

	// --- Repositories and screens --------------------------------------------

	a.items = repository.NewItemRepository(a.client, a.store, logger)
	a.bids = repository.NewBidLedger(a.client, a.store, logger)
	a.orders = repository.NewOrderRepository(a.client, a.store, logger)
	a.notes = repository.NewNotificationRepository(a.client, a.store, logger)
	a.proj = view.NewProjector(a.items, a.bids, a.notes, cfg.Workers, logger)

	return a, nil
}

// Close flushes telemetry and closes the cache.
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Error("closing cache DB", "error", err)
		}
	}
	if a.shutdownTel != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTel(flushCtx); err != nil {
			a.log.Error("telemetry shutdown error", "error", err)
		}
	}
}
